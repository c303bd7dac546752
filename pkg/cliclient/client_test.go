package cliclient

import (
	"strings"
	"testing"
)

func TestApiErrorFormatsTypeStatusAndMessage(t *testing.T) {
	e := &apiError{status: 404}
	e.body.Error.Type = "NOT_FOUND"
	e.body.Error.Message = "run xyz not found"

	got := e.Error()
	for _, want := range []string{"NOT_FOUND", "404", "run xyz not found"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, expected it to contain %q", got, want)
		}
	}
}

func TestNewTrimsTrailingSlashFromBaseURL(t *testing.T) {
	c := New("https://api.example.com/", "tok")
	if c.BaseURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.BaseURL)
	}
	if c.Token != "tok" {
		t.Fatalf("expected token preserved, got %q", c.Token)
	}
}
