package routes

import (
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected a huma.StatusError, got %T: %v", err, err)
	}
	return se.GetStatus()
}

func TestTranslateNilIsNil(t *testing.T) {
	if translate(nil) != nil {
		t.Fatal("expected translate(nil) to return nil")
	}
}

func TestTranslateMapsKnownCodesToStatus(t *testing.T) {
	cases := []struct {
		code apierr.Code
		want int
	}{
		{apierr.CodeNotFound, http.StatusNotFound},
		{apierr.CodeInvalidState, http.StatusConflict},
		{apierr.CodeInvalidTransition, http.StatusConflict},
		{apierr.CodeLockedByOther, http.StatusConflict},
		{apierr.CodeNotLockOwner, http.StatusConflict},
		{apierr.CodeConflict, http.StatusConflict},
		{apierr.CodePartialWrite, http.StatusConflict},
		{apierr.CodeValidation, http.StatusBadRequest},
		{apierr.CodeUnauthenticated, http.StatusUnauthorized},
		{apierr.CodeUnauthorized, http.StatusForbidden},
		{apierr.CodeDependencyUnavailable, http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		err := apierr.New(c.code, "boom", nil)
		got := statusOf(t, translate(err))
		if got != c.want {
			t.Errorf("code %s: status = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestTranslateUnknownErrorIs500(t *testing.T) {
	got := statusOf(t, translate(errors.New("unexpected")))
	if got != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got)
	}
}

func TestTranslateUnauthenticatedSentinelIs401(t *testing.T) {
	got := statusOf(t, translate(errUnauthenticated))
	if got != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", got)
	}
}
