package apierr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
)

func TestNotFoundHTTPStatus(t *testing.T) {
	err := apierr.NotFound("run", "run-1")
	if err.HTTPStatus() != 404 {
		t.Fatalf("expected 404, got %d", err.HTTPStatus())
	}
	if !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("expected Is(CodeNotFound) true")
	}
}

func TestCodeOfWrappedError(t *testing.T) {
	base := apierr.New(apierr.CodeLockedByOther, "lock held", nil)
	wrapped := fmt.Errorf("acquire head: %w", base)

	if apierr.CodeOf(wrapped) != apierr.CodeLockedByOther {
		t.Fatalf("expected CodeLockedByOther from wrapped error, got %s", apierr.CodeOf(wrapped))
	}
}

func TestCodeOfUntypedDefaultsInternal(t *testing.T) {
	if apierr.CodeOf(errors.New("boom")) != apierr.CodeInternal {
		t.Fatalf("expected CodeInternal default for untyped error")
	}
}

func TestDependencyUnavailableMapsTo503(t *testing.T) {
	err := apierr.New(apierr.CodeDependencyUnavailable, "redis down", nil)
	if err.HTTPStatus() != 503 {
		t.Fatalf("expected 503, got %d", err.HTTPStatus())
	}
}
