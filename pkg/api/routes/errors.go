package routes

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
)

var errUnauthenticated = errors.New("authentication required")

// bearerSecurity is the Security requirement attached to every endpoint
// that requires an authenticated Principal.
var bearerSecurity = []map[string][]string{{"bearer": {}}}

// translate maps an apierr.Error to the matching huma.Error* helper so
// the generated OpenAPI schema documents the right status, and wraps any
// untyped error as a 500.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errUnauthenticated) {
		return huma.Error401Unauthorized(err.Error())
	}

	code := apierr.CodeOf(err)
	msg := err.Error()

	switch code {
	case apierr.CodeNotFound:
		return huma.Error404NotFound(msg)
	case apierr.CodeInvalidState, apierr.CodeInvalidTransition, apierr.CodeLockedByOther,
		apierr.CodeNotLockOwner, apierr.CodeConflict, apierr.CodePartialWrite:
		return huma.Error409Conflict(msg)
	case apierr.CodeValidation:
		return huma.Error400BadRequest(msg)
	case apierr.CodeUnauthenticated:
		return huma.Error401Unauthorized(msg)
	case apierr.CodeUnauthorized:
		return huma.Error403Forbidden(msg)
	case apierr.CodeDependencyUnavailable:
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
