package apierr

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// ToHuma converts a service-layer error into the huma status error the
// route handlers return. The Code is folded into the message.
func ToHuma(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if !As(err, &e) {
		return huma.Error500InternalServerError(err.Error())
	}

	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch e.HTTPStatus() {
	case 400:
		return huma.Error400BadRequest(msg)
	case 401:
		return huma.Error401Unauthorized(msg)
	case 403:
		return huma.Error403Forbidden(msg)
	case 404:
		return huma.Error404NotFound(msg)
	case 409:
		return huma.Error409Conflict(msg)
	case 503:
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}

// As is a thin errors.As wrapper kept local to avoid importing "errors"
// twice in callers that only need this one conversion.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
