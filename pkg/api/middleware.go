package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/routes"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/qlog"
)

// AuthMiddleware resolves the Authorization bearer token into a Principal
// and attaches it to the request context. Unauthenticated requests pass
// through unchanged; route handlers that require a Principal check for
// one explicitly and return huma.Error401Unauthorized.
func AuthMiddleware(authenticator auth.Authenticator, log *qlog.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, _ := humachi.Unwrap(ctx)

		header := r.Header.Get("Authorization")
		token := ""
		switch {
		case strings.HasPrefix(header, "Bearer "):
			token = strings.TrimPrefix(header, "Bearer ")
		case r.URL.Query().Get("token") != "":
			// Browser clients cannot always set headers, so huma routes
			// also accept a token query param. The SSE log stream is
			// registered on chi directly and checks ?token= itself.
			token = r.URL.Query().Get("token")
		}

		if token != "" {
			principal, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("rejected bearer token", "error", err)
			} else {
				ctx = huma.WithValue(ctx, routes.PrincipalKey, principal)
			}
		}

		next(ctx)
	}
}
