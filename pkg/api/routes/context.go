package routes

import (
	"context"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
)

type principalContextKey struct{}

// PrincipalKey is the huma context key AuthMiddleware attaches a resolved
// Principal under.
var PrincipalKey = principalContextKey{}

// PrincipalFromContext returns the Principal a prior middleware attached
// to ctx, or nil if the request carried no valid bearer token.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(PrincipalKey).(*auth.Principal)
	return p
}

// requirePrincipal is the shared 401 guard every authenticated route uses.
func requirePrincipal(ctx context.Context) (*auth.Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return nil, errUnauthenticated
	}
	return p, nil
}

// resolveStorageID passes raw through unchanged unless it is the reserved
// "default" alias, in which case it resolves to principal's own concrete
// per-principal resource id via resolveDefault. Every route that accepts a
// dataset/store/queue id in its path must route through this before
// calling into the corresponding service, since the services themselves
// only ever see concrete ids or explicit names, never the alias.
func resolveStorageID(ctx context.Context, raw string, principal *auth.Principal, resolveDefault func(context.Context, string) (string, error)) (string, error) {
	if !ids.IsDefaultAlias(raw) {
		return raw, nil
	}
	return resolveDefault(ctx, principal.ID)
}
