package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RuntimeInfo describes one registered container-execution backend.
type RuntimeInfo struct {
	Name string `json:"name"`
}

type ListRuntimesOutput struct {
	Body struct {
		Data []RuntimeInfo `json:"data"`
	}
}

// RegisterMeta registers operator-facing introspection endpoints that
// sit outside the wire-compatible run/storage surface.
func RegisterMeta(api huma.API, svcs *Services) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runtimes",
		Method:      http.MethodGet,
		Path:        "/v2/runtimes",
		Summary:     "List registered container-execution backends",
		Tags:        []string{"Meta"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *struct{}) (*ListRuntimesOutput, error) {
		if _, err := requirePrincipal(ctx); err != nil {
			return nil, translate(err)
		}
		out := &ListRuntimesOutput{}
		for name := range svcs.Runtimes {
			out.Body.Data = append(out.Body.Data, RuntimeInfo{Name: name})
		}
		return out, nil
	})
}
