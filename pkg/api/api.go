// Package api implements the stable HTTP wire contract: run lifecycle,
// dataset, key-value-store, and request-queue endpoints under /v2,
// wrapped in a {"data": ...} / {"error": {...}} envelope, built on
// huma v2 and go-chi/chi.
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Api bundles the chi router and the huma API built on top of it.
type Api struct {
	Api    huma.API
	Router *chi.Mux
}

// NewApi constructs the router and huma API: a chi middleware stack,
// huma.DefaultConfig with a bearer SecurityScheme, wired through
// humachi.New.
func NewApi() *Api {
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	config := huma.DefaultConfig("crawlee-cloud", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Session token or cp_-prefixed API key",
		},
	}

	humaAPI := humachi.New(router, config)
	return &Api{Api: humaAPI, Router: router}
}
