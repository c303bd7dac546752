// Package routes registers the public HTTP surface against huma: one
// file per resource group, a root Register function per group, and
// `doc:`-tagged Input/Output structs.
package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/actor"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/blob"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/dataset"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/kvstore"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/logs"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/orchestrator"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/queue"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/runtime"
)

// Services bundles every collaborator the route handlers call into.
type Services struct {
	Actors         *actor.Service
	Orchestrator   *orchestrator.Service
	Datasets       *dataset.Service
	KeyValueStores *kvstore.Service
	RequestQueues  *queue.Service
	Logs           *logs.Service
	Blob           blob.Store
	Runtimes       map[string]runtime.ContainerRuntime
	Auth           auth.Authenticator
}

// RegisterAll wires every route group onto api. router is the raw chi
// mux underneath huma, used only for the log-streaming endpoint, which
// huma's request/response model cannot express.
func RegisterAll(api huma.API, router *chi.Mux, svcs *Services) {
	RegisterRuns(api, router, svcs)
	RegisterDatasets(api, svcs)
	RegisterKeyValueStores(api, svcs)
	RegisterRequestQueues(api, svcs)
	RegisterMeta(api, svcs)
}
