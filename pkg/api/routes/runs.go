package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/orchestrator"
)

func toRunResponse(run *models.Run) schemas.Run {
	resp := schemas.Run{
		ID:                     run.ID,
		ActorID:                run.ActorID,
		PrincipalID:            run.PrincipalID,
		Status:                 string(run.Status),
		StatusMessage:          run.StatusMessage,
		DefaultDatasetID:       run.DefaultDatasetID,
		DefaultKeyValueStoreID: run.DefaultKeyValueStoreID,
		DefaultRequestQueueID:  run.DefaultRequestQueueID,
		TimeoutSecs:            run.TimeoutSecs,
		MemoryMbytes:           run.MemoryMbytes,
		ExitCode:               run.ExitCode,
		CreatedAt:              run.CreatedAt.Format(time.RFC3339),
	}
	if run.StartedAt != nil {
		s := run.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if run.FinishedAt != nil {
		f := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &f
	}
	return resp
}

// SubmitRunInput is the input for POST /v2/acts/{actId}/runs.
type SubmitRunInput struct {
	ActID string `path:"actId" doc:"Actor id or owner-scoped name"`
	Body  schemas.RunRequest
}

// RunOutput wraps a single run in the data envelope.
type RunOutput struct {
	Body struct {
		Data schemas.Run `json:"data"`
	}
}

// GetRunInput is the input shared by every /v2/actor-runs/{runId}... route.
type GetRunInput struct {
	RunID string `path:"runId" doc:"Run id"`
}

// RegisterRuns registers the run-lifecycle endpoints, plus
// the streaming logs endpoint registered directly on router since huma's
// request/response model has no first-class support for long-lived
// connections.
func RegisterRuns(api huma.API, router *chi.Mux, svcs *Services) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-run",
		Method:      http.MethodPost,
		Path:        "/v2/acts/{actId}/runs",
		Summary:     "Create a run",
		Tags:        []string{"Runs"},
		Security:    bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SubmitRunInput) (*RunOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}

		act, err := svcs.Actors.Get(ctx, input.ActID, principal.ID)
		if err != nil {
			return nil, translate(err)
		}

		run, err := svcs.Orchestrator.CreateRun(ctx, act, principal.ID, orchestrator.CreateInput{
			Input:        []byte(input.Body.Input),
			InputMIME:    "application/json",
			TimeoutSecs:  input.Body.TimeoutSecs,
			MemoryMbytes: input.Body.MemoryMbytes,
		})
		if err != nil {
			return nil, translate(err)
		}

		out := &RunOutput{}
		out.Body.Data = toRunResponse(run)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/v2/actor-runs/{runId}",
		Summary:     "Read a run",
		Tags:        []string{"Runs"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *GetRunInput) (*RunOutput, error) {
		if _, err := requirePrincipal(ctx); err != nil {
			return nil, translate(err)
		}
		run, err := svcs.Orchestrator.GetRun(ctx, input.RunID)
		if err != nil {
			return nil, translate(err)
		}
		out := &RunOutput{}
		out.Body.Data = toRunResponse(run)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-run",
		Method:      http.MethodPut,
		Path:        "/v2/actor-runs/{runId}",
		Summary:     "Trusted status update, called by the running container",
		Tags:        []string{"Runs"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *struct {
		GetRunInput
		Body schemas.RunUpdateRequest
	}) (*RunOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		if !principal.IsRunScoped() || principal.RunID != input.RunID {
			return nil, translate(errUnauthenticated)
		}

		run, err := svcs.Orchestrator.UpdateStatus(ctx, input.RunID,
			models.RunStatus(input.Body.Status), input.Body.StatusMessage, input.Body.ExitCode)
		if err != nil {
			return nil, translate(err)
		}
		out := &RunOutput{}
		out.Body.Data = toRunResponse(run)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "abort-run",
		Method:      http.MethodPost,
		Path:        "/v2/actor-runs/{runId}/abort",
		Summary:     "Abort a running run",
		Tags:        []string{"Runs"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *GetRunInput) (*RunOutput, error) {
		if _, err := requirePrincipal(ctx); err != nil {
			return nil, translate(err)
		}
		run, err := svcs.Orchestrator.AbortRun(ctx, input.RunID)
		if err != nil {
			return nil, translate(err)
		}
		out := &RunOutput{}
		out.Body.Data = toRunResponse(run)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resurrect-run",
		Method:      http.MethodPost,
		Path:        "/v2/actor-runs/{runId}/resurrect",
		Summary:     "Resurrect a terminal run back to RUNNING",
		Tags:        []string{"Runs"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *GetRunInput) (*RunOutput, error) {
		if _, err := requirePrincipal(ctx); err != nil {
			return nil, translate(err)
		}
		run, err := svcs.Orchestrator.ResurrectRun(ctx, input.RunID)
		if err != nil {
			return nil, translate(err)
		}
		out := &RunOutput{}
		out.Body.Data = toRunResponse(run)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run-logs",
		Method:      http.MethodGet,
		Path:        "/v2/actor-runs/{runId}/logs",
		Summary:     "Paged log fetch",
		Tags:        []string{"Runs"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *struct {
		GetRunInput
		Offset int64 `query:"offset" doc:"Starting entry offset"`
		Limit  int64 `query:"limit" doc:"Maximum entries returned"`
	}) (*struct {
		Body struct {
			Data []schemas.LogEntry `json:"data"`
		}
	}, error) {
		if _, err := requirePrincipal(ctx); err != nil {
			return nil, translate(err)
		}
		entries, err := svcs.Logs.Fetch(ctx, input.RunID, input.Offset, input.Limit)
		if err != nil {
			return nil, translate(err)
		}

		out := &struct {
			Body struct {
				Data []schemas.LogEntry `json:"data"`
			}
		}{}
		out.Body.Data = make([]schemas.LogEntry, len(entries))
		for i, e := range entries {
			out.Body.Data[i] = schemas.LogEntry{Time: e.Time.Format(time.RFC3339), Line: e.Line}
		}
		return out, nil
	})

	registerLogStream(router, svcs)
}

// registerLogStream wires the live-tail endpoint directly onto the chi
// router as a Server-Sent-Events stream, bypassing huma's request/response model which has no
// first-class support for long-lived connections.
func registerLogStream(router *chi.Mux, svcs *Services) {
	router.Get("/v2/actor-runs/{runId}/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runId")

		token := r.URL.Query().Get("token")
		if token == "" {
			token = extractBearer(r)
		}
		if token == "" || svcs.Auth == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if _, err := svcs.Auth.Authenticate(r.Context(), token); err != nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		sub, err := svcs.Logs.Subscribe(r.Context(), runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		for _, e := range sub.Replay {
			writeSSE(w, e.Time.Format(time.RFC3339), e.Line)
		}
		flusher.Flush()

		for {
			entry, ok := sub.Next(r.Context())
			if !ok {
				return
			}
			writeSSE(w, entry.Time.Format(time.RFC3339), entry.Line)
			flusher.Flush()
		}
	})
}

func writeSSE(w http.ResponseWriter, ts, line string) {
	payload, _ := json.Marshal(schemas.LogEntry{Time: ts, Line: line})
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func extractBearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
