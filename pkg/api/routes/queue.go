package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/queue"
)

func toRequestItem(r models.Request) schemas.RequestItem {
	item := schemas.RequestItem{
		ID:            r.ID,
		QueueID:       r.QueueID,
		UniqueKey:     r.UniqueKey,
		URL:           r.URL,
		Method:        r.Method,
		Payload:       r.Payload,
		Headers:       r.HeadersJSON,
		UserData:      r.UserDataJSON,
		RetryCount:    r.RetryCount,
		NoRetry:       r.NoRetry,
		ErrorMessages: r.ErrorMessages,
		OrderNo:       r.OrderNo,
	}
	if r.HandledAt != nil {
		h := r.HandledAt.Format(time.RFC3339)
		item.HandledAt = &h
	}
	if r.LockedUntil != nil {
		l := r.LockedUntil.Format(time.RFC3339)
		item.LockedUntil = &l
	}
	item.LockedBy = r.LockedBy
	return item
}

func toAddResponse(r *queue.AddResult) schemas.AddRequestResponse {
	return schemas.AddRequestResponse{
		RequestID:         r.RequestID,
		WasAlreadyPresent: r.WasAlreadyPresent,
		WasAlreadyHandled: r.WasAlreadyHandled,
	}
}

func toRequestInput(b schemas.AddRequestBody) queue.RequestInput {
	return queue.RequestInput{
		UniqueKey: b.UniqueKey,
		URL:       b.URL,
		Method:    b.Method,
		Payload:   b.Payload,
		Headers:   b.Headers,
		UserData:  b.UserData,
		NoRetry:   b.NoRetry,
	}
}

type AddRequestInput struct {
	QueueID   string `path:"queueId"`
	Forefront bool   `query:"forefront"`
	Body      schemas.AddRequestBody
}

type AddRequestOutput struct {
	Body struct {
		Data schemas.AddRequestResponse `json:"data"`
	}
}

type AddRequestsBatchInput struct {
	QueueID   string `path:"queueId"`
	Forefront bool   `query:"forefront"`
	Body      schemas.AddRequestsBatchBody
}

type AddRequestsBatchOutput struct {
	Body struct {
		Data schemas.AddRequestsBatchResponse `json:"data"`
	}
}

type AcquireHeadInput struct {
	QueueID   string `path:"queueId"`
	LockSecs  int    `query:"lockSecs" doc:"Lease duration in seconds"`
	Limit     int    `query:"limit"`
	ClientKey string `query:"clientKey"`
}

type AcquireHeadOutput struct {
	Body struct {
		Data schemas.AcquireHeadResponse `json:"data"`
	}
}

type GetHeadInput struct {
	QueueID string `path:"queueId"`
	Limit   int    `query:"limit"`
}

type GetHeadOutput struct {
	Body struct {
		Data []schemas.RequestItem `json:"data"`
	}
}

type ProlongLockInput struct {
	QueueID   string `path:"queueId"`
	RequestID string `path:"reqId"`
	LockSecs  int    `query:"lockSecs"`
	ClientKey string `query:"clientKey"`
}

type ReleaseLockInput struct {
	QueueID   string `path:"queueId"`
	RequestID string `path:"reqId"`
	ClientKey string `query:"clientKey"`
}

type UpdateRequestInput struct {
	QueueID   string `path:"queueId"`
	RequestID string `path:"reqId"`
	ClientKey string `query:"clientKey"`
	Body      schemas.UpdateRequestBody
}

type UpdateRequestOutput struct {
	Body struct {
		Data schemas.RequestItem `json:"data"`
	}
}

// RegisterRequestQueues registers the request-queue endpoints: add/batch-add, lock acquire/prolong/release, and update.
func RegisterRequestQueues(api huma.API, svcs *Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-request",
		Method:        http.MethodPost,
		Path:          "/v2/request-queues/{queueId}/requests",
		Summary:       "Add one request to the queue",
		Tags:          []string{"Request Queues"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddRequestInput) (*AddRequestOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}
		result, err := svcs.RequestQueues.AddRequest(ctx, queueID, toRequestInput(input.Body), input.Forefront)
		if err != nil {
			return nil, translate(err)
		}
		out := &AddRequestOutput{}
		out.Body.Data = toAddResponse(result)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-requests-batch",
		Method:        http.MethodPost,
		Path:          "/v2/request-queues/{queueId}/requests/batch",
		Summary:       "Add many requests to the queue",
		Tags:          []string{"Request Queues"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddRequestsBatchInput) (*AddRequestsBatchOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}
		reqs := make([]queue.RequestInput, len(input.Body.Requests))
		for i, b := range input.Body.Requests {
			reqs[i] = toRequestInput(b)
		}
		result := svcs.RequestQueues.AddRequestsBatch(ctx, queueID, reqs, input.Forefront)

		out := &AddRequestsBatchOutput{}
		out.Body.Data.Processed = make([]schemas.AddRequestResponse, len(result.Processed))
		for i := range result.Processed {
			out.Body.Data.Processed[i] = toAddResponse(&result.Processed[i])
		}
		out.Body.Data.Unprocessed = make([]schemas.AddRequestBody, len(result.Unprocessed))
		for i, u := range result.Unprocessed {
			out.Body.Data.Unprocessed[i] = schemas.AddRequestBody{
				UniqueKey: u.UniqueKey, URL: u.URL, Method: u.Method,
				Payload: u.Payload, Headers: u.Headers, UserData: u.UserData, NoRetry: u.NoRetry,
			}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-head",
		Method:      http.MethodGet,
		Path:        "/v2/request-queues/{queueId}/head",
		Summary:     "Peek the oldest pending requests without locking them",
		Tags:        []string{"Request Queues"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *GetHeadInput) (*GetHeadOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}
		rows, err := svcs.RequestQueues.GetHead(ctx, queueID, input.Limit)
		if err != nil {
			return nil, translate(err)
		}
		out := &GetHeadOutput{}
		out.Body.Data = make([]schemas.RequestItem, len(rows))
		for i, r := range rows {
			out.Body.Data[i] = toRequestItem(r)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "acquire-head",
		Method:      http.MethodPost,
		Path:        "/v2/request-queues/{queueId}/head/lock",
		Summary:     "Lock and return the oldest pending requests",
		Tags:        []string{"Request Queues"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *AcquireHeadInput) (*AcquireHeadOutput, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}
		result, err := svcs.RequestQueues.AcquireHead(ctx, queueID, input.Limit, input.LockSecs, input.ClientKey)
		if err != nil {
			return nil, translate(err)
		}
		out := &AcquireHeadOutput{}
		items := make([]schemas.RequestItem, len(result.Requests))
		for i, r := range result.Requests {
			items[i] = toRequestItem(r)
		}
		out.Body.Data = schemas.AcquireHeadResponse{
			Items:                  items,
			QueueHasLockedRequests: result.QueueHasLockedRequests,
			HadMultipleClients:     result.HadMultipleClients,
			LockExpiresAt:          result.LockExpiresAt.Format(time.RFC3339),
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "prolong-lock",
		Method:        http.MethodPut,
		Path:          "/v2/request-queues/{queueId}/requests/{reqId}/lock",
		Summary:       "Extend a request's lease",
		Tags:          []string{"Request Queues"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ProlongLockInput) (*struct{}, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}
		if err := svcs.RequestQueues.ProlongLock(ctx, queueID, input.RequestID, input.ClientKey, input.LockSecs); err != nil {
			return nil, translate(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "release-lock",
		Method:        http.MethodDelete,
		Path:          "/v2/request-queues/{queueId}/requests/{reqId}/lock",
		Summary:       "Release a request's lease early",
		Tags:          []string{"Request Queues"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ReleaseLockInput) (*struct{}, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}
		if err := svcs.RequestQueues.ReleaseLock(ctx, queueID, input.RequestID, input.ClientKey); err != nil {
			return nil, translate(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-request",
		Method:      http.MethodPut,
		Path:        "/v2/request-queues/{queueId}/requests/{reqId}",
		Summary:     "Update a request, optionally marking it handled",
		Tags:        []string{"Request Queues"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *UpdateRequestInput) (*struct{}, error) {
		principal, err := requirePrincipal(ctx)
		if err != nil {
			return nil, translate(err)
		}
		queueID, err := resolveQueueID(ctx, svcs, principal, input.QueueID)
		if err != nil {
			return nil, translate(err)
		}

		patch := queue.UpdatePatch{UserData: input.Body.UserData}
		if input.Body.Handled {
			now := time.Now()
			patch.HandledAt = &now
		}
		if input.Body.RetryCount != nil {
			patch.RetryCount = input.Body.RetryCount
		}
		if input.Body.ErrorMessages != nil {
			patch.ErrorMessages = input.Body.ErrorMessages
		}

		if err := svcs.RequestQueues.UpdateRequest(ctx, queueID, input.RequestID, patch, input.ClientKey); err != nil {
			return nil, translate(err)
		}
		return nil, nil
	})
}

// resolveQueueID resolves the reserved "default" alias in a path
// parameter to principal's own concrete request queue id.
func resolveQueueID(ctx context.Context, svcs *Services, principal *auth.Principal, raw string) (string, error) {
	return resolveStorageID(ctx, raw, principal, func(ctx context.Context, principalID string) (string, error) {
		q, err := svcs.RequestQueues.ResolveDefault(ctx, principalID)
		if err != nil {
			return "", err
		}
		return q.ID, nil
	})
}
