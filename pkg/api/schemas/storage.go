package schemas

import "encoding/json"

// PushItemsResponse reports the index range a push call landed at.
type PushItemsResponse struct {
	FirstIndex int64 `json:"firstIndex"`
	ItemCount  int   `json:"itemCount"`
}

// KeyValueListResponse is the body of GET /v2/key-value-stores/:id/keys.
type KeyValueListResponse struct {
	Keys                  []string `json:"keys"`
	IsTruncated           bool     `json:"isTruncated"`
	NextExclusiveStartKey string   `json:"nextExclusiveStartKey,omitempty"`
}

// AddRequestBody is the body of POST /v2/request-queues/:id/requests.
type AddRequestBody struct {
	UniqueKey string          `json:"uniqueKey,omitempty"`
	URL       string          `json:"url"`
	Method    string          `json:"method,omitempty" doc:"Defaults to GET"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Headers   json.RawMessage `json:"headers,omitempty"`
	UserData  json.RawMessage `json:"userData,omitempty"`
	NoRetry   bool            `json:"noRetry,omitempty"`
}

// AddRequestsBatchBody is the body of POST .../requests/batch.
type AddRequestsBatchBody struct {
	Requests []AddRequestBody `json:"requests"`
}

// AddRequestResponse mirrors queue.AddResult.
type AddRequestResponse struct {
	RequestID         string `json:"requestId"`
	WasAlreadyPresent bool   `json:"wasAlreadyPresent"`
	WasAlreadyHandled bool   `json:"wasAlreadyHandled"`
}

// AddRequestsBatchResponse mirrors queue.BatchResult.
type AddRequestsBatchResponse struct {
	Processed   []AddRequestResponse `json:"processed"`
	Unprocessed []AddRequestBody     `json:"unprocessed"`
}

// RequestItem is the wire shape of one queued request.
type RequestItem struct {
	ID            string          `json:"id"`
	QueueID       string          `json:"queueId"`
	UniqueKey     string          `json:"uniqueKey"`
	URL           string          `json:"url"`
	Method        string          `json:"method"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Headers       json.RawMessage `json:"headers,omitempty"`
	UserData      json.RawMessage `json:"userData,omitempty"`
	RetryCount    int             `json:"retryCount"`
	NoRetry       bool            `json:"noRetry"`
	ErrorMessages []string        `json:"errorMessages,omitempty"`
	HandledAt     *string         `json:"handledAt,omitempty"`
	OrderNo       int64           `json:"orderNo"`
	LockedUntil   *string         `json:"lockedUntil,omitempty"`
	LockedBy      *string         `json:"lockedBy,omitempty"`
}

// AcquireHeadResponse is the body of POST .../head/lock.
type AcquireHeadResponse struct {
	Items                  []RequestItem `json:"items"`
	QueueHasLockedRequests bool          `json:"queueHasLockedRequests"`
	HadMultipleClients     bool          `json:"hadMultipleClients"`
	LockExpiresAt          string        `json:"lockExpiresAt"`
}

// UpdateRequestBody is the body of PUT .../requests/:reqId.
type UpdateRequestBody struct {
	Handled       bool            `json:"handled,omitempty"`
	RetryCount    *int            `json:"retryCount,omitempty"`
	ErrorMessages []string        `json:"errorMessages,omitempty"`
	UserData      json.RawMessage `json:"userData,omitempty"`
}
