package schemas

import "encoding/json"

// RunRequest is the body of POST /v2/acts/:id/runs.
type RunRequest struct {
	Input        json.RawMessage `json:"input,omitempty" doc:"Raw input document handed to the Actor as the INPUT key-value record"`
	TimeoutSecs  int             `json:"timeout,omitempty" doc:"Overrides the Actor's default timeout, in seconds"`
	MemoryMbytes int             `json:"memory,omitempty" doc:"Overrides the Actor's default memory cap, in megabytes"`
}

// RunUpdateRequest is the body of PUT /v2/actor-runs/:id (trusted update).
type RunUpdateRequest struct {
	Status        string `json:"status" doc:"New run status"`
	StatusMessage string `json:"statusMessage,omitempty"`
	ExitCode      *int   `json:"exitCode,omitempty"`
}

// Run is the wire shape of a Run.
type Run struct {
	ID                     string  `json:"id"`
	ActorID                string  `json:"actId"`
	PrincipalID             string  `json:"principalId" doc:"Owning principal's id"`
	Status                 string  `json:"status"`
	StatusMessage          string  `json:"statusMessage,omitempty"`
	DefaultDatasetID       string  `json:"defaultDatasetId"`
	DefaultKeyValueStoreID string  `json:"defaultKeyValueStoreId"`
	DefaultRequestQueueID  string  `json:"defaultRequestQueueId"`
	TimeoutSecs            int     `json:"timeoutSecs"`
	MemoryMbytes           int     `json:"memoryMbytes"`
	ExitCode               *int    `json:"exitCode,omitempty"`
	StartedAt              *string `json:"startedAt,omitempty"`
	FinishedAt             *string `json:"finishedAt,omitempty"`
	CreatedAt              string  `json:"createdAt"`
}

// LogEntry is one line in a run's log response.
type LogEntry struct {
	Time string `json:"time"`
	Line string `json:"line"`
}
