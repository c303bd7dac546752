package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RunStatus is the run lifecycle state.
type RunStatus string

const (
	RunStatusReady     RunStatus = "READY"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusTimedOut  RunStatus = "TIMED-OUT"
	RunStatusAborted   RunStatus = "ABORTED"
)

// IsTerminal reports whether s is one from which no further automatic
// transition occurs without an explicit resurrect.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusTimedOut, RunStatusAborted:
		return true
	default:
		return false
	}
}

// Run is one execution attempt of an Actor. ActorID is deliberately not a
// foreign key: runs retain a possibly-dangling actorId reference after
// the owning actor is deleted, for audit.
type Run struct {
	bun.BaseModel `bun:"table:runs,alias:r"`

	ID            string `bun:",pk"`
	ActorID       string `bun:",notnull"`
	PrincipalID   string `bun:",notnull"`
	Status        RunStatus `bun:",notnull"`
	StatusMessage string    `bun:",nullzero"`

	DefaultDatasetID       string `bun:",notnull"`
	DefaultKeyValueStoreID string `bun:",notnull"`
	DefaultRequestQueueID  string `bun:",notnull"`

	TimeoutSecs  int  `bun:",notnull"`
	MemoryMbytes int  `bun:",notnull"`
	ExitCode     *int `bun:",nullzero"`

	StartedAt  *time.Time `bun:",nullzero"`
	FinishedAt *time.Time `bun:",nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
