package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RequestQueue is a deduplicated FIFO of web-request descriptors.
// Invariant: PendingRequestCount = TotalRequestCount - HandledRequestCount,
// maintained by the queue service inside the same transaction as the row
// mutation that triggers the change.
type RequestQueue struct {
	bun.BaseModel `bun:"table:request_queues,alias:rq"`

	ID   string  `bun:",pk"`
	Name *string `bun:",unique,nullzero"`

	TotalRequestCount   int64 `bun:",notnull,default:0"`
	HandledRequestCount int64 `bun:",notnull,default:0"`
	PendingRequestCount int64 `bun:",notnull,default:0"`

	// HadMultipleClients is sticky: once true, it never reverts.
	HadMultipleClients bool `bun:",notnull,default:false"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// Request is one queue element. (QueueID, UniqueKey) is globally unique
// (enforced by a migration-level constraint, composite unique tags below).
// OrderNo is signed so forefront insertions can sort strictly before any
// FIFO-inserted request via a negative value.
type Request struct {
	bun.BaseModel `bun:"table:requests,alias:req"`

	ID        string `bun:",pk"`
	QueueID   string `bun:",notnull,unique:requests_queue_unique_key"`
	UniqueKey string `bun:",notnull,unique:requests_queue_unique_key"`

	URL     string `bun:",notnull"`
	Method  string `bun:",notnull"`
	Payload []byte `bun:",nullzero"`

	HeadersJSON  []byte `bun:"headers_json,nullzero"`
	UserDataJSON []byte `bun:"user_data_json,nullzero"`

	RetryCount    int      `bun:",notnull,default:0"`
	NoRetry       bool     `bun:",notnull,default:false"`
	ErrorMessages []string `bun:",array,nullzero"`

	OrderNo int64 `bun:",notnull"`

	HandledAt   *time.Time `bun:",nullzero"`
	LockedUntil *time.Time `bun:",nullzero"`
	LockedBy    *string    `bun:",nullzero"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
