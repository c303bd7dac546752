package routes

import (
	"testing"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/queue"
)

func TestToRequestItemOmitsNilTimestamps(t *testing.T) {
	r := models.Request{ID: "r1", QueueID: "q1", UniqueKey: "k1", URL: "https://example.com"}
	item := toRequestItem(r)

	if item.HandledAt != nil {
		t.Errorf("expected nil HandledAt, got %v", *item.HandledAt)
	}
	if item.LockedUntil != nil {
		t.Errorf("expected nil LockedUntil, got %v", *item.LockedUntil)
	}
	if item.ID != "r1" || item.QueueID != "q1" || item.UniqueKey != "k1" {
		t.Errorf("unexpected field passthrough: %+v", item)
	}
}

func TestToRequestItemFormatsTimestampsAsRFC3339(t *testing.T) {
	handled := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	locked := handled.Add(time.Minute)
	lockedBy := "worker-1"
	r := models.Request{
		ID:          "r1",
		HandledAt:   &handled,
		LockedUntil: &locked,
		LockedBy:    &lockedBy,
	}

	item := toRequestItem(r)
	if item.HandledAt == nil || *item.HandledAt != handled.Format(time.RFC3339) {
		t.Errorf("HandledAt = %v, want %s", item.HandledAt, handled.Format(time.RFC3339))
	}
	if item.LockedUntil == nil || *item.LockedUntil != locked.Format(time.RFC3339) {
		t.Errorf("LockedUntil = %v, want %s", item.LockedUntil, locked.Format(time.RFC3339))
	}
	if item.LockedBy == nil || *item.LockedBy != lockedBy {
		t.Errorf("LockedBy = %v, want %s", item.LockedBy, lockedBy)
	}
}

func TestToAddResponseCopiesFields(t *testing.T) {
	result := &queue.AddResult{RequestID: "r1", WasAlreadyPresent: true, WasAlreadyHandled: false}
	resp := toAddResponse(result)
	if resp.RequestID != "r1" || !resp.WasAlreadyPresent || resp.WasAlreadyHandled {
		t.Errorf("unexpected response: %+v", resp)
	}
}
