package logs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord/coordtest"
)

func TestAppendAndFetchPreservesOrder(t *testing.T) {
	svc := NewService(coordtest.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.Append(ctx, "run-1", fmt.Sprintf("line-%d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := svc.Fetch(ctx, "run-1", 0, 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("line-%d", i)
		if e.Line != want {
			t.Errorf("entries[%d].Line = %q, want %q", i, e.Line, want)
		}
	}
}

func TestAppendTrimsToCap(t *testing.T) {
	svc := NewService(coordtest.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < Cap+10; i++ {
		if err := svc.Append(ctx, "run-cap", fmt.Sprintf("line-%d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := svc.Fetch(ctx, "run-cap", 0, Cap+100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != Cap {
		t.Fatalf("expected ring trimmed to %d entries, got %d", Cap, len(entries))
	}
	if entries[0].Line != "line-10" {
		t.Errorf("expected oldest surviving line to be line-10, got %q", entries[0].Line)
	}
}

func TestSubscribeReplaysTrailingLinesThenLiveEntries(t *testing.T) {
	svc := NewService(coordtest.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < ReplayCount+5; i++ {
		if err := svc.Append(ctx, "run-sub", fmt.Sprintf("line-%d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	sub, err := svc.Subscribe(ctx, "run-sub")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if len(sub.Replay) != ReplayCount {
		t.Fatalf("expected replay of %d lines, got %d", ReplayCount, len(sub.Replay))
	}
	if sub.Replay[0].Line != "line-5" {
		t.Errorf("expected replay to start at line-5, got %q", sub.Replay[0].Line)
	}

	if err := svc.Append(ctx, "run-sub", "live-line"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	entry, ok := sub.Next(ctxTimeout)
	if !ok {
		t.Fatal("expected a live entry")
	}
	if entry.Line != "live-line" {
		t.Errorf("entry.Line = %q, want %q", entry.Line, "live-line")
	}
}
