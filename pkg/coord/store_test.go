package coord_test

import (
	"context"
	"testing"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord/coordtest"
)

func TestLockAcquireProlongRelease(t *testing.T) {
	ctx := context.Background()
	store := coordtest.NewMemoryStore()

	ok, err := store.AcquireLock(ctx, "queue:head:q1", "worker-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = store.AcquireLock(ctx, "queue:head:q1", "worker-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second acquire to fail while held, got ok=%v err=%v", ok, err)
	}

	if err := store.ProlongLock(ctx, "queue:head:q1", "worker-b", time.Minute); err != coord.ErrLockNotHeld {
		t.Fatalf("expected ErrLockNotHeld for non-owner prolong, got %v", err)
	}

	if err := store.ProlongLock(ctx, "queue:head:q1", "worker-a", time.Minute); err != nil {
		t.Fatalf("expected owner prolong to succeed: %v", err)
	}

	if err := store.ReleaseLock(ctx, "queue:head:q1", "worker-b"); err != coord.ErrLockNotHeld {
		t.Fatalf("expected ErrLockNotHeld for non-owner release, got %v", err)
	}

	if err := store.ReleaseLock(ctx, "queue:head:q1", "worker-a"); err != nil {
		t.Fatalf("expected owner release to succeed: %v", err)
	}

	ok, err = store.AcquireLock(ctx, "queue:head:q1", "worker-b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected re-acquire after release to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestSortedSetOrdering(t *testing.T) {
	ctx := context.Background()
	store := coordtest.NewMemoryStore()

	_ = store.ZAdd(ctx, "queue:order:q1", "req-3", 30)
	_ = store.ZAdd(ctx, "queue:order:q1", "req-1", -10)
	_ = store.ZAdd(ctx, "queue:order:q1", "req-2", 20)

	members, err := store.ZRangeByScore(ctx, "queue:order:q1", -1e18, 1e18, 0)
	if err != nil {
		t.Fatalf("zrangebyscore: %v", err)
	}
	want := []string{"req-1", "req-2", "req-3"}
	if len(members) != len(want) {
		t.Fatalf("expected %v, got %v", want, members)
	}
	for i, w := range want {
		if members[i] != w {
			t.Fatalf("expected %v, got %v", want, members)
		}
	}

	if err := store.ZRem(ctx, "queue:order:q1", "req-1"); err != nil {
		t.Fatalf("zrem: %v", err)
	}
	card, err := store.ZCard(ctx, "queue:order:q1")
	if err != nil || card != 2 {
		t.Fatalf("expected card 2, got %d err=%v", card, err)
	}
}

func TestPubSubFanout(t *testing.T) {
	ctx := context.Background()
	store := coordtest.NewMemoryStore()

	sub := store.Subscribe(ctx, "logs:run-1")
	defer sub.Close()

	if err := store.Publish(ctx, "logs:run-1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg) != "hello" {
			t.Fatalf("expected hello, got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestLogRingTrim(t *testing.T) {
	ctx := context.Background()
	store := coordtest.NewMemoryStore()

	for i := 0; i < 5; i++ {
		_ = store.LPush(ctx, "logs:run-1:ring", []byte{byte('0' + i)})
	}
	if err := store.LTrim(ctx, "logs:run-1:ring", 0, 2); err != nil {
		t.Fatalf("ltrim: %v", err)
	}
	vals, err := store.LRange(ctx, "logs:run-1:ring", 0, -1)
	if err != nil {
		t.Fatalf("lrange: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("expected 3 entries after trim, got %d", len(vals))
	}
}
