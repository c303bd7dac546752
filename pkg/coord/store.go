// Package coord provides the coordination-store contract the run
// orchestrator and request-queue engine are built on: lease locks,
// ordered sets, and pub/sub fan-out, all backed by the same Redis/Valkey
// connection.
package coord

import (
	"context"
	"time"
)

// Store is the full coordination-store contract. RedisStore is the only
// production implementation; an in-memory fake backs unit tests.
type Store interface {
	// Set stores a value with the given key and TTL. TTL of 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Idempotent.
	Delete(ctx context.Context, key string) error

	// SetNX sets a value only if the key is absent. Returns whether it was set.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	LockStore
	QueueStore
	ListStore
	PubSubStore

	// Close releases the underlying connection.
	Close() error
}

// LockStore provides lease-based mutual exclusion: a lock is an opaque
// owner token written against a key with a TTL, released or extended only
// by the holder that set it. Used for the request queue's per-request lease
// locks.
type LockStore interface {
	// AcquireLock claims key for owner if unclaimed or expired. Returns
	// false (no error) if another owner currently holds it.
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// ProlongLock extends the TTL of a lock only if owner still holds it.
	// Returns ErrLockNotHeld if owner is not the current holder.
	ProlongLock(ctx context.Context, key, owner string, ttl time.Duration) error

	// ReleaseLock releases a lock only if owner still holds it. Returns
	// ErrLockNotHeld if owner is not the current holder.
	ReleaseLock(ctx context.Context, key, owner string) error
}

// QueueStore exposes sorted-set operations. The request queue uses ZAdd and
// ZRem to mirror each pending request with its orderNo as score; head reads
// go to the metadata store, not to this set.
type QueueStore interface {
	// ZAdd inserts or updates member in setKey with the given score.
	ZAdd(ctx context.Context, setKey, member string, score float64) error

	// ZRangeByScore returns members scored within [min, max], ascending,
	// capped at limit (0 means unlimited).
	ZRangeByScore(ctx context.Context, setKey string, min, max float64, limit int64) ([]string, error)

	// ZRem removes member from setKey.
	ZRem(ctx context.Context, setKey, member string) error

	// ZCard returns the number of members in setKey.
	ZCard(ctx context.Context, setKey string) (int64, error)
}

// ListStore exposes capped-list operations the log pipeline uses for its
// per-run ring buffer.
type ListStore interface {
	// LPush prepends value to listKey.
	LPush(ctx context.Context, listKey string, value []byte) error

	// LTrim keeps only elements within [start, stop] (inclusive, 0-indexed).
	LTrim(ctx context.Context, listKey string, start, stop int64) error

	// LRange returns elements within [start, stop].
	LRange(ctx context.Context, listKey string, start, stop int64) ([][]byte, error)

	// Expire sets a TTL on key, refreshing any existing one.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// PubSubStore exposes channel fan-out the log pipeline and run-dispatch
// notifier use to push live updates to subscribers without polling.
type PubSubStore interface {
	// Publish broadcasts payload to channel. No-op if there are no subscribers.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a subscription to channel. Callers must Close it.
	Subscribe(ctx context.Context, channel string) Subscription
}

// Subscription is a live channel subscription.
type Subscription interface {
	// Messages delivers published payloads until the subscription is closed.
	Messages() <-chan []byte

	// Close ends the subscription and releases its resources.
	Close() error
}
