// Package logs implements the per-run log pipeline: a
// capped ring buffer with a 24h TTL, plus live fan-out with a short
// replay window for subscribers that attach mid-run. Built on the same
// coordination store (pkg/coord) the queue engine uses for its locks,
// reusing its list and pub/sub primitives rather than a bespoke backend.
package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord"
)

const (
	// Cap is the maximum number of log lines retained per run.
	Cap = 1000

	// TTL is how long a run's log ring survives after its last write.
	TTL = 24 * time.Hour

	// ReplayCount is how many trailing lines a new Subscribe call replays
	// before switching to live delivery.
	ReplayCount = 50
)

// Entry is one log line plus the time it was appended.
type Entry struct {
	Time time.Time `json:"time"`
	Line string    `json:"line"`
}

// Service appends and reads per-run log rings.
type Service struct {
	coord coord.Store
}

func NewService(coord coord.Store) *Service {
	return &Service{coord: coord}
}

func ringKey(runID string) string {
	return fmt.Sprintf("run:%s:logs", runID)
}

func channelKey(runID string) string {
	return fmt.Sprintf("run:%s:logs:live", runID)
}

// Append adds line to runID's ring, trimming to Cap and refreshing the
// TTL, then publishes it to any live subscribers.
func (s *Service) Append(ctx context.Context, runID, line string) error {
	entry := Entry{Time: time.Now(), Line: line}
	payload, err := json.Marshal(entry)
	if err != nil {
		return apierr.New(apierr.CodeInternal, "failed to encode log entry", err)
	}

	key := ringKey(runID)
	if err := s.coord.LPush(ctx, key, payload); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to append log entry", err)
	}
	if err := s.coord.LTrim(ctx, key, 0, Cap-1); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to trim log ring", err)
	}
	if err := s.coord.Expire(ctx, key, TTL); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to refresh log ring ttl", err)
	}

	if err := s.coord.Publish(ctx, channelKey(runID), payload); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to publish log entry", err)
	}
	return nil
}

// Fetch returns up to limit entries starting at offset from the oldest
// end of the ring (offset 0 is the first line ever retained, not the
// most recent — LPush stores newest-first, so Fetch reverses the range).
func (s *Service) Fetch(ctx context.Context, runID string, offset, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = Cap
	}
	raw, err := s.coord.LRange(ctx, ringKey(runID), 0, Cap-1)
	if err != nil {
		return nil, apierr.New(apierr.CodeDependencyUnavailable, "failed to read log ring", err)
	}

	entries := make([]Entry, len(raw))
	for i, payload := range raw {
		var e Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, apierr.New(apierr.CodeInternal, "failed to decode log entry", err)
		}
		// raw is newest-first; reverse into chronological order.
		entries[len(raw)-1-i] = e
	}

	start := offset
	if start < 0 {
		start = 0
	}
	if start >= int64(len(entries)) {
		return nil, nil
	}
	end := start + limit
	if end > int64(len(entries)) {
		end = int64(len(entries))
	}
	return entries[start:end], nil
}

// Subscription delivers a short replay window followed by live entries.
type Subscription struct {
	Replay   []Entry
	messages <-chan []byte
	sub      coord.Subscription
}

// Next blocks for the next live entry after the replay window has been
// consumed by the caller, or returns false once the subscription closes.
func (sub *Subscription) Next(ctx context.Context) (Entry, bool) {
	select {
	case payload, ok := <-sub.messages:
		if !ok {
			return Entry{}, false
		}
		var e Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return Entry{}, false
		}
		return e, true
	case <-ctx.Done():
		return Entry{}, false
	}
}

// Close releases the underlying subscription.
func (sub *Subscription) Close() error {
	return sub.sub.Close()
}

// Subscribe opens a live log feed for runID, replaying up to ReplayCount
// trailing lines before the caller should start draining Next. The live
// registration happens before the replay snapshot is taken, so an Append
// landing in between is delivered twice (once in Replay, once live)
// rather than lost.
func (s *Service) Subscribe(ctx context.Context, runID string) (*Subscription, error) {
	sub := s.coord.Subscribe(ctx, channelKey(runID))

	all, err := s.Fetch(ctx, runID, 0, Cap)
	if err != nil {
		sub.Close()
		return nil, err
	}
	replay := all
	if len(all) > ReplayCount {
		replay = all[len(all)-ReplayCount:]
	}

	return &Subscription{Replay: replay, messages: sub.Messages(), sub: sub}, nil
}
