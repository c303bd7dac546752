// Package coordtest provides an in-memory coord.Store fake so
// orchestrator, queue, and log-pipeline tests don't need a live Redis.
package coordtest

import (
	"context"
	"sync"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord"
)

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryStore is a single-process coord.Store backed by plain maps. It is
// not a Redis substitute for production use, only for tests that exercise
// orchestrator/queue/log-pipeline logic without network dependencies.
type MemoryStore struct {
	mu   sync.Mutex
	kv   map[string]entry
	sets map[string]map[string]float64
	lists map[string][][]byte
	subs map[string][]chan []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kv:    make(map[string]entry),
		sets:  make(map[string]map[string]float64),
		lists: make(map[string][][]byte),
		subs:  make(map[string][]chan []byte),
	}
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = m.newEntry(value, ttl)
	return nil
}

func (m *MemoryStore) newEntry(value []byte, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	return e
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.kv[key]
	if !ok || e.expired(time.Now()) {
		return nil, coord.ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.kv[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	m.kv[key] = m.newEntry(value, ttl)
	return true, nil
}

func (m *MemoryStore) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return m.SetNX(ctx, key, []byte(owner), ttl)
}

func (m *MemoryStore) ProlongLock(_ context.Context, key, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.kv[key]
	if !ok || e.expired(time.Now()) || string(e.value) != owner {
		return coord.ErrLockNotHeld
	}
	m.kv[key] = m.newEntry(e.value, ttl)
	return nil
}

func (m *MemoryStore) ReleaseLock(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.kv[key]
	if !ok || e.expired(time.Now()) || string(e.value) != owner {
		return coord.ErrLockNotHeld
	}
	delete(m.kv, key)
	return nil
}

func (m *MemoryStore) ZAdd(_ context.Context, setKey, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[setKey]
	if !ok {
		s = make(map[string]float64)
		m.sets[setKey] = s
	}
	s[member] = score
	return nil
}

func (m *MemoryStore) ZRangeByScore(_ context.Context, setKey string, min, max float64, limit int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[setKey]
	members := make([]string, 0, len(s))
	for member, score := range s {
		if score >= min && score <= max {
			members = append(members, member)
		}
	}
	sortByScore(members, s)
	if limit > 0 && int64(len(members)) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (m *MemoryStore) ZRem(_ context.Context, setKey, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[setKey], member)
	return nil
}

func (m *MemoryStore) ZCard(_ context.Context, setKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sets[setKey])), nil
}

func (m *MemoryStore) LPush(_ context.Context, listKey string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[listKey] = append([][]byte{value}, m.lists[listKey]...)
	return nil
}

func (m *MemoryStore) LTrim(_ context.Context, listKey string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[listKey]
	n := int64(len(l))
	if n == 0 {
		return nil
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start < 0 || start > stop {
		m.lists[listKey] = nil
		return nil
	}
	m.lists[listKey] = l[start : stop+1]
	return nil
}

func (m *MemoryStore) LRange(_ context.Context, listKey string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[listKey]
	n := int64(len(l))
	if n == 0 {
		return nil, nil
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start < 0 || start > stop {
		return nil, nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, l[start:stop+1])
	return out, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.kv[key]; ok {
		e.expires = time.Now().Add(ttl)
		m.kv[key] = e
	}
	return nil
}

func (m *MemoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	subs := append([]chan []byte(nil), m.subs[channel]...)
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *MemoryStore) Subscribe(_ context.Context, channel string) coord.Subscription {
	ch := make(chan []byte, 64)
	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()
	return &memorySubscription{store: m, channel: channel, ch: ch}
}

func (m *MemoryStore) Close() error { return nil }

func sortByScore(members []string, scores map[string]float64) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && scores[members[j-1]] > scores[members[j]]; j-- {
			members[j-1], members[j] = members[j], members[j-1]
		}
	}
}

type memorySubscription struct {
	store   *MemoryStore
	channel string
	ch      chan []byte
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	subs := s.store.subs[s.channel]
	for i, c := range subs {
		if c == s.ch {
			s.store.subs[s.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(s.ch)
	return nil
}

var _ coord.Store = (*MemoryStore)(nil)
