package blobstore

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

type entry struct {
	data     []byte
	list     []string
	isList   bool
	deadline time.Time // zero means no expiry
}

// Memory is an in-process Store with Redis-like expiry semantics.
// Expired keys are dropped lazily on access.
type Memory struct {
	mu   sync.Mutex
	keys map[string]*entry
	now  func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces the wall clock, letting tests move time forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{keys: make(map[string]*entry), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry for key. Caller holds mu.
func (m *Memory) lookup(key string) (*entry, bool) {
	e, ok := m.keys[key]
	if !ok {
		return nil, false
	}
	if !e.deadline.IsZero() && !m.now().Before(e.deadline) {
		delete(m.keys, key)
		return nil, false
	}
	return e, true
}

func (m *Memory) Append(_ context.Context, key string, p []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		e = &entry{}
		m.keys[key] = e
	}
	if e.isList {
		return 0, errWrongType
	}
	e.data = append(e.data, p...)
	return int64(len(e.data)), nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(m.keys, key)
		return nil
	}
	e.deadline = m.now().Add(ttl)
	return nil
}

func (m *Memory) PushTail(_ context.Context, queue, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(queue)
	if !ok {
		e = &entry{isList: true}
		m.keys[queue] = e
	}
	if !e.isList {
		return errWrongType
	}
	e.list = append(e.list, member)
	return nil
}

func (m *Memory) PopHead(_ context.Context, queue string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(queue)
	if !ok {
		return "", ErrEmpty
	}
	if !e.isList {
		return "", errWrongType
	}
	member := e.list[0]
	e.list = e.list[1:]
	if len(e.list) == 0 {
		delete(m.keys, queue)
	}
	return member, nil
}

func (m *Memory) Len(_ context.Context, queue string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(queue)
	if !ok {
		return 0, nil
	}
	if !e.isList {
		return 0, errWrongType
	}
	return int64(len(e.list)), nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return nil, nil
	}
	if e.isList {
		return nil, errWrongType
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// Keys matches with path.Match, which covers the `prefix:*` patterns the
// relay uses.
func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for key := range m.keys {
		if _, ok := m.lookup(key); !ok {
			continue
		}
		matched, err := path.Match(pattern, key)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return Missing, nil
	}
	if e.deadline.IsZero() {
		return NoExpiry, nil
	}
	return e.deadline.Sub(m.now()), nil
}

func (m *Memory) Ping(context.Context) error { return nil }
