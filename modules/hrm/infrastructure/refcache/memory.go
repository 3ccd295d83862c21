package refcache

import (
	"context"
	"sync"
	"time"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

type memoryEntry struct {
	value   any
	expires time.Time
}

// Memory caches reference data in process for ttl. Errors are never cached.
type Memory struct {
	next Provider
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(next Provider, ttl time.Duration) *Memory {
	return &Memory{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) lookup(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) store(key string, v any) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: v, expires: m.now().Add(m.ttl)}
}

func memoize[T any](ctx context.Context, m *Memory, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := m.lookup(key); ok {
		return v.([]T), nil
	}
	out, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	m.store(key, out)
	return out, nil
}

func (m *Memory) Branches(ctx context.Context, campus string) ([]employee.Branch, error) {
	return memoize(ctx, m, branchesKey(campus), func(ctx context.Context) ([]employee.Branch, error) {
		return m.next.Branches(ctx, campus)
	})
}

func (m *Memory) Roles(ctx context.Context, campus string) ([]employee.Role, error) {
	return memoize(ctx, m, rolesKey(campus), func(ctx context.Context) ([]employee.Role, error) {
		return m.next.Roles(ctx, campus)
	})
}

func (m *Memory) Invalidate(ctx context.Context, campus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, branchesKey(campus))
	delete(m.entries, rolesKey(campus))
	return nil
}
