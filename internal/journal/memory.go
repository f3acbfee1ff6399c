package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// DefaultMemoryCapacity bounds a Memory journal created with capacity <= 0.
const DefaultMemoryCapacity = 5000

// Memory keeps the most recent events in process. It backs the activity
// view when no database is configured.
type Memory struct {
	mu       sync.Mutex
	events   []core.Event
	capacity int
}

// NewMemory returns a journal holding at most capacity events.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

// Record appends ev, dropping the oldest event when full.
func (m *Memory) Record(ctx context.Context, ev core.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) >= m.capacity {
		copy(m.events, m.events[1:])
		m.events = m.events[:len(m.events)-1]
	}
	m.events = append(m.events, ev)
	return nil
}

// Recent returns matching events, newest first.
func (m *Memory) Recent(ctx context.Context, q Query) ([]core.Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Event, 0)
	skipped := 0
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := m.events[i]
		if q.SessionID != "" && ev.SessionID != q.SessionID {
			continue
		}
		if q.Kind != "" && ev.Kind != q.Kind {
			continue
		}
		if !q.Since.IsZero() && ev.CreatedAt.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && ev.CreatedAt.After(q.Until) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Prune drops events older than maxAge.
func (m *Memory) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, ev := range m.events {
		if !ev.CreatedAt.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	removed := int64(len(m.events) - len(kept))
	m.events = kept
	return removed, nil
}
