package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/auditdash/internal/core"
)

func TestMemory_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, kind := range []core.EventKind{core.EventFileLoaded, core.EventDecision, core.EventDecision, core.EventReset} {
		require.NoError(t, m.Record(ctx, core.Event{
			SessionID: "s1",
			Kind:      kind,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, m.Record(ctx, core.Event{SessionID: "s2", Kind: core.EventDecision, CreatedAt: base}))

	events, err := m.Recent(ctx, Query{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, core.EventReset, events[0].Kind)
	assert.Equal(t, core.EventFileLoaded, events[3].Kind)
	for _, ev := range events {
		assert.NotEmpty(t, ev.ID)
	}

	decisions, err := m.Recent(ctx, Query{Kind: core.EventDecision})
	require.NoError(t, err)
	assert.Len(t, decisions, 3)

	page, err := m.Recent(ctx, Query{SessionID: "s1", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, core.EventDecision, page[0].Kind)

	windowed, err := m.Recent(ctx, Query{SessionID: "s1", Since: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)
}

func TestMemory_Capacity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	for i := 0; i < 5; i++ {
		idx := i
		require.NoError(t, m.Record(ctx, core.Event{SessionID: "s", Kind: core.EventDecision, RecordIndex: &idx}))
	}

	events, err := m.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 4, *events[0].RecordIndex)
	assert.Equal(t, 2, *events[2].RecordIndex)
}

func TestMemory_Prune(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	now := time.Now()
	require.NoError(t, m.Record(ctx, core.Event{Kind: core.EventReset, CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, m.Record(ctx, core.Event{Kind: core.EventReset, CreatedAt: now.Add(-time.Minute)}))

	n, err := m.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, _ := m.Recent(ctx, Query{})
	assert.Len(t, events, 1)
}
