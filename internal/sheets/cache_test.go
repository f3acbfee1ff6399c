package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/auditdash/internal/core"
)

type stubGateway struct {
	lists  int
	reads  int
	writes int
	names  []string
	err    error
}

func (s *stubGateway) ListWorksheets(ctx context.Context, id string) ([]string, error) {
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	return s.names, nil
}

func (s *stubGateway) ReadAll(ctx context.Context, id, ws string) (*core.Dataset, error) {
	s.reads++
	return core.NewDataset([]string{"a"}, nil)
}

func (s *stubGateway) OverwriteAll(ctx context.Context, id, ws string, ds *core.Dataset) error {
	s.writes++
	return nil
}

func TestCachedGateway_ListingIsReused(t *testing.T) {
	stub := &stubGateway{names: []string{"A", "B"}}
	g := NewCachedGateway(stub, time.Minute)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	names, err := g.ListWorksheets(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	names[0] = "mutated"
	again, err := g.ListWorksheets(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, again)
	assert.Equal(t, 1, stub.lists)

	now = now.Add(2 * time.Minute)
	_, err = g.ListWorksheets(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.lists, "expired listing is refetched")

	g.Invalidate("id1")
	_, err = g.ListWorksheets(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, 3, stub.lists)
}

func TestCachedGateway_ErrorsAreNotCached(t *testing.T) {
	stub := &stubGateway{err: errors.New("down")}
	g := NewCachedGateway(stub, 0)
	ctx := context.Background()

	_, err := g.ListWorksheets(ctx, "id1")
	require.Error(t, err)

	stub.err = nil
	stub.names = []string{"A"}
	names, err := g.ListWorksheets(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names)
}

func TestCachedGateway_PassesDataThrough(t *testing.T) {
	stub := &stubGateway{}
	g := NewCachedGateway(stub, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ds, err := g.ReadAll(ctx, "id1", "A")
		require.NoError(t, err)
		require.NoError(t, g.OverwriteAll(ctx, "id1", "A", ds))
	}
	assert.Equal(t, 2, stub.reads)
	assert.Equal(t, 2, stub.writes)
}
