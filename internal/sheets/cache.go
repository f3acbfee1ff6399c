package sheets

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// DefaultListingTTL is how long a worksheet listing is reused.
const DefaultListingTTL = time.Minute

type listing struct {
	names   []string
	fetched time.Time
}

// CachedGateway reuses worksheet listings for a short time. Reads and writes
// of worksheet data always go to the wrapped gateway.
type CachedGateway struct {
	next core.SheetGateway
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	listings map[string]listing
}

var (
	_ core.SheetGateway       = (*CachedGateway)(nil)
	_ core.ListingInvalidator = (*CachedGateway)(nil)
)

// NewCachedGateway wraps next. A ttl <= 0 uses DefaultListingTTL.
func NewCachedGateway(next core.SheetGateway, ttl time.Duration) *CachedGateway {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &CachedGateway{
		next:     next,
		ttl:      ttl,
		now:      time.Now,
		listings: make(map[string]listing),
	}
}

// ListWorksheets returns a cached listing when it is younger than the TTL.
func (g *CachedGateway) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	g.mu.Lock()
	l, ok := g.listings[spreadsheetID]
	g.mu.Unlock()
	if ok && g.now().Sub(l.fetched) < g.ttl {
		return append([]string(nil), l.names...), nil
	}

	names, err := g.next.ListWorksheets(ctx, spreadsheetID)
	if err != nil {
		g.Invalidate(spreadsheetID)
		return nil, err
	}

	g.mu.Lock()
	g.listings[spreadsheetID] = listing{names: append([]string(nil), names...), fetched: g.now()}
	g.mu.Unlock()
	return names, nil
}

func (g *CachedGateway) ReadAll(ctx context.Context, spreadsheetID, worksheet string) (*core.Dataset, error) {
	return g.next.ReadAll(ctx, spreadsheetID, worksheet)
}

func (g *CachedGateway) OverwriteAll(ctx context.Context, spreadsheetID, worksheet string, ds *core.Dataset) error {
	return g.next.OverwriteAll(ctx, spreadsheetID, worksheet, ds)
}

// Invalidate drops the cached listing for spreadsheetID.
func (g *CachedGateway) Invalidate(spreadsheetID string) {
	g.mu.Lock()
	delete(g.listings, spreadsheetID)
	g.mu.Unlock()
}
