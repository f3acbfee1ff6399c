package core

import (
	"context"
	"fmt"
	"sync"
)

// fakeGateway is an in-memory SheetGateway. Each worksheet is stored as raw
// rows (header first) so every ReadAll builds a fresh dataset.
type fakeGateway struct {
	mu     sync.Mutex
	sheets map[string]map[string][][]string

	lists  int
	loads  map[string]int
	writes map[string]int

	listErr  error
	loadErr  error
	writeErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sheets: make(map[string]map[string][][]string),
		loads:  make(map[string]int),
		writes: make(map[string]int),
	}
}

func (g *fakeGateway) put(spreadsheetID, worksheet string, rows [][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sheets[spreadsheetID] == nil {
		g.sheets[spreadsheetID] = make(map[string][][]string)
	}
	g.sheets[spreadsheetID][worksheet] = rows
}

func (g *fakeGateway) rows(spreadsheetID, worksheet string) [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sheets[spreadsheetID][worksheet]
}

func (g *fakeGateway) loadCount(spreadsheetID, worksheet string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads[spreadsheetID+"/"+worksheet]
}

func (g *fakeGateway) writeCount(spreadsheetID, worksheet string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes[spreadsheetID+"/"+worksheet]
}

func (g *fakeGateway) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lists++
	if g.listErr != nil {
		return nil, g.listErr
	}
	book, ok := g.sheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("%w: spreadsheet %s", ErrNotFound, spreadsheetID)
	}
	names := make([]string, 0, len(book))
	for _, name := range []string{"Sheet1", "Sheet2", "Sheet3", "Q1", "Q2"} {
		if _, ok := book[name]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (g *fakeGateway) ReadAll(ctx context.Context, spreadsheetID, worksheet string) (*Dataset, error) {
	g.mu.Lock()
	g.loads[spreadsheetID+"/"+worksheet]++
	loadErr := g.loadErr
	rows, ok := g.sheets[spreadsheetID][worksheet]
	g.mu.Unlock()

	if loadErr != nil {
		return nil, loadErr
	}
	if !ok {
		return nil, fmt.Errorf("%w: worksheet %s", ErrNotFound, worksheet)
	}
	if len(rows) == 0 {
		return NewDataset([]string{DecisionColumn}, nil)
	}
	return NewDataset(rows[0], rows[1:])
}

func (g *fakeGateway) OverwriteAll(ctx context.Context, spreadsheetID, worksheet string, ds *Dataset) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes[spreadsheetID+"/"+worksheet]++
	if g.writeErr != nil {
		return g.writeErr
	}
	g.sheets[spreadsheetID][worksheet] = ds.Rows()
	return nil
}

// recordingJournal keeps every event it receives.
type recordingJournal struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (j *recordingJournal) Record(ctx context.Context, ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return j.err
}

func (j *recordingJournal) kinds() []EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]EventKind, len(j.events))
	for i, ev := range j.events {
		out[i] = ev.Kind
	}
	return out
}

// cachingGateway serves worksheet listings from a cache until invalidated.
type cachingGateway struct {
	*fakeGateway
	cached      map[string][]string
	invalidated int
}

func newCachingGateway(gw *fakeGateway) *cachingGateway {
	return &cachingGateway{fakeGateway: gw, cached: make(map[string][]string)}
}

func (g *cachingGateway) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	if names, ok := g.cached[spreadsheetID]; ok {
		return names, nil
	}
	names, err := g.fakeGateway.ListWorksheets(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	g.cached[spreadsheetID] = names
	return names, nil
}

func (g *cachingGateway) Invalidate(spreadsheetID string) {
	g.invalidated++
	delete(g.cached, spreadsheetID)
}
