package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/web/templates"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no dataset", core.ErrNoDataset, http.StatusConflict},
		{"no spreadsheet", core.ErrNoSpreadsheet, http.StatusConflict},
		{"wrong source", core.ErrWrongSource, http.StatusConflict},
		{"index", fmt.Errorf("%w: 7", core.ErrIndexOutOfRange), http.StatusNotFound},
		{"not found", &core.SourceError{Op: "load", Err: core.ErrNotFound}, http.StatusNotFound},
		{"invalid decision", core.ErrInvalidDecision, http.StatusBadRequest},
		{"bad request", fmt.Errorf("%w: body", errBadRequest), http.StatusBadRequest},
		{"malformed", fmt.Errorf("%w: invalid csv", core.ErrMalformedInput), http.StatusBadRequest},
		{"too large", fmt.Errorf("%w: file too large", core.ErrMalformedInput), http.StatusRequestEntityTooLarge},
		{"busy", core.ErrImportBusy, http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"auth", core.ErrAuth, http.StatusBadGateway},
		{"unavailable", core.ErrSourceUnavailable, http.StatusBadGateway},
		{"write", core.ErrWrite, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   bool
	}{
		{"api path", "/api/state", nil, true},
		{"accept header", "/", map[string]string{"Accept": "application/json"}, true},
		{"json body", "/ui/source", map[string]string{"Content-Type": "application/json"}, true},
		{"browser", "/", map[string]string{"Accept": "text/html"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, wantsJSON(r))
		})
	}
}

func TestRespondError_HTML(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/export/csv", nil)

	s.respondError(rec, r, core.ErrNoDataset)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "No data is loaded")
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestBuildDashboardView(t *testing.T) {
	snap := core.Snapshot{
		State:   core.StateLoaded,
		Source:  core.SourceSheet,
		Binding: core.Binding{Kind: core.SourceSheet, SpreadsheetID: "abc", Worksheet: "Q1"},
		Columns: []string{"A", "B", "C", "D", "E", core.DecisionColumn},
		Records: []core.RecordView{
			{Index: 0, Fields: []string{"1", "2", "3", "4", "5", "Yes"}, Decision: core.DecisionYes},
			{Index: 1, Fields: []string{"6", "7", "8", "9", "10", "Pending"}, Decision: core.DecisionPending},
		},
		Progress: core.Progress{Completed: 1, Total: 2},
		Writable: true,
	}

	view := buildDashboardView(snap, &flash{Level: "warning", Message: "stale"})

	assert.True(t, view.Loaded)
	assert.Equal(t, []string{"A", "B", "C", "D"}, view.Columns)
	assert.Len(t, view.Tiles, 2)
	assert.Equal(t, "Row 2", view.Tiles[1].Title)
	assert.Equal(t, []string{"6", "7", "8", "9"}, view.Tiles[1].Fields)
	assert.Equal(t, "Pending", view.Tiles[1].Decision)
	assert.Equal(t, 50, view.Percent)
	assert.Equal(t, "Q1", view.Worksheet)
	if assert.NotNil(t, view.Flash) {
		assert.Equal(t, "warning", view.Flash.Level)
	}
	assert.Equal(t, templates.TileFields, len(view.Columns))
}

func TestBuildDashboardView_FewColumns(t *testing.T) {
	snap := core.Snapshot{
		State:   core.StateLoaded,
		Columns: []string{"Name", core.DecisionColumn},
		Records: []core.RecordView{{Index: 0, Fields: []string{"x", "Pending"}, Decision: core.DecisionPending}},
	}

	view := buildDashboardView(snap, nil)
	assert.Equal(t, []string{"Name", core.DecisionColumn}, view.Columns)
	assert.Nil(t, view.Flash)
}
