package web

// handlers_ui.go serves the dashboard and its form posts.
//
// Every form post runs one session action, stores the outcome as a flash and
// redirects back to the dashboard (post/redirect/get), so a browser refresh
// never repeats an action.

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/logging"
	"github.com/JonMunkholm/auditdash/internal/sheets"
	"github.com/JonMunkholm/auditdash/internal/web/templates"
)

// handleDashboard renders the audit page for the caller's session.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var view templates.DashboardView
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		view = buildDashboardView(e.session.Snapshot(), e.takeFlash())
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Dashboard(view).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// buildDashboardView converts a snapshot into template data.
func buildDashboardView(snap core.Snapshot, f *flash) templates.DashboardView {
	view := templates.DashboardView{
		Source:        string(snap.Source),
		SheetsEnabled: snap.SheetsEnabled,
		SpreadsheetID: snap.SpreadsheetID,
		Worksheets:    snap.Worksheets,
		Worksheet:     snap.Binding.Worksheet,
		FileName:      snap.Binding.FileName,
		Loaded:        snap.State == core.StateLoaded,
		Writable:      snap.Writable,
		Completed:     snap.Progress.Completed,
		Total:         snap.Progress.Total,
		Percent:       snap.Progress.Percent(),
	}
	if f != nil {
		view.Flash = &templates.Flash{
			Level:   f.Level,
			Message: f.Message,
			Action:  f.Action,
			Code:    f.Code,
		}
	}

	shown := min(templates.TileFields, len(snap.Columns))
	view.Columns = snap.Columns[:shown]
	view.Tiles = make([]templates.Tile, len(snap.Records))
	for i, rec := range snap.Records {
		view.Tiles[i] = templates.Tile{
			Index:    rec.Index,
			Title:    fmt.Sprintf("Row %d", rec.Index+1),
			Fields:   rec.Fields[:shown],
			Decision: string(rec.Decision),
		}
	}
	return view
}

// uiAction runs fn under the session lock and redirects to the dashboard with
// a flash describing the outcome. fn returns the success message, if any.
func (s *Server) uiAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, e *sessionEntry) (string, error)) {
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		success, err := fn(ctx, e)
		switch {
		case err == nil:
			if success != "" {
				e.setFlash(flash{Level: "success", Message: success})
			}
		case core.IsWarning(err):
			logging.FromContext(ctx).Warn("form action completed with warning",
				"path", r.URL.Path,
				"error", err,
			)
			e.setFlash(errorFlash("warning", err))
		default:
			logging.FromContext(ctx).Warn("form action failed",
				"path", r.URL.Path,
				"error", err,
				"code", core.MapError(err).Code,
			)
			e.setFlash(errorFlash("error", err))
		}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func errorFlash(level string, err error) flash {
	msg := core.MapError(err)
	return flash{Level: level, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// handleUISource switches the data source.
func (s *Server) handleUISource(w http.ResponseWriter, r *http.Request) {
	s.uiAction(w, r, func(ctx context.Context, e *sessionEntry) (string, error) {
		kind, err := core.ParseSourceKind(r.FormValue("source"))
		if err != nil {
			return "", fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return "", e.session.SelectSource(ctx, kind)
	})
}

// handleUIUpload loads an uploaded file.
func (s *Server) handleUIUpload(w http.ResponseWriter, r *http.Request) {
	name, data, readErr := s.readUpload(w, r)
	s.uiAction(w, r, func(ctx context.Context, e *sessionEntry) (string, error) {
		if readErr != nil {
			return "", readErr
		}
		if err := s.loadUpload(ctx, e, name, data); err != nil {
			return "", err
		}
		return fmt.Sprintf("Loaded %s (%d records)", name, e.session.Progress().Total), nil
	})
}

// handleUISpreadsheet opens a spreadsheet by URL.
func (s *Server) handleUISpreadsheet(w http.ResponseWriter, r *http.Request) {
	s.uiAction(w, r, func(ctx context.Context, e *sessionEntry) (string, error) {
		id, err := sheets.ParseSpreadsheetID(r.FormValue("url"))
		if err != nil {
			return "", err
		}
		names, err := e.session.OpenSpreadsheet(ctx, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Found %d worksheets", len(names)), nil
	})
}

// handleUIWorksheet selects a worksheet.
func (s *Server) handleUIWorksheet(w http.ResponseWriter, r *http.Request) {
	s.uiAction(w, r, func(ctx context.Context, e *sessionEntry) (string, error) {
		name := r.FormValue("worksheet")
		reloaded, err := e.session.SelectWorksheet(ctx, name)
		if err != nil || !reloaded {
			return "", err
		}
		return fmt.Sprintf("Loaded worksheet %s (%d records)", name, e.session.Progress().Total), nil
	})
}

// handleUIDecision records a Yes/No decision.
func (s *Server) handleUIDecision(w http.ResponseWriter, r *http.Request) {
	s.uiAction(w, r, func(ctx context.Context, e *sessionEntry) (string, error) {
		index, err := parseIndex(r)
		if err != nil {
			return "", err
		}
		decision, err := core.ParseDecision(r.FormValue("decision"))
		if err != nil {
			return "", err
		}
		_, err = e.session.Decide(ctx, index, decision)
		return "", err
	})
}

// handleUIReset clears the session.
func (s *Server) handleUIReset(w http.ResponseWriter, r *http.Request) {
	s.uiAction(w, r, func(ctx context.Context, e *sessionEntry) (string, error) {
		e.session.Reset(ctx)
		return "Session cleared", nil
	})
}
