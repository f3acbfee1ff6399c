package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/journal"
	"github.com/JonMunkholm/auditdash/internal/logging"
	"github.com/JonMunkholm/auditdash/internal/sheets"
)

// maxJSONBody bounds API request bodies other than uploads.
const maxJSONBody = 1 << 20

type sourceRequest struct {
	Source string `json:"source"`
}

type spreadsheetRequest struct {
	URL string `json:"url"`
}

type worksheetRequest struct {
	Name string `json:"name"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

// WorksheetResponse reports whether selecting a worksheet reloaded the data.
type WorksheetResponse struct {
	Reloaded bool          `json:"reloaded"`
	State    core.Snapshot `json:"state"`
}

// DecisionResponse is returned by the decision endpoint. A failed write-back
// still returns 200 with Saved false and a Warning.
type DecisionResponse struct {
	Index    int            `json:"index"`
	Decision core.Decision  `json:"decision"`
	Progress core.Progress  `json:"progress"`
	Fraction float64        `json:"fraction"`
	Writable bool           `json:"writable"`
	Saved    bool           `json:"saved"`
	Warning  *ErrorResponse `json:"warning,omitempty"`
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: body: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("invalid request")

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseIndex reads the {index} route parameter.
func parseIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrIndexOutOfRange, raw)
	}
	return index, nil
}

// readUpload extracts the "file" part of a multipart upload, enforcing the
// configured size limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return "", nil, fmt.Errorf("%w: file too large (limit %d bytes)", core.ErrMalformedInput, maxSize)
		}
		return "", nil, fmt.Errorf("%w: no file provided", core.ErrMalformedInput)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: no file provided", core.ErrMalformedInput)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

// loadUpload parses an upload into the session while holding an import slot.
func (s *Server) loadUpload(ctx context.Context, e *sessionEntry, name string, data []byte) error {
	return s.imports.Do(ctx, func() error {
		return e.session.LoadFile(ctx, name, data)
	})
}

// handleState returns the caller's session snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var snap core.Snapshot
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		snap = e.session.Snapshot()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// handleSelectSource switches between file and sheet mode.
func (s *Server) handleSelectSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	kind, err := core.ParseSourceKind(req.Source)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var snap core.Snapshot
	err = s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		if err := e.session.SelectSource(ctx, kind); err != nil {
			return err
		}
		snap = e.session.Snapshot()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// handleUpload replaces the session's dataset with an uploaded file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var snap core.Snapshot
	err = s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		if err := s.loadUpload(ctx, e, name, data); err != nil {
			return err
		}
		snap = e.session.Snapshot()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("file uploaded",
		"file", name,
		"bytes", len(data),
		"records", snap.Progress.Total,
	)
	writeJSON(w, snap)
}

// handleOpenSpreadsheet opens a spreadsheet by URL or id and lists its
// worksheets.
func (s *Server) handleOpenSpreadsheet(w http.ResponseWriter, r *http.Request) {
	var req spreadsheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := sheets.ParseSpreadsheetID(req.URL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var snap core.Snapshot
	err = s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		if _, err := e.session.OpenSpreadsheet(ctx, id); err != nil {
			return err
		}
		snap = e.session.Snapshot()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// handleSelectWorksheet binds the session to a worksheet of the open
// spreadsheet. Selecting the bound worksheet again does not reload.
func (s *Server) handleSelectWorksheet(w http.ResponseWriter, r *http.Request) {
	var req worksheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	var resp WorksheetResponse
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		reloaded, err := e.session.SelectWorksheet(ctx, req.Name)
		if err != nil {
			return err
		}
		resp = WorksheetResponse{Reloaded: reloaded, State: e.session.Snapshot()}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

// handleDecide records a decision for one record.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	decision, err := core.ParseDecision(req.Decision)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var resp DecisionResponse
	err = s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		progress, err := e.session.Decide(ctx, index, decision)
		if err != nil && !core.IsWarning(err) {
			return err
		}
		writable := e.session.Binding().Writable()
		resp = DecisionResponse{
			Index:    index,
			Decision: decision,
			Progress: progress,
			Fraction: progress.Fraction(),
			Writable: writable,
			Saved:    writable && err == nil,
		}
		if err != nil {
			warning := newErrorResponse(core.MapError(err))
			resp.Warning = &warning
			logging.FromContext(ctx).Warn("decision kept without write-back",
				"index", index,
				"error", err,
			)
		}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

// handleReset clears the session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var snap core.Snapshot
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		e.session.Reset(ctx)
		snap = e.session.Snapshot()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// handleExportCSV downloads the dataset as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, core.ExportCSVFilename, core.ExportCSVMIME, (*core.Session).ExportCSV)
}

// handleExportXLSX downloads the dataset as a workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, core.ExportXLSXFilename, core.ExportXLSXMIME, (*core.Session).ExportXLSX)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, filename, mime string, encode func(*core.Session) ([]byte, error)) {
	var data []byte
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		var err error
		data, err = encode(e.session)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}

// activityQuery builds the journal query for the caller's session.
func (s *Server) activityQuery(r *http.Request) (journal.Query, error) {
	q := journal.Query{
		Kind:   core.EventKind(r.URL.Query().Get("kind")),
		Limit:  parseIntParam(r, "limit", journal.DefaultLimit),
		Offset: parseIntParam(r, "offset", 0),
	}
	err := s.withSession(r, func(ctx context.Context, e *sessionEntry) error {
		q.SessionID = e.session.ID()
		return nil
	})
	return q, err
}

// handleActivity lists the caller's recent journal events, newest first.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q, err := s.activityQuery(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	events := []core.Event{}
	if s.activity != nil {
		events, err = s.activity.Recent(r.Context(), q)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	writeJSON(w, map[string]any{"events": events})
}

// handleActivityExport downloads the caller's journal events as CSV.
func (s *Server) handleActivityExport(w http.ResponseWriter, r *http.Request) {
	q, err := s.activityQuery(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("limit") == "" {
		q.Limit = journal.MaxLimit
	}

	var events []core.Event
	if s.activity != nil {
		events, err = s.activity.Recent(r.Context(), q)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, journal.ExportFilename))
	if err := journal.WriteCSV(w, events); err != nil {
		logging.FromContext(r.Context()).Warn("activity export failed", "error", err)
	}
}

// handleImportStatus returns the current state of the import limiter.
// Used for monitoring and to check if the system can accept more uploads.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.imports.Status())
}
