package core

// session.go implements the audit session state machine.
//
// A Session is either Empty (no dataset) or Loaded (one dataset plus the
// binding it came from). Every transition that changes the source kind, the
// spreadsheet or the worksheet discards the dataset and rebuilds it from the
// adapter; datasets are never patched across a switch. Decisions mutate the
// loaded dataset in place (see sync.go).
//
// A Session is not safe for concurrent use. Callers serialize actions so that
// one action completes before the next begins.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// State is the coarse session state.
type State string

const (
	StateEmpty  State = "empty"
	StateLoaded State = "loaded"
)

// Binding records which adapter and sub-source produced the loaded dataset.
// It is either zero, file-bound, or fully sheet-bound (spreadsheet id and
// worksheet both set).
type Binding struct {
	Kind          SourceKind `json:"kind"`
	FileName      string     `json:"fileName,omitempty"`
	SpreadsheetID string     `json:"spreadsheetId,omitempty"`
	Worksheet     string     `json:"worksheet,omitempty"`
}

// Writable reports whether decisions under this binding are written back.
func (b Binding) Writable() bool {
	return b.Kind == SourceSheet
}

// Session owns the loaded dataset and its binding.
type Session struct {
	id      string
	gateway SheetGateway
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	kind       SourceKind
	sheet      *SheetAdapter
	worksheets []string

	adapter Adapter
	binding Binding
	dataset *Dataset
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSheetGateway enables Sheet mode through gateway.
func WithSheetGateway(gateway SheetGateway) SessionOption {
	return func(s *Session) { s.gateway = gateway }
}

// WithJournal sends session events to j.
func WithJournal(j Journal) SessionOption {
	return func(s *Session) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// NewSession creates an Empty session with no source selected.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		journal: NopJournal{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns Loaded when a dataset is present, Empty otherwise.
func (s *Session) State() State {
	if s.dataset == nil {
		return StateEmpty
	}
	return StateLoaded
}

// Kind returns the selected source kind, which may be set while Empty.
func (s *Session) Kind() SourceKind { return s.kind }

// Binding returns the binding of the loaded dataset (zero when Empty).
func (s *Session) Binding() Binding { return s.binding }

// Worksheets returns the listing of the open spreadsheet, if any.
func (s *Session) Worksheets() []string {
	return append([]string(nil), s.worksheets...)
}

// SpreadsheetID returns the id of the open spreadsheet, if any.
func (s *Session) SpreadsheetID() string {
	if s.sheet == nil {
		return ""
	}
	return s.sheet.SpreadsheetID()
}

// SheetsEnabled reports whether the session can open remote spreadsheets.
func (s *Session) SheetsEnabled() bool { return s.gateway != nil }

// Progress returns the decided/total counts of the loaded dataset.
func (s *Session) Progress() Progress { return s.dataset.Progress() }

// SelectSource switches the top-level source kind. Switching to a different
// kind discards all session state; selecting the current kind is a no-op.
func (s *Session) SelectSource(ctx context.Context, kind SourceKind) error {
	if kind != SourceFile && kind != SourceSheet {
		return fmt.Errorf("unknown source kind %q", kind)
	}
	if kind == s.kind {
		return nil
	}

	s.reset()
	s.kind = kind
	s.logger.Info("source selected", "source", kind)
	s.emit(ctx, Event{Kind: EventSourceSelected})
	return nil
}

// Reset returns the session to Empty and forgets the selected source.
func (s *Session) Reset(ctx context.Context) {
	s.reset()
	s.kind = SourceNone
	s.logger.Info("session reset")
	s.emit(ctx, Event{Kind: EventReset})
}

// reset discards the dataset, binding and any open spreadsheet.
func (s *Session) reset() {
	s.discard()
	s.sheet = nil
	s.worksheets = nil
}

// discard drops the loaded dataset and its binding.
func (s *Session) discard() {
	s.dataset = nil
	s.adapter = nil
	s.binding = Binding{}
}

// LoadFile replaces the session contents with an uploaded file. The current
// dataset is discarded before parsing, so a malformed file leaves the
// session Empty.
func (s *Session) LoadFile(ctx context.Context, name string, data []byte) error {
	if s.kind != SourceFile {
		if err := s.SelectSource(ctx, SourceFile); err != nil {
			return err
		}
	}
	s.discard()

	adapter := NewFileAdapter(name, data)
	ds, err := adapter.Load(ctx, name)
	if err != nil {
		s.logger.Warn("file load failed", "file", name, "error", err)
		s.emit(ctx, Event{Kind: EventLoadFailed, Selector: name, Error: err.Error()})
		return err
	}

	s.adapter = adapter
	s.dataset = ds
	s.binding = Binding{Kind: SourceFile, FileName: name}

	s.logger.Info("file loaded", "file", name, "records", ds.Len(), "columns", len(ds.Columns))
	s.emit(ctx, Event{Kind: EventFileLoaded, Selector: name})
	return nil
}

// OpenSpreadsheet resolves the spreadsheet to audit and returns its
// worksheet listing. Opening a different spreadsheet resets the session;
// reopening the current one only refreshes the listing. A spreadsheet that
// cannot be listed leaves the session untouched.
func (s *Session) OpenSpreadsheet(ctx context.Context, spreadsheetID string) ([]string, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: spreadsheet access is not configured", ErrSourceUnavailable)
	}
	if spreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}
	if s.kind != SourceSheet {
		if err := s.SelectSource(ctx, SourceSheet); err != nil {
			return nil, err
		}
	}

	adapter := s.sheet
	opened := adapter == nil || adapter.SpreadsheetID() != spreadsheetID
	if opened {
		adapter = NewSheetAdapter(s.gateway, spreadsheetID)
	}

	list := adapter.ListSelectable
	if !opened {
		list = adapter.RefreshSelectable
	}
	names, err := list(ctx)
	if err != nil {
		s.logger.Warn("worksheet listing failed", "spreadsheet_id", spreadsheetID, "error", err)
		s.emit(ctx, Event{Kind: EventLoadFailed, SpreadsheetID: spreadsheetID, Error: err.Error()})
		return nil, err
	}

	if opened {
		s.reset()
	}
	s.sheet = adapter
	s.worksheets = names

	if opened {
		s.logger.Info("spreadsheet opened", "spreadsheet_id", spreadsheetID, "worksheets", len(names))
		s.emit(ctx, Event{Kind: EventSheetOpened, SpreadsheetID: spreadsheetID})
	}
	return s.Worksheets(), nil
}

// SelectWorksheet binds the session to a worksheet of the open spreadsheet.
//
// Selecting the worksheet that is already bound is a no-op and returns
// false: an idle re-render must not reload or drop in-progress decisions.
// Any other name discards the current dataset and loads the worksheet; on
// failure the session is left Empty. A name missing from the known listing
// triggers one fresh listing; if it is still missing the call fails with
// ErrNotFound before anything is discarded.
func (s *Session) SelectWorksheet(ctx context.Context, name string) (bool, error) {
	if s.kind == SourceFile {
		return false, fmt.Errorf("%w: files have no worksheets", ErrWrongSource)
	}
	if s.sheet == nil {
		return false, ErrNoSpreadsheet
	}

	if s.dataset != nil &&
		s.binding.Kind == SourceSheet &&
		s.binding.SpreadsheetID == s.sheet.SpreadsheetID() &&
		s.binding.Worksheet == name {
		return false, nil
	}

	if len(s.worksheets) > 0 && indexOf(s.worksheets, name) < 0 {
		// The worksheet may have been added since the listing was taken.
		names, err := s.sheet.RefreshSelectable(ctx)
		if err != nil {
			return false, err
		}
		s.worksheets = names
		if indexOf(names, name) < 0 {
			return false, fmt.Errorf("%w: worksheet %q", ErrNotFound, name)
		}
	}

	s.discard()

	ds, err := s.sheet.Load(ctx, name)
	if err != nil {
		s.logger.Warn("worksheet load failed",
			"spreadsheet_id", s.sheet.SpreadsheetID(),
			"worksheet", name,
			"error", err,
		)
		s.emit(ctx, Event{
			Kind:          EventLoadFailed,
			SpreadsheetID: s.sheet.SpreadsheetID(),
			Selector:      name,
			Error:         err.Error(),
		})
		return false, err
	}

	s.adapter = s.sheet
	s.dataset = ds
	s.binding = Binding{
		Kind:          SourceSheet,
		SpreadsheetID: s.sheet.SpreadsheetID(),
		Worksheet:     name,
	}

	s.logger.Info("worksheet loaded",
		"spreadsheet_id", s.binding.SpreadsheetID,
		"worksheet", name,
		"records", ds.Len(),
	)
	s.emit(ctx, Event{Kind: EventWorksheetLoaded, Selector: name})
	return true, nil
}

// ExportCSV serializes the loaded dataset.
func (s *Session) ExportCSV() ([]byte, error) {
	if s.dataset == nil {
		return nil, ErrNoDataset
	}
	return ExportCSV(s.dataset)
}

// ExportXLSX serializes the loaded dataset as a workbook.
func (s *Session) ExportXLSX() ([]byte, error) {
	if s.dataset == nil {
		return nil, ErrNoDataset
	}
	return ExportXLSX(s.dataset)
}

// RecordView is a copy of one record for presentation.
type RecordView struct {
	Index    int      `json:"index"`
	Fields   []string `json:"fields"`
	Decision Decision `json:"decision"`
}

// Snapshot is a point-in-time copy of the session for presentation.
// It shares no memory with the session.
type Snapshot struct {
	ID            string       `json:"id"`
	State         State        `json:"state"`
	Source        SourceKind   `json:"source"`
	Binding       Binding      `json:"binding"`
	SpreadsheetID string       `json:"spreadsheetId,omitempty"`
	Worksheets    []string     `json:"worksheets,omitempty"`
	Writable      bool         `json:"writable"`
	SheetsEnabled bool         `json:"sheetsEnabled"`
	Columns       []string     `json:"columns,omitempty"`
	Records       []RecordView `json:"records,omitempty"`
	Progress      Progress     `json:"progress"`
	Fraction      float64      `json:"fraction"`
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		State:         s.State(),
		Source:        s.kind,
		Binding:       s.binding,
		SpreadsheetID: s.SpreadsheetID(),
		Worksheets:    s.Worksheets(),
		SheetsEnabled: s.SheetsEnabled(),
		Progress:      s.Progress(),
	}
	snap.Fraction = snap.Progress.Fraction()

	if s.dataset == nil {
		return snap
	}

	snap.Writable = s.adapter != nil && s.adapter.Writable()
	snap.Columns = append([]string(nil), s.dataset.Columns...)
	snap.Records = make([]RecordView, len(s.dataset.Records))
	for i, r := range s.dataset.Records {
		snap.Records[i] = RecordView{
			Index:    r.Index,
			Fields:   append([]string(nil), r.Fields...),
			Decision: r.Decision,
		}
	}
	return snap
}

// emit fills the common event fields and hands ev to the journal.
func (s *Session) emit(ctx context.Context, ev Event) {
	ev.SessionID = s.id
	ev.Source = s.kind
	if ev.SpreadsheetID == "" && s.sheet != nil {
		ev.SpreadsheetID = s.sheet.SpreadsheetID()
	}
	if ev.Selector == "" && s.dataset != nil {
		ev.Selector = s.dataset.Selector
	}
	p := s.dataset.Progress()
	ev.Completed, ev.Total = p.Completed, p.Total
	ev.IPAddress = IPAddressFromContext(ctx)
	ev.UserAgent = UserAgentFromContext(ctx)
	ev.CreatedAt = s.now().UTC()

	if err := s.journal.Record(ctx, ev); err != nil {
		s.logger.Warn("journal record failed", "kind", ev.Kind, "error", err)
	}
}
