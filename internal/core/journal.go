package core

import (
	"context"
	"time"
)

// EventKind classifies a session transition recorded in the journal.
type EventKind string

const (
	EventSourceSelected  EventKind = "source_selected"
	EventFileLoaded      EventKind = "file_loaded"
	EventSheetOpened     EventKind = "sheet_opened"
	EventWorksheetLoaded EventKind = "worksheet_loaded"
	EventLoadFailed      EventKind = "load_failed"
	EventDecision        EventKind = "decision"
	EventWriteFailed     EventKind = "write_failed"
	EventReset           EventKind = "reset"
)

// Event is one journal entry. Fields that do not apply to Kind are zero.
type Event struct {
	ID            string     `json:"id,omitempty"`
	SessionID     string     `json:"sessionId"`
	Kind          EventKind  `json:"kind"`
	Source        SourceKind `json:"source,omitempty"`
	SpreadsheetID string     `json:"spreadsheetId,omitempty"`
	Selector      string     `json:"selector,omitempty"`
	RecordIndex   *int       `json:"recordIndex,omitempty"`
	Decision      Decision   `json:"decision,omitempty"`
	Completed     int        `json:"completed"`
	Total         int        `json:"total"`
	Error         string     `json:"error,omitempty"`
	IPAddress     string     `json:"ipAddress,omitempty"`
	UserAgent     string     `json:"userAgent,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Journal receives session events. Record must not block for long; a failed
// record never affects the session that emitted it.
type Journal interface {
	Record(ctx context.Context, ev Event) error
}

// NopJournal discards every event.
type NopJournal struct{}

func (NopJournal) Record(context.Context, Event) error { return nil }
