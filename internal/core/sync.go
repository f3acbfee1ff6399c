package core

import (
	"context"
	"fmt"
)

// Decide records a Yes/No decision for the record at index and, when the
// bound adapter is writable, writes the entire dataset back.
//
// A failed write-back does not roll the decision back. The returned
// Progress always reflects the in-memory dataset; the error (wrapping
// ErrWrite) reports that the remote copy is stale until the next successful
// write.
func (s *Session) Decide(ctx context.Context, index int, decision Decision) (Progress, error) {
	if s.dataset == nil {
		return Progress{}, ErrNoDataset
	}
	if decision != DecisionYes && decision != DecisionNo {
		return s.dataset.Progress(), fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if index < 0 || index >= s.dataset.Len() {
		return s.dataset.Progress(), fmt.Errorf("%w: %d (records: %d)", ErrIndexOutOfRange, index, s.dataset.Len())
	}

	s.dataset.setDecision(index, decision)
	progress := s.dataset.Progress()

	s.logger.Debug("decision recorded",
		"index", index,
		"decision", decision,
		"completed", progress.Completed,
		"total", progress.Total,
	)
	s.emit(ctx, Event{Kind: EventDecision, RecordIndex: &index, Decision: decision})

	if s.adapter == nil || !s.adapter.Writable() {
		return progress, nil
	}

	if err := s.adapter.WriteBack(ctx, s.dataset); err != nil {
		s.logger.Warn("write-back failed",
			"spreadsheet_id", s.binding.SpreadsheetID,
			"worksheet", s.binding.Worksheet,
			"index", index,
			"error", err,
		)
		s.emit(ctx, Event{
			Kind:        EventWriteFailed,
			RecordIndex: &index,
			Decision:    decision,
			Error:       err.Error(),
		})
		return progress, err
	}

	return progress, nil
}
