package journal

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/auditdash/internal/core"
)

func TestWriteCSV(t *testing.T) {
	idx := 4
	events := []core.Event{
		{
			ID:          "e1",
			SessionID:   "s1",
			Kind:        core.EventDecision,
			Source:      core.SourceSheet,
			Selector:    "Q1, final",
			RecordIndex: &idx,
			Decision:    core.DecisionYes,
			Completed:   2,
			Total:       9,
			CreatedAt:   time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		},
		{ID: "e2", SessionID: "s1", Kind: core.EventReset},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, events))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "2025-06-01T08:30:00Z", rows[1][1])
	assert.Equal(t, "Q1, final", rows[1][6])
	assert.Equal(t, "4", rows[1][7])
	assert.Equal(t, "", rows[2][7])
}
