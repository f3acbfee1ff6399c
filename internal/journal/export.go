package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// ExportFilename is the download name for the activity export.
const ExportFilename = "audit_activity.csv"

var exportHeader = []string{
	"ID", "Timestamp", "Session", "Kind", "Source", "Spreadsheet", "Selector",
	"Record", "Decision", "Completed", "Total", "Error", "IP Address",
}

// WriteCSV writes events as CSV, one row per event, in the given order.
func WriteCSV(w io.Writer, events []core.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, ev := range events {
		record := ""
		if ev.RecordIndex != nil {
			record = strconv.Itoa(*ev.RecordIndex)
		}
		if err := cw.Write([]string{
			ev.ID,
			ev.CreatedAt.UTC().Format(time.RFC3339),
			ev.SessionID,
			string(ev.Kind),
			string(ev.Source),
			ev.SpreadsheetID,
			ev.Selector,
			record,
			string(ev.Decision),
			strconv.Itoa(ev.Completed),
			strconv.Itoa(ev.Total),
			ev.Error,
			ev.IPAddress,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
