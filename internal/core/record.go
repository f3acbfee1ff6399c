package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DecisionColumn is the header of the column holding each record's decision.
// It is appended as the last column when a source does not already carry it.
const DecisionColumn = "Audit Result"

// Decision is the audit outcome for one record.
type Decision string

const (
	DecisionPending Decision = "Pending"
	DecisionYes     Decision = "Yes"
	DecisionNo      Decision = "No"
)

// Valid reports whether d is one of the three known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionPending, DecisionYes, DecisionNo:
		return true
	}
	return false
}

// ParseDecision maps a user-supplied value to a final decision.
// Only "Yes" and "No" (case-insensitive) are accepted; Pending cannot be chosen.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return DecisionYes, nil
	case "no":
		return DecisionNo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

// normalizeDecision maps a stored cell value to a decision.
// Anything that is not yes/no loads as Pending.
func normalizeDecision(s string) Decision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return DecisionYes
	case "no":
		return DecisionNo
	}
	return DecisionPending
}

// Record is one reviewable row.
//
// Fields is aligned with the owning Dataset's Columns. The slot at the
// decision column always mirrors Decision.
type Record struct {
	Index    int
	Fields   []string
	Decision Decision
}

// Dataset is an ordered set of records sharing one column layout.
type Dataset struct {
	Columns []string
	Records []Record

	// Selector is the sub-source the dataset was loaded from
	// (worksheet name for sheets, file name for uploads).
	Selector string

	decisionCol int
}

// NewDataset builds a dataset from a header row and raw data rows.
//
// Header cells are normalized (blank → "Unnamed: N", duplicates suffixed).
// Rows carrying values past the header get extra "Unnamed: N" columns, so no
// cell is dropped; shorter rows are padded. The decision column is
// synthesized with Pending after the last column when absent. Line breaks
// inside cells are stored as "\n". Record indexes are assigned in row order
// starting at zero.
func NewDataset(header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
	}

	width := len(header)
	for _, row := range rows {
		width = max(width, usedWidth(row))
	}
	padded := make([]string, width)
	for i, h := range header {
		padded[i] = normalizeNewlines(h)
	}
	columns := normalizeHeader(padded)

	decisionCol := indexOf(columns, DecisionColumn)
	if decisionCol < 0 {
		columns = append(columns, DecisionColumn)
		decisionCol = len(columns) - 1
	}

	ds := &Dataset{
		Columns:     columns,
		Records:     make([]Record, 0, len(rows)),
		decisionCol: decisionCol,
	}

	for i, row := range rows {
		fields := make([]string, len(columns))
		for j, v := range row[:min(len(row), width)] {
			fields[j] = normalizeNewlines(v)
		}

		decision := normalizeDecision(fields[decisionCol])
		fields[decisionCol] = string(decision)

		ds.Records = append(ds.Records, Record{
			Index:    i,
			Fields:   fields,
			Decision: decision,
		})
	}

	return ds, nil
}

// usedWidth is the row length without trailing blank cells.
func usedWidth(row []string) int {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return n
}

// normalizeNewlines turns CRLF and lone CR into LF so cell values survive a
// CSV write and read unchanged.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// normalizeHeader trims header cells, names blank cells by position and
// de-duplicates repeated names with numeric suffixes.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = base + "." + strconv.Itoa(suffix[base])
			}
		}
		used[name] = true
		columns[i] = name
	}

	return columns
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// DecisionIndex returns the position of the decision column.
func (d *Dataset) DecisionIndex() int {
	return d.decisionCol
}

// Value returns the value of column col for the record at index.
func (d *Dataset) Value(index int, col string) (string, bool) {
	if d == nil || index < 0 || index >= len(d.Records) {
		return "", false
	}
	c := indexOf(d.Columns, col)
	if c < 0 {
		return "", false
	}
	return d.Records[index].Fields[c], true
}

// Row returns the record's fields keyed by column name.
func (d *Dataset) Row(index int) map[string]string {
	if d == nil || index < 0 || index >= len(d.Records) {
		return nil
	}
	out := make(map[string]string, len(d.Columns))
	for c, name := range d.Columns {
		out[name] = d.Records[index].Fields[c]
	}
	return out
}

// Rows returns the header followed by every record's fields, in order.
func (d *Dataset) Rows() [][]string {
	if d == nil {
		return nil
	}
	out := make([][]string, 0, len(d.Records)+1)
	out = append(out, append([]string(nil), d.Columns...))
	for _, r := range d.Records {
		out = append(out, append([]string(nil), r.Fields...))
	}
	return out
}

// setDecision updates a record's decision and its mirrored field slot.
func (d *Dataset) setDecision(index int, decision Decision) {
	r := &d.Records[index]
	r.Decision = decision
	r.Fields[d.decisionCol] = string(decision)
}

// Progress reports how many records carry a non-Pending decision.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Fraction returns Completed/Total, or 0 for an empty dataset.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Percent returns the progress as a whole percentage (0-100).
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Completed * 100) / p.Total
}

// Progress counts the decided records in d.
func (d *Dataset) Progress() Progress {
	if d == nil {
		return Progress{}
	}
	p := Progress{Total: len(d.Records)}
	for _, r := range d.Records {
		if r.Decision != DecisionPending {
			p.Completed++
		}
	}
	return p
}

// Equal reports whether two datasets have the same columns, record order,
// field values and decisions.
func (d *Dataset) Equal(other *Dataset) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Columns) != len(other.Columns) || len(d.Records) != len(other.Records) {
		return false
	}
	for i := range d.Columns {
		if d.Columns[i] != other.Columns[i] {
			return false
		}
	}
	for i := range d.Records {
		a, b := d.Records[i], other.Records[i]
		if a.Index != b.Index || a.Decision != b.Decision || len(a.Fields) != len(b.Fields) {
			return false
		}
		for j := range a.Fields {
			if a.Fields[j] != b.Fields[j] {
				return false
			}
		}
	}
	return true
}
