package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewDataset_SynthesizesDecisionColumn(t *testing.T) {
	ds, err := NewDataset(
		[]string{"ID", "Name"},
		[][]string{{"1", "alpha"}, {"2", "beta"}},
	)
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}

	wantCols := []string{"ID", "Name", DecisionColumn}
	if !reflect.DeepEqual(ds.Columns, wantCols) {
		t.Errorf("Columns = %v, want %v", ds.Columns, wantCols)
	}
	if ds.DecisionIndex() != 2 {
		t.Errorf("DecisionIndex() = %d, want 2", ds.DecisionIndex())
	}
	for i, r := range ds.Records {
		if r.Index != i {
			t.Errorf("record %d Index = %d", i, r.Index)
		}
		if r.Decision != DecisionPending {
			t.Errorf("record %d Decision = %q, want Pending", i, r.Decision)
		}
		if r.Fields[2] != "Pending" {
			t.Errorf("record %d decision field = %q, want Pending", i, r.Fields[2])
		}
	}
}

func TestNewDataset_KeepsExistingDecisionColumn(t *testing.T) {
	ds, err := NewDataset(
		[]string{"ID", DecisionColumn, "Notes"},
		[][]string{
			{"1", "Yes", "a"},
			{"2", " no ", "b"},
			{"3", "", "c"},
			{"4", "maybe", "d"},
		},
	)
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}

	if ds.DecisionIndex() != 1 {
		t.Fatalf("DecisionIndex() = %d, want 1 (stored position)", ds.DecisionIndex())
	}
	if len(ds.Columns) != 3 {
		t.Fatalf("Columns = %v, want 3 columns", ds.Columns)
	}

	want := []Decision{DecisionYes, DecisionNo, DecisionPending, DecisionPending}
	for i, w := range want {
		if got := ds.Records[i].Decision; got != w {
			t.Errorf("record %d Decision = %q, want %q", i, got, w)
		}
		if got := ds.Records[i].Fields[1]; got != string(w) {
			t.Errorf("record %d decision field = %q, want %q", i, got, w)
		}
	}
}

func TestNewDataset_NormalizesShape(t *testing.T) {
	ds, err := NewDataset(
		[]string{"A", "", "A", " B "},
		[][]string{
			{"1"},
			{"1", "2", "3", "4"},
		},
	)
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}

	wantCols := []string{"A", "Unnamed: 1", "A.1", "B", DecisionColumn}
	if !reflect.DeepEqual(ds.Columns, wantCols) {
		t.Errorf("Columns = %v, want %v", ds.Columns, wantCols)
	}

	for i, r := range ds.Records {
		if len(r.Fields) != len(wantCols) {
			t.Errorf("record %d has %d fields, want %d", i, len(r.Fields), len(wantCols))
		}
	}
	if got := ds.Records[0].Fields[3]; got != "" {
		t.Errorf("padded field = %q, want empty", got)
	}
}

func TestNewDataset_KeepsCellsPastHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		wantCols []string
		wantRow  []string
	}{
		{
			name:     "extra column before synthesized decision",
			header:   []string{"ID", "Amount"},
			rows:     [][]string{{"1", "10", "keep-me"}, {"2", "20"}},
			wantCols: []string{"ID", "Amount", "Unnamed: 2", DecisionColumn},
			wantRow:  []string{"1", "10", "keep-me", "Pending"},
		},
		{
			name:     "extra column after existing decision",
			header:   []string{"ID", DecisionColumn},
			rows:     [][]string{{"1", "yes", "", "note"}},
			wantCols: []string{"ID", DecisionColumn, "Unnamed: 2", "Unnamed: 3"},
			wantRow:  []string{"1", "Yes", "", "note"},
		},
		{
			name:     "trailing blanks add no columns",
			header:   []string{"ID"},
			rows:     [][]string{{"1", "", " "}},
			wantCols: []string{"ID", DecisionColumn},
			wantRow:  []string{"1", "Pending"},
		},
		{
			name:     "extra name collides with header",
			header:   []string{"Unnamed: 1"},
			rows:     [][]string{{"a", "b"}},
			wantCols: []string{"Unnamed: 1", "Unnamed: 1.1", DecisionColumn},
			wantRow:  []string{"a", "b", "Pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDataset(tt.header, tt.rows)
			if err != nil {
				t.Fatalf("NewDataset() error = %v", err)
			}
			if !reflect.DeepEqual(ds.Columns, tt.wantCols) {
				t.Errorf("Columns = %v, want %v", ds.Columns, tt.wantCols)
			}
			if !reflect.DeepEqual(ds.Records[0].Fields, tt.wantRow) {
				t.Errorf("Fields = %q, want %q", ds.Records[0].Fields, tt.wantRow)
			}
			for i, r := range ds.Records {
				if len(r.Fields) != len(ds.Columns) {
					t.Errorf("record %d has %d fields, want %d", i, len(r.Fields), len(ds.Columns))
				}
			}
		})
	}
}

func TestNewDataset_NormalizesLineBreaks(t *testing.T) {
	ds, err := NewDataset([]string{"memo\r\nline"}, [][]string{{"a\r\nb"}, {"c\rd"}})
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}
	if ds.Columns[0] != "memo\nline" {
		t.Errorf("header = %q", ds.Columns[0])
	}
	if got := ds.Records[0].Fields[0]; got != "a\nb" {
		t.Errorf("CRLF field = %q, want %q", got, "a\nb")
	}
	if got := ds.Records[1].Fields[0]; got != "c\nd" {
		t.Errorf("CR field = %q, want %q", got, "c\nd")
	}
}

func TestNormalizeHeader_RepeatedDuplicates(t *testing.T) {
	got := normalizeHeader([]string{"x", "x", "x", "x.1"})
	want := []string{"x", "x.1", "x.2", "x.1.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeHeader() = %v, want %v", got, want)
	}
}

func TestNewDataset_EmptyHeader(t *testing.T) {
	_, err := NewDataset(nil, nil)
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
}

func TestDataset_NilReceiver(t *testing.T) {
	var ds *Dataset
	if _, ok := ds.Value(0, "ID"); ok {
		t.Error("Value on nil dataset should report false")
	}
	if row := ds.Row(0); row != nil {
		t.Errorf("Row on nil dataset = %v", row)
	}
	if rows := ds.Rows(); rows != nil {
		t.Errorf("Rows on nil dataset = %v", rows)
	}
	if ds.Len() != 0 {
		t.Error("Len on nil dataset should be 0")
	}
}

func TestDataset_ValueAndRow(t *testing.T) {
	ds, _ := NewDataset([]string{"ID", "Name"}, [][]string{{"7", "gamma"}})

	if v, ok := ds.Value(0, "Name"); !ok || v != "gamma" {
		t.Errorf("Value(0, Name) = %q, %v", v, ok)
	}
	if _, ok := ds.Value(0, "Missing"); ok {
		t.Error("Value for unknown column should report false")
	}
	if _, ok := ds.Value(5, "Name"); ok {
		t.Error("Value for unknown index should report false")
	}

	row := ds.Row(0)
	if row["ID"] != "7" || row[DecisionColumn] != "Pending" {
		t.Errorf("Row(0) = %v", row)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		progress Progress
		wantFrac float64
		wantPct  int
	}{
		{"empty dataset", Progress{Completed: 0, Total: 0}, 0, 0},
		{"partial", Progress{Completed: 4, Total: 10}, 0.4, 40},
		{"complete", Progress{Completed: 3, Total: 3}, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.progress.Fraction(); got != tt.wantFrac {
				t.Errorf("Fraction() = %v, want %v", got, tt.wantFrac)
			}
			if got := tt.progress.Percent(); got != tt.wantPct {
				t.Errorf("Percent() = %d, want %d", got, tt.wantPct)
			}
		})
	}
}

func TestDataset_ProgressCountsDecided(t *testing.T) {
	var nilDS *Dataset
	if got := nilDS.Progress(); got != (Progress{}) {
		t.Errorf("nil dataset Progress() = %+v", got)
	}

	rows := make([][]string, 10)
	for i := range rows {
		rows[i] = []string{"v"}
	}
	ds, _ := NewDataset([]string{"col"}, rows)
	for _, i := range []int{0, 3, 5, 9} {
		ds.setDecision(i, DecisionYes)
	}

	got := ds.Progress()
	if got.Completed != 4 || got.Total != 10 {
		t.Errorf("Progress() = %+v, want 4/10", got)
	}
	if got.Fraction() != 0.4 {
		t.Errorf("Fraction() = %v, want 0.4", got.Fraction())
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Decision
		wantErr bool
	}{
		{"Yes", DecisionYes, false},
		{" no", DecisionNo, false},
		{"YES", DecisionYes, false},
		{"Pending", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecision(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDecision) {
					t.Errorf("ParseDecision(%q) error = %v, want ErrInvalidDecision", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseDecision(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}
