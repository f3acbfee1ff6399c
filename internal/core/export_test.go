package core

import (
	"bytes"
	"strings"
	"testing"
)

func TestExportCSV_Layout(t *testing.T) {
	ds, err := NewDataset(
		[]string{"ID", "Name"},
		[][]string{{"1", "alpha"}, {"2", "beta"}, {"3", "gamma"}},
	)
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}
	ds.setDecision(0, DecisionYes)
	ds.setDecision(1, DecisionNo)

	out, err := ExportCSV(ds)
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	want := "ID,Name,Audit Result\n" +
		"1,alpha,Yes\n" +
		"2,beta,No\n" +
		"3,gamma,Pending\n"
	if string(out) != want {
		t.Errorf("ExportCSV() =\n%s\nwant\n%s", out, want)
	}
}

func TestExportCSV_KeepsStoredDecisionPosition(t *testing.T) {
	ds, _ := NewDataset(
		[]string{DecisionColumn, "ID"},
		[][]string{{"", "1"}},
	)

	out, err := ExportCSV(ds)
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if !strings.HasPrefix(string(out), "Audit Result,ID\nPending,1\n") {
		t.Errorf("ExportCSV() = %q", out)
	}
}

func TestExportCSV_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"plain", []string{"a", "b"}, [][]string{{"1", "2"}, {"3", "4"}}},
		{"quotes and commas", []string{"memo"}, [][]string{{`say "hi", please`}, {"line\nbreak"}}},
		{"no records", []string{"only"}, nil},
		{"crlf inside cell", []string{"memo"}, [][]string{{"a\r\nb"}, {"c\rd"}}},
		{"cells past header", []string{"id"}, [][]string{{"1", "orphan"}}},
		{"unicode", []string{"名前", "Ümlaut"}, [][]string{{"東京", "ß"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDataset(tt.header, tt.rows)
			if err != nil {
				t.Fatalf("NewDataset() error = %v", err)
			}
			if ds.Len() > 0 {
				ds.setDecision(0, DecisionNo)
			}

			out, err := ExportCSV(ds)
			if err != nil {
				t.Fatalf("ExportCSV() error = %v", err)
			}
			back, err := ParseCSV(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("ParseCSV() error = %v", err)
			}
			if !ds.Equal(back) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, ds)
			}
		})
	}
}

func TestExportCSV_ThreeRowScenario(t *testing.T) {
	ds, _ := NewDataset(
		[]string{"Vendor", DecisionColumn},
		[][]string{{"Acme", "Yes"}, {"Globex", "No"}, {"Initech", "Pending"}},
	)

	out, err := ExportCSV(ds)
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[0] != "Vendor,Audit Result" {
		t.Errorf("header = %q", lines[0])
	}
	for i, want := range []string{"Yes", "No", "Pending"} {
		if !strings.HasSuffix(lines[i+1], ","+want) {
			t.Errorf("line %d = %q, want suffix %q", i+1, lines[i+1], want)
		}
	}
}

func TestExportXLSX_RoundTrip(t *testing.T) {
	ds, _ := NewDataset(
		[]string{"ID", "Note"},
		[][]string{{"1", "first"}, {"2", ""}, {"3", "third"}},
	)
	ds.setDecision(2, DecisionYes)

	out, err := ExportXLSX(ds)
	if err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	back, err := Parse(ExportXLSXFilename, out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	back.Selector = ds.Selector
	if !ds.Equal(back) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, ds)
	}
}

func TestExport_NilDataset(t *testing.T) {
	if _, err := ExportCSV(nil); err != ErrNoDataset {
		t.Errorf("ExportCSV(nil) error = %v", err)
	}
	if _, err := ExportXLSX(nil); err != ErrNoDataset {
		t.Errorf("ExportXLSX(nil) error = %v", err)
	}
}
