package sheets

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/auditdash/internal/core"
)

func TestParseSpreadsheetID(t *testing.T) {
	const id = "1AbCdEfGhIjKlMnOp_qrs-TUV"

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"edit url", "https://docs.google.com/spreadsheets/d/" + id + "/edit#gid=0", id, nil},
		{"url without path suffix", "https://docs.google.com/spreadsheets/d/" + id, id, nil},
		{"url without scheme", "docs.google.com/spreadsheets/d/" + id + "/edit", id, nil},
		{"bare id", id, id, nil},
		{"padded bare id", "  " + id + "\n", id, nil},
		{"empty", "", "", core.ErrNoSpreadsheet},
		{"other url", "https://example.com/files/123", "", core.ErrNotFound},
		{"too short", "abc", "", core.ErrNotFound},
		{"spaces", "not a sheet id", "", core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpreadsheetID(tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseSpreadsheetID(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpreadsheetID(%q) error = %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ParseSpreadsheetID(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
