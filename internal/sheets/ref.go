package sheets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/JonMunkholm/auditdash/internal/core"
)

var (
	urlIDPattern  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// ParseSpreadsheetID extracts the spreadsheet id from a Google Sheets URL,
// or accepts a bare id.
//
//	https://docs.google.com/spreadsheets/d/1AbC.../edit#gid=0 -> 1AbC...
func ParseSpreadsheetID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", core.ErrNoSpreadsheet
	}

	if m := urlIDPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		return "", fmt.Errorf("%w: %q is not a spreadsheet URL", core.ErrNotFound, ref)
	}

	if bareIDPattern.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: invalid spreadsheet reference %q", core.ErrNotFound, ref)
}
