// Package templates renders the dashboard HTML as templ components.
//
// The *_templ.go files are generated from the .templ sources with
// `templ generate`; edit the .templ files, not the generated code.
package templates

//go:generate templ generate

import (
	"strconv"

	"github.com/a-h/templ"
)

// TileFields is how many leading columns a tile shows.
const TileFields = 4

// Flash is a one-shot status message.
type Flash struct {
	Level   string
	Message string
	Action  string
	Code    string
}

// Tile is one record card.
type Tile struct {
	Index    int
	Title    string
	Fields   []string // aligned with DashboardView.Columns
	Decision string
}

// DashboardView is everything the dashboard renders.
type DashboardView struct {
	Flash *Flash

	Source        string // "", "file" or "sheet"
	SheetsEnabled bool
	SpreadsheetID string
	Worksheets    []string
	Worksheet     string
	FileName      string

	Loaded    bool
	Writable  bool
	Completed int
	Total     int
	Percent   int

	Columns []string
	Tiles   []Tile
}

// progressLabel names what is being audited.
func progressLabel(v DashboardView) string {
	if v.FileName != "" {
		return v.FileName
	}
	return v.Worksheet
}

func fieldAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func decisionURL(index int) templ.SafeURL {
	return templ.SafeURL("/ui/records/" + strconv.Itoa(index) + "/decision")
}
