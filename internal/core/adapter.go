package core

import (
	"context"
	"errors"
	"fmt"
)

// SourceKind identifies the backend an adapter reads from.
type SourceKind string

const (
	SourceNone  SourceKind = ""
	SourceFile  SourceKind = "file"
	SourceSheet SourceKind = "sheet"
)

// ParseSourceKind maps a user-supplied value to a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceFile, SourceSheet:
		return SourceKind(s), nil
	}
	return SourceNone, fmt.Errorf("unknown source kind %q", s)
}

// Adapter is the uniform read/write contract over one dataset backend.
//
// Load must be idempotent: repeated calls with the same selector return an
// equivalent dataset, modulo upstream changes. WriteBack always replaces the
// whole destination with ds; it never patches.
type Adapter interface {
	Kind() SourceKind
	ListSelectable(ctx context.Context) ([]string, error)
	Load(ctx context.Context, selector string) (*Dataset, error)
	Writable() bool
	WriteBack(ctx context.Context, ds *Dataset) error
}

// SheetGateway performs the remote spreadsheet operations the core needs.
// Implementations map transport failures onto ErrSourceUnavailable, ErrAuth,
// ErrNotFound and ErrWrite.
type SheetGateway interface {
	ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error)
	ReadAll(ctx context.Context, spreadsheetID, worksheet string) (*Dataset, error)
	OverwriteAll(ctx context.Context, spreadsheetID, worksheet string, ds *Dataset) error
}

// FileAdapter serves a read-only snapshot of an uploaded file.
type FileAdapter struct {
	name string
	data []byte
}

// NewFileAdapter wraps the raw bytes of an uploaded file.
func NewFileAdapter(name string, data []byte) *FileAdapter {
	return &FileAdapter{name: name, data: data}
}

func (a *FileAdapter) Kind() SourceKind { return SourceFile }

// ListSelectable returns the file name as the only sub-source.
func (a *FileAdapter) ListSelectable(ctx context.Context) ([]string, error) {
	return []string{a.name}, nil
}

// Load parses the snapshot. The selector is ignored; a file has one table.
func (a *FileAdapter) Load(ctx context.Context, selector string) (*Dataset, error) {
	ds, err := Parse(a.name, a.data)
	if err != nil {
		return nil, sourceError("load", a.name, err)
	}
	return ds, nil
}

func (a *FileAdapter) Writable() bool { return false }

// WriteBack is a no-op: an upload has no destination.
func (a *FileAdapter) WriteBack(ctx context.Context, ds *Dataset) error {
	return nil
}

// ListingInvalidator is implemented by gateways that cache worksheet
// listings.
type ListingInvalidator interface {
	Invalidate(spreadsheetID string)
}

// SheetAdapter reads and writes worksheets of one remote spreadsheet.
type SheetAdapter struct {
	gateway       SheetGateway
	spreadsheetID string
}

// NewSheetAdapter binds a gateway to a spreadsheet id.
func NewSheetAdapter(gateway SheetGateway, spreadsheetID string) *SheetAdapter {
	return &SheetAdapter{gateway: gateway, spreadsheetID: spreadsheetID}
}

func (a *SheetAdapter) Kind() SourceKind { return SourceSheet }

// SpreadsheetID returns the bound spreadsheet id.
func (a *SheetAdapter) SpreadsheetID() string { return a.spreadsheetID }

// ListSelectable returns the worksheet titles in spreadsheet order.
func (a *SheetAdapter) ListSelectable(ctx context.Context) ([]string, error) {
	names, err := a.gateway.ListWorksheets(ctx, a.spreadsheetID)
	if err != nil {
		return nil, sourceError("list", a.spreadsheetID, err)
	}
	return names, nil
}

// RefreshSelectable drops any cached listing before listing again.
func (a *SheetAdapter) RefreshSelectable(ctx context.Context) ([]string, error) {
	if inv, ok := a.gateway.(ListingInvalidator); ok {
		inv.Invalidate(a.spreadsheetID)
	}
	return a.ListSelectable(ctx)
}

// Load reads the whole worksheet named by selector.
func (a *SheetAdapter) Load(ctx context.Context, selector string) (*Dataset, error) {
	if selector == "" {
		return nil, sourceError("load", a.spreadsheetID, fmt.Errorf("%w: empty worksheet name", ErrNotFound))
	}
	ds, err := a.gateway.ReadAll(ctx, a.spreadsheetID, selector)
	if err != nil {
		return nil, sourceError("load", a.spreadsheetID, err)
	}
	ds.Selector = selector
	return ds, nil
}

func (a *SheetAdapter) Writable() bool { return true }

// WriteBack overwrites the worksheet the dataset was loaded from.
func (a *SheetAdapter) WriteBack(ctx context.Context, ds *Dataset) error {
	if ds == nil {
		return ErrNoDataset
	}
	if err := a.gateway.OverwriteAll(ctx, a.spreadsheetID, ds.Selector, ds); err != nil {
		if !errors.Is(err, ErrWrite) {
			err = fmt.Errorf("%w: %w", ErrWrite, err)
		}
		return sourceError("write", a.spreadsheetID, err)
	}
	return nil
}
