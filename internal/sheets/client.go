// Package sheets implements core.SheetGateway on the Google Sheets v4 API.
//
// Every read fetches a whole worksheet and every write replaces one in a
// single update from A1, padded with blanks over the previous extent so no
// stale cells survive and a failed write leaves the old contents. Transport
// failures are mapped onto the core error taxonomy so callers can classify
// them with errors.Is.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// DefaultTimeout bounds a single API call when the client has no timeout.
const DefaultTimeout = 30 * time.Second

// Client talks to one Sheets API endpoint with one set of credentials.
type Client struct {
	svc     *sheetsapi.Service
	timeout time.Duration
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient wraps an existing service.
func NewClient(svc *sheetsapi.Service, opts ...ClientOption) *Client {
	c := &Client{
		svc:     svc,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "sheets")
	return c
}

// Authenticate builds a client from service-account (or other Google)
// credentials JSON.
func Authenticate(ctx context.Context, credentialsJSON []byte, opts ...ClientOption) (*Client, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", core.ErrAuth)
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAuth, err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets service: %v", core.ErrSourceUnavailable, err)
	}
	return NewClient(svc, opts...), nil
}

// NewClientWithOptions builds a client from raw API options, for custom
// endpoints and test servers.
func NewClientWithOptions(ctx context.Context, apiOpts []option.ClientOption, opts ...ClientOption) (*Client, error) {
	svc, err := sheetsapi.NewService(ctx, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets service: %v", core.ErrSourceUnavailable, err)
	}
	return NewClient(svc, opts...), nil
}

// Dial builds a client from configuration. An empty endpoint means the
// public Google API and requires credentials; a custom endpoint without
// credentials is called unauthenticated.
func Dial(ctx context.Context, credentialsJSON []byte, endpoint string, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return Authenticate(ctx, credentialsJSON, opts...)
	}

	apiOpts := []option.ClientOption{option.WithEndpoint(endpoint)}
	if len(credentialsJSON) == 0 {
		apiOpts = append(apiOpts, option.WithoutAuthentication())
	} else {
		creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrAuth, err)
		}
		apiOpts = append(apiOpts, option.WithCredentials(creds))
	}
	return NewClientWithOptions(ctx, apiOpts, opts...)
}

// ListWorksheets returns the worksheet titles in spreadsheet order.
func (c *Client) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	names := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}

	c.logger.Debug("worksheets listed",
		"spreadsheet_id", spreadsheetID,
		"worksheets", len(names),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return names, nil
}

// ReadAll fetches every populated cell of a worksheet. The first row is the
// header. An empty worksheet yields a dataset with only the decision column.
func (c *Client) ReadAll(ctx context.Context, spreadsheetID, worksheet string) (*core.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	vr, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, quoteSheet(worksheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	rows := toStrings(vr.Values)
	c.logger.Debug("worksheet read",
		"spreadsheet_id", spreadsheetID,
		"worksheet", worksheet,
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(rows) == 0 {
		return core.NewDataset([]string{core.DecisionColumn}, nil)
	}
	return core.NewDataset(rows[0], rows[1:])
}

// OverwriteAll replaces the worksheet contents with ds: header first, then
// one row per record.
//
// The current extent is read first and the written block is padded with
// blanks to cover it, so the whole replacement is one update request. Values
// are sent as USER_ENTERED so numbers and dates are parsed again instead of
// being stored as text.
func (c *Client) OverwriteAll(ctx context.Context, spreadsheetID, worksheet string, ds *core.Dataset) error {
	if ds == nil {
		return core.ErrNoDataset
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	sheetRange := quoteSheet(worksheet)

	current, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, sheetRange).
		Context(ctx).
		Do()
	if err != nil {
		return mapWriteError(err)
	}
	oldRows, oldCols := extent(current.Values)

	body := &sheetsapi.ValueRange{
		MajorDimension: "ROWS",
		Values:         toValues(padRows(ds.Rows(), oldRows, oldCols)),
	}
	if _, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, sheetRange+"!A1", body).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do(); err != nil {
		return mapWriteError(err)
	}

	c.logger.Debug("worksheet written",
		"spreadsheet_id", spreadsheetID,
		"worksheet", worksheet,
		"rows", ds.Len()+1,
		"cleared_rows", max(0, oldRows-ds.Len()-1),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// extent returns the row count and widest row of a value grid.
func extent(values [][]interface{}) (rows, cols int) {
	for _, v := range values {
		cols = max(cols, len(v))
	}
	return len(values), cols
}

// padRows extends rows with blank cells and blank rows until the block is at
// least minRows by minCols.
func padRows(rows [][]string, minRows, minCols int) [][]string {
	width := minCols
	for _, r := range rows {
		width = max(width, len(r))
	}

	out := make([][]string, max(len(rows), minRows))
	for i := range out {
		row := make([]string, width)
		if i < len(rows) {
			copy(row, rows[i])
		}
		out[i] = row
	}
	return out
}

// quoteSheet renders a worksheet title as an A1 sheet reference.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, cell := range row {
			vals[j] = cell
		}
		out[i] = vals
	}
	return out
}

// classify maps an API error onto the core taxonomy.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", core.ErrAuth, apiMessage(apiErr))
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", core.ErrNotFound, apiMessage(apiErr))
		case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range"):
			return fmt.Errorf("%w: %s", core.ErrNotFound, apiMessage(apiErr))
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: rate limit exceeded: %s", core.ErrSourceUnavailable, apiMessage(apiErr))
		}
		return fmt.Errorf("%w: %s", core.ErrSourceUnavailable, apiMessage(apiErr))
	}
	return fmt.Errorf("%w: %w", core.ErrSourceUnavailable, err)
}

func mapWriteError(err error) error {
	return fmt.Errorf("%w: %w", core.ErrWrite, classify(err))
}

func apiMessage(e *googleapi.Error) string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}
