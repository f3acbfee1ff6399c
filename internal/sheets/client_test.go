package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// fakeSheetsAPI serves the subset of the Sheets v4 REST API the client uses.
type fakeSheetsAPI struct {
	mu     sync.Mutex
	books  map[string]map[string][][]string
	order  map[string][]string
	status int // when non-zero every request fails with this code

	// failMethod and failStatus fail only requests with that HTTP method
	failMethod string
	failStatus int

	updates []string
	lastPut [][]interface{}
}

func newFakeSheetsAPI() *fakeSheetsAPI {
	return &fakeSheetsAPI{
		books: make(map[string]map[string][][]string),
		order: make(map[string][]string),
	}
}

func (f *fakeSheetsAPI) put(id, title string, rows [][]string) {
	if f.books[id] == nil {
		f.books[id] = make(map[string][][]string)
	}
	if _, ok := f.books[id][title]; !ok {
		f.order[id] = append(f.order[id], title)
	}
	f.books[id][title] = rows
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		writeAPIError(w, f.status, "forced failure")
		return
	}
	if f.failMethod == r.Method {
		writeAPIError(w, f.failStatus, "forced failure")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, valuesPart, hasValues := strings.Cut(rest, "/values/")

	book, ok := f.books[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}

	if !hasValues {
		type props struct {
			Title string `json:"title"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		resp := struct {
			Sheets []sheet `json:"sheets"`
		}{}
		for _, title := range f.order[id] {
			resp.Sheets = append(resp.Sheets, sheet{Properties: props{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	rng := valuesPart
	title := unquoteRange(rng)
	if _, ok := book[title]; !ok {
		writeAPIError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	switch r.Method {
	case http.MethodPut:
		f.updates = append(f.updates, rng+"?"+r.URL.Query().Get("valueInputOption"))
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.lastPut = body.Values
		book[title] = overlay(book[title], body.Values)
		_ = json.NewEncoder(w).Encode(map[string]int{"updatedRows": len(body.Values)})

	case http.MethodGet:
		values := make([][]string, 0)
		values = append(values, trimGrid(book[title])...)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range":          rng,
			"majorDimension": "ROWS",
			"values":         values,
		})

	default:
		writeAPIError(w, http.StatusMethodNotAllowed, r.Method)
	}
}

// overlay writes values into grid from A1, leaving cells outside the block
// untouched, like a values.update call.
func overlay(grid [][]string, values [][]interface{}) [][]string {
	for len(grid) < len(values) {
		grid = append(grid, nil)
	}
	for i, v := range values {
		for len(grid[i]) < len(v) {
			grid[i] = append(grid[i], "")
		}
		for j, c := range v {
			grid[i][j], _ = c.(string)
		}
	}
	return grid
}

// trimGrid drops trailing blank cells and rows, as the API does on read.
func trimGrid(grid [][]string) [][]string {
	out := make([][]string, 0, len(grid))
	for _, row := range grid {
		n := len(row)
		for n > 0 && row[n-1] == "" {
			n--
		}
		out = append(out, row[:n])
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

// unquoteRange turns "'It''s'!A1" into "It's".
func unquoteRange(rng string) string {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[:i]
	}
	rng = strings.TrimPrefix(rng, "'")
	rng = strings.TrimSuffix(rng, "'")
	return strings.ReplaceAll(rng, "''", "'")
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": msg},
	})
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClientWithOptions(context.Background(), []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
		option.WithoutAuthentication(),
	})
	require.NoError(t, err)
	return c
}

func TestClient_ListWorksheets(t *testing.T) {
	api := newFakeSheetsAPI()
	api.put("book1", "Invoices", nil)
	api.put("book1", "Vendors", nil)
	c := newTestClient(t, api)

	names, err := c.ListWorksheets(context.Background(), "book1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoices", "Vendors"}, names)

	_, err = c.ListWorksheets(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClient_ReadAll(t *testing.T) {
	api := newFakeSheetsAPI()
	api.put("book1", "Invoices", [][]string{
		{"ID", "Amount", core.DecisionColumn},
		{"1", "10.00", "Yes"},
		{"2"},
	})
	api.put("book1", "Blank", nil)
	c := newTestClient(t, api)

	ds, err := c.ReadAll(context.Background(), "book1", "Invoices")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Amount", core.DecisionColumn}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, core.DecisionYes, ds.Records[0].Decision)
	assert.Equal(t, []string{"2", "", "Pending"}, ds.Records[1].Fields)

	empty, err := c.ReadAll(context.Background(), "book1", "Blank")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, []string{core.DecisionColumn}, empty.Columns)

	_, err = c.ReadAll(context.Background(), "book1", "Nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClient_OverwriteAll(t *testing.T) {
	api := newFakeSheetsAPI()
	api.put("book1", "It's Q1", [][]string{{"ID"}, {"1"}, {"2"}})
	c := newTestClient(t, api)
	ctx := context.Background()

	ds, err := c.ReadAll(ctx, "book1", "It's Q1")
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	ds.Records[1].Decision = core.DecisionNo
	ds.Records[1].Fields[1] = "No"

	require.NoError(t, c.OverwriteAll(ctx, "book1", "It's Q1", ds))

	assert.Equal(t, []string{"'It''s Q1'!A1?USER_ENTERED"}, api.updates)
	assert.Equal(t, [][]string{
		{"ID", core.DecisionColumn},
		{"1", "Pending"},
		{"2", "No"},
	}, trimGrid(api.books["book1"]["It's Q1"]))

	back, err := c.ReadAll(ctx, "book1", "It's Q1")
	require.NoError(t, err)
	assert.True(t, ds.Equal(back))
}

func TestClient_OverwriteAllBlanksStaleCells(t *testing.T) {
	api := newFakeSheetsAPI()
	api.put("book1", "S", [][]string{
		{"ID", "Note", "Extra"},
		{"1", "a", "x"},
		{"2", "b", "y"},
		{"3", "c", "z"},
	})
	c := newTestClient(t, api)

	ds, err := core.NewDataset([]string{"ID"}, [][]string{{"1"}})
	require.NoError(t, err)
	require.NoError(t, c.OverwriteAll(context.Background(), "book1", "S", ds))

	require.Len(t, api.lastPut, 4)
	for _, row := range api.lastPut {
		assert.Len(t, row, 3)
	}
	assert.Equal(t, [][]string{
		{"ID", core.DecisionColumn},
		{"1", "Pending"},
	}, trimGrid(api.books["book1"]["S"]))
}

func TestClient_OverwriteAllFailedWriteKeepsContents(t *testing.T) {
	original := [][]string{
		{"ID", "Amount", core.DecisionColumn},
		{"1", "10", "Pending"},
	}
	api := newFakeSheetsAPI()
	api.put("book1", "S", original)
	api.failMethod = http.MethodPut
	api.failStatus = http.StatusTooManyRequests
	c := newTestClient(t, api)
	ctx := context.Background()

	ds, err := c.ReadAll(ctx, "book1", "S")
	require.NoError(t, err)
	ds.Records[0].Decision = core.DecisionYes
	ds.Records[0].Fields[2] = "Yes"

	err = c.OverwriteAll(ctx, "book1", "S", ds)
	assert.ErrorIs(t, err, core.ErrWrite)
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
	assert.Equal(t, original, api.books["book1"]["S"])
}

func TestClient_OverwriteAllSendsUserEnteredValues(t *testing.T) {
	api := newFakeSheetsAPI()
	api.put("book1", "S", [][]string{{"ID", "Amount"}, {"1", "42"}, {"2", "1,234.50"}})
	c := newTestClient(t, api)
	ctx := context.Background()

	ds, err := c.ReadAll(ctx, "book1", "S")
	require.NoError(t, err)
	require.NoError(t, c.OverwriteAll(ctx, "book1", "S", ds))

	require.Len(t, api.updates, 1)
	assert.True(t, strings.HasSuffix(api.updates[0], "?USER_ENTERED"), api.updates[0])
	assert.Equal(t, "42", api.lastPut[1][1])
	assert.Equal(t, "1,234.50", api.lastPut[2][1])
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantRead error
	}{
		{http.StatusUnauthorized, core.ErrAuth},
		{http.StatusForbidden, core.ErrAuth},
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusConflict, core.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			api := newFakeSheetsAPI()
			api.put("book1", "S", [][]string{{"a"}})
			api.status = tt.status
			c := newTestClient(t, api)
			ctx := context.Background()

			_, err := c.ReadAll(ctx, "book1", "S")
			assert.ErrorIs(t, err, tt.wantRead)
			assert.False(t, errors.Is(err, core.ErrWrite))

			ds, _ := core.NewDataset([]string{"a"}, nil)
			err = c.OverwriteAll(ctx, "book1", "S", ds)
			assert.ErrorIs(t, err, core.ErrWrite)
			assert.ErrorIs(t, err, tt.wantRead)
		})
	}
}

func TestClient_AuthErrorIsSourceUnavailable(t *testing.T) {
	api := newFakeSheetsAPI()
	api.status = http.StatusForbidden
	c := newTestClient(t, api)

	_, err := c.ListWorksheets(context.Background(), "book1")
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
	assert.Equal(t, "SRC002", core.MapError(err).Code)
}

func TestAuthenticate_RejectsBadCredentials(t *testing.T) {
	_, err := Authenticate(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrAuth)

	_, err = Authenticate(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, core.ErrAuth)
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Sheet1'", quoteSheet("Sheet1"))
	assert.Equal(t, "'It''s'", quoteSheet("It's"))
}

func TestDial(t *testing.T) {
	api := newFakeSheetsAPI()
	api.put("book1", "Invoices", nil)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), nil, srv.URL+"/")
	require.NoError(t, err)
	names, err := c.ListWorksheets(context.Background(), "book1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoices"}, names)

	_, err = Dial(context.Background(), nil, "")
	assert.ErrorIs(t, err, core.ErrAuth)

	_, err = Dial(context.Background(), []byte("{"), srv.URL+"/")
	assert.ErrorIs(t, err, core.ErrAuth)
}
