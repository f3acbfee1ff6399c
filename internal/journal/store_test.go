package journal

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/auditdash/internal/core"
)

type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag
	execErr  error

	querySQL  string
	queryArgs []any
	rows      *fakeRows
	queryErr  error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	f.querySQL = sql
	f.queryArgs = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		f.rows = &fakeRows{}
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

// fakeRows yields preset values, assigning each to the matching Scan target.
type fakeRows struct {
	data   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func TestStore_Migrate(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).Migrate(context.Background()))

	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS audit_events")

	db.execErr = errors.New("permission denied")
	err := NewStore(db).Migrate(context.Background())
	assert.ErrorContains(t, err, "migrate audit_events")
}

func TestStore_Record(t *testing.T) {
	db := &fakeDB{}
	idx := 3
	ev := core.Event{
		SessionID:   "s1",
		Kind:        core.EventDecision,
		Source:      core.SourceSheet,
		Selector:    "Sheet1",
		RecordIndex: &idx,
		Decision:    core.DecisionYes,
		Completed:   1,
		Total:       4,
		IPAddress:   "192.168.1.20:5555",
	}

	require.NoError(t, NewStore(db).Record(context.Background(), ev))
	require.Len(t, db.execArgs, 1)
	args := db.execArgs[0]
	require.Len(t, args, 14)

	assert.NotEmpty(t, args[0], "id should be generated")
	assert.Equal(t, "s1", args[1])
	assert.Equal(t, "decision", args[2])
	assert.Equal(t, pgtype.Int4{Int32: 3, Valid: true}, args[6])
	assert.Equal(t, "Yes", args[7])

	addr, ok := args[11].(*netip.Addr)
	require.True(t, ok)
	require.NotNil(t, addr)
	assert.Equal(t, "192.168.1.20", addr.String())

	createdAt, ok := args[13].(time.Time)
	require.True(t, ok)
	assert.False(t, createdAt.IsZero())
}

func TestParseIP(t *testing.T) {
	assert.Nil(t, parseIP(""))
	assert.Nil(t, parseIP("not-an-ip"))
	assert.Equal(t, "::1", parseIP("[::1]:8080").String())
	assert.Equal(t, "10.0.0.1", parseIP("10.0.0.1").String())
}

func TestStore_Recent(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{"id-1", "s1", "decision", "sheet", "abc", "Sheet1", pgtype.Int4{Int32: 2, Valid: true},
			"No", int32(1), int32(5), "", "10.0.0.1", "agent", created},
		{"id-2", "s1", "reset", "", "", "", pgtype.Int4{},
			"", int32(0), int32(0), "", "", "", created.Add(-time.Minute)},
	}}}

	events, err := NewStore(db).Recent(context.Background(), Query{SessionID: "s1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Contains(t, db.querySQL, "WHERE session_id = $1")
	assert.True(t, strings.HasSuffix(db.querySQL, "ORDER BY created_at DESC LIMIT $2 OFFSET $3"), db.querySQL)
	assert.Equal(t, []any{"s1", 10, 0}, db.queryArgs)
	assert.True(t, db.rows.closed)

	first := events[0]
	assert.Equal(t, core.EventDecision, first.Kind)
	assert.Equal(t, core.SourceSheet, first.Source)
	assert.Equal(t, core.DecisionNo, first.Decision)
	require.NotNil(t, first.RecordIndex)
	assert.Equal(t, 2, *first.RecordIndex)
	assert.Equal(t, 5, first.Total)

	assert.Nil(t, events[1].RecordIndex)
}

func TestStore_RecentLimits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultLimit},
		{"capped", MaxLimit + 50, MaxLimit},
		{"explicit", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{}
			_, err := NewStore(db).Recent(context.Background(), Query{Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, []any{tt.want, 0}, db.queryArgs)
			assert.NotContains(t, db.querySQL, "WHERE")
		})
	}
}

func TestStore_Prune(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 7")}

	n, err := NewStore(db).Prune(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Contains(t, db.execSQL[0], "DELETE FROM audit_events")

	cutoff, ok := db.execArgs[0][0].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), cutoff, 5*time.Second)
}

// TestStore_Postgres runs against a real database when
// JOURNAL_TEST_DATABASE_URL is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("JOURNAL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	store := NewStore(pool)
	require.NoError(t, store.Migrate(ctx))

	session := "it-" + time.Now().Format("150405.000000")
	idx := 0
	require.NoError(t, store.Record(ctx, core.Event{SessionID: session, Kind: core.EventFileLoaded, Total: 2}))
	require.NoError(t, store.Record(ctx, core.Event{
		SessionID: session, Kind: core.EventDecision, RecordIndex: &idx,
		Decision: core.DecisionYes, Completed: 1, Total: 2, IPAddress: "127.0.0.1",
	}))

	events, err := store.Recent(ctx, Query{SessionID: session})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.EventDecision, events[0].Kind)
	assert.Equal(t, "127.0.0.1", events[0].IPAddress)

	_, err = pool.Exec(ctx, "DELETE FROM audit_events WHERE session_id = $1", session)
	require.NoError(t, err)
}
