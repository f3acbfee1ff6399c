// Package journal persists and reports audit session activity.
//
// Store writes core.Event rows to PostgreSQL through pgx. Logger writes the
// same events to slog and is used when no database is configured. Both
// satisfy core.Journal.
package journal

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 100

// MaxLimit is the largest page Recent will return.
const MaxLimit = 1000

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id             UUID PRIMARY KEY,
	session_id     TEXT NOT NULL,
	kind           TEXT NOT NULL,
	source         TEXT NOT NULL DEFAULT '',
	spreadsheet_id TEXT NOT NULL DEFAULT '',
	selector       TEXT NOT NULL DEFAULT '',
	record_index   INTEGER,
	decision       TEXT NOT NULL DEFAULT '',
	completed      INTEGER NOT NULL DEFAULT 0,
	total          INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	ip_address     INET,
	user_agent     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_events_session_created_idx
	ON audit_events (session_id, created_at DESC);
CREATE INDEX IF NOT EXISTS audit_events_created_idx
	ON audit_events (created_at);
`

const selectColumns = `id::text, session_id, kind, source, spreadsheet_id, selector,
	record_index, decision, completed, total, error,
	COALESCE(host(ip_address), ''), user_agent, created_at`

// Store is a PostgreSQL-backed journal.
type Store struct {
	db DBTX
}

// NewStore creates a store over db (usually a *pgxpool.Pool).
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate creates the audit_events table and its indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

// Record inserts ev. A missing ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, ev core.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var recordIndex pgtype.Int4
	if ev.RecordIndex != nil {
		recordIndex = pgtype.Int4{Int32: int32(*ev.RecordIndex), Valid: true}
	}

	_, err := s.db.Exec(ctx, `INSERT INTO audit_events
		(id, session_id, kind, source, spreadsheet_id, selector, record_index,
		 decision, completed, total, error, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ev.ID,
		ev.SessionID,
		string(ev.Kind),
		string(ev.Source),
		ev.SpreadsheetID,
		ev.Selector,
		recordIndex,
		string(ev.Decision),
		ev.Completed,
		ev.Total,
		ev.Error,
		parseIP(ev.IPAddress),
		ev.UserAgent,
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// parseIP strips a port if present. Unparseable addresses are stored as NULL.
func parseIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &addr
}

// Query filters Recent. Zero fields do not filter.
type Query struct {
	SessionID string
	Kind      core.EventKind
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// Recent returns matching events, newest first.
func (s *Store) Recent(ctx context.Context, q Query) ([]core.Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	wb := NewWhereBuilder()
	wb.Add("session_id", q.SessionID)
	wb.Add("kind", string(q.Kind))
	if !q.Since.IsZero() || !q.Until.IsZero() {
		since := q.Since
		if since.IsZero() {
			since = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		until := q.Until
		if until.IsZero() {
			until = time.Now().Add(24 * time.Hour)
		}
		wb.AddTimestampRange("created_at", since, until)
	}
	whereClause, args := wb.Build()

	query := "SELECT " + selectColumns + " FROM audit_events" + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]core.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (core.Event, error) {
	var (
		ev          core.Event
		kind        string
		source      string
		decision    string
		recordIndex pgtype.Int4
		completed   int32
		total       int32
	)
	err := row.Scan(
		&ev.ID,
		&ev.SessionID,
		&kind,
		&source,
		&ev.SpreadsheetID,
		&ev.Selector,
		&recordIndex,
		&decision,
		&completed,
		&total,
		&ev.Error,
		&ev.IPAddress,
		&ev.UserAgent,
		&ev.CreatedAt,
	)
	if err != nil {
		return core.Event{}, fmt.Errorf("scan audit event: %w", err)
	}

	ev.Kind = core.EventKind(kind)
	ev.Source = core.SourceKind(source)
	ev.Decision = core.Decision(decision)
	ev.Completed = int(completed)
	ev.Total = int(total)
	if recordIndex.Valid {
		idx := int(recordIndex.Int32)
		ev.RecordIndex = &idx
	}
	return ev, nil
}

// Prune deletes events older than maxAge and returns how many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	tag, err := s.db.Exec(ctx, "DELETE FROM audit_events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
