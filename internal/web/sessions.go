package web

// sessions.go maps browser sessions to audit sessions.
//
// Each browser carries a uuid cookie. The store keeps one core.Session per
// cookie and a mutex per entry, so actions from the same browser run one at
// a time while different browsers proceed in parallel. Idle entries are
// evicted after the configured TTL.

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/logging"
)

// flash is a one-shot message shown on the next dashboard render.
type flash struct {
	Level   string // "success", "warning" or "error"
	Message string
	Action  string
	Code    string
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *core.Session
	lastSeen time.Time
	flash    *flash
}

// setFlash stores msg for the next render. Callers hold e.mu.
func (e *sessionEntry) setFlash(f flash) {
	e.flash = &f
}

// takeFlash returns and clears the pending flash. Callers hold e.mu.
func (e *sessionEntry) takeFlash() *flash {
	f := e.flash
	e.flash = nil
	return f
}

// SessionStore owns the audit sessions of all connected browsers.
type SessionStore struct {
	mu         sync.Mutex
	entries    map[string]*sessionEntry
	ttl        time.Duration
	newSession func(id string) *core.Session
	now        func() time.Time
}

// DefaultSessionTTL applies when NewSessionStore gets a non-positive ttl.
const DefaultSessionTTL = 12 * time.Hour

// NewSessionStore creates a store that builds sessions with newSession.
func NewSessionStore(ttl time.Duration, newSession func(id string) *core.Session) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		entries:    make(map[string]*sessionEntry),
		ttl:        ttl,
		newSession: newSession,
		now:        time.Now,
	}
}

// acquire returns the entry for id, creating a fresh one (with a new id)
// when id is unknown or expired. created reports whether a new entry was made.
func (st *SessionStore) acquire(id string) (string, *sessionEntry, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if e, ok := st.entries[id]; ok && now.Sub(e.lastSeen) <= st.ttl {
		e.lastSeen = now
		return id, e, false
	}

	id = uuid.NewString()
	e := &sessionEntry{
		session:  st.newSession(id),
		lastSeen: now,
	}
	st.entries[id] = e
	return id, e, true
}

// Len returns the number of live entries.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// Sweep removes entries idle for longer than the TTL and returns how many
// were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, e := range st.entries {
		if now.Sub(e.lastSeen) > st.ttl {
			delete(st.entries, id)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps idle entries every interval until ctx is cancelled.
func (st *SessionStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session cleanup stopped")
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Info("evicted idle sessions", "count", n, "remaining", st.Len())
			}
		}
	}
}

type entryKey struct{}

// sessionMiddleware attaches the browser's session entry to the request,
// issuing a cookie when the browser has none or its session expired.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			id = c.Value
		}

		id, entry, created := s.sessions.acquire(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), entryKey{}, entry)
		ctx = logging.WithSessionID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// entryFromContext returns the entry set by sessionMiddleware.
func entryFromContext(ctx context.Context) *sessionEntry {
	e, _ := ctx.Value(entryKey{}).(*sessionEntry)
	return e
}

// withSession runs fn with exclusive access to the caller's audit session.
// The context carries request metadata for journal events.
func (s *Server) withSession(r *http.Request, fn func(ctx context.Context, e *sessionEntry) error) error {
	e := entryFromContext(r.Context())
	if e == nil {
		return errNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(WithRequestMetadata(r.Context(), r), e)
}

var errNoSession = errorString("no session")
