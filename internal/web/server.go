// Package web provides the HTTP server and handlers for the audit dashboard.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/auditdash/internal/config"
	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/journal"
	"github.com/JonMunkholm/auditdash/internal/logging"
	mw "github.com/JonMunkholm/auditdash/internal/web/middleware"
)

// ActivitySource lists recorded journal events.
type ActivitySource interface {
	Recent(ctx context.Context, q journal.Query) ([]core.Event, error)
}

// Options wires the server's collaborators. Every field is optional.
type Options struct {
	// Gateway enables Sheet mode; nil leaves only file uploads.
	Gateway core.SheetGateway

	// Journal receives session events.
	Journal core.Journal

	// Activity backs the activity endpoints.
	Activity ActivitySource
}

// Server is the HTTP server for the audit dashboard.
type Server struct {
	cfg      *config.Config
	sessions *SessionStore
	imports  *core.ImportLimiter
	activity ActivitySource
	router   *chi.Mux
	server   *http.Server

	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:      cfg,
		imports:  core.NewImportLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		activity: opts.Activity,
		router:   chi.NewRouter(),
	}

	gateway, j := opts.Gateway, opts.Journal
	s.sessions = NewSessionStore(cfg.Session.TTL, func(id string) *core.Session {
		sessOpts := []core.SessionOption{
			core.WithSessionID(id),
			core.WithJournal(j),
		}
		if gateway != nil {
			sessOpts = append(sessOpts, core.WithSheetGateway(gateway))
		}
		return core.NewSession(sessOpts...)
	})

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get(mw.HealthPath, s.handleHealth)

	uploadLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		uploadLimit = s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		// Pages
		r.Get("/", s.handleDashboard)

		// Browser downloads
		r.Get("/export/csv", s.handleExportCSV)
		r.Get("/export/xlsx", s.handleExportXLSX)

		// Form posts; each redirects back to the dashboard with a flash
		r.Route("/ui", func(r chi.Router) {
			r.Post("/source", s.handleUISource)
			r.With(uploadLimit).Post("/upload", s.handleUIUpload)
			r.Post("/spreadsheet", s.handleUISpreadsheet)
			r.Post("/worksheet", s.handleUIWorksheet)
			r.Post("/records/{index}/decision", s.handleUIDecision)
			r.Post("/reset", s.handleUIReset)
		})

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))

			r.Get("/state", s.handleState)
			r.Post("/source", s.handleSelectSource)
			r.With(uploadLimit).Post("/upload", s.handleUpload)
			r.Post("/spreadsheet", s.handleOpenSpreadsheet)
			r.Post("/worksheet", s.handleSelectWorksheet)
			r.Post("/records/{index}/decision", s.handleDecide)
			r.Post("/reset", s.handleReset)

			// Data export
			r.Get("/export.csv", s.handleExportCSV)
			r.Get("/export.xlsx", s.handleExportXLSX)

			// Activity journal
			r.Get("/activity", s.handleActivity)
			r.Get("/activity.csv", s.handleActivityExport)

			// Import queue
			r.Get("/imports/status", s.handleImportStatus)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// StartCleanup evicts idle browser sessions until ctx is cancelled.
func (s *Server) StartCleanup(ctx context.Context) {
	s.sessions.StartCleanup(ctx, s.cfg.Session.CleanupInterval)
}

// WaitForImports blocks until in-flight file imports finish or ctx is done.
func (s *Server) WaitForImports(ctx context.Context) error {
	status := s.imports.Status()
	if status.Active == 0 {
		return nil
	}
	slog.Info("waiting for imports to complete", "active", status.Active)
	return s.imports.WaitForDrain(ctx)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// The dashboard is a single page with inline styles and no scripts
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
// The server stops its cleanup goroutine on Shutdown.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been rewritten by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response for failures that happen before a
// handler runs. The message is logged as-is.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"status", status,
		"path", r.URL.Path,
		"message", message,
	)
	respondErrorJSON(w, core.MapError(errorString(message)), status)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }
