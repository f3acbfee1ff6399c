package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/auditdash/internal/config"
	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/journal"
	"github.com/JonMunkholm/auditdash/internal/logging"
	"github.com/JonMunkholm/auditdash/internal/sheets"
	"github.com/JonMunkholm/auditdash/internal/web"
)

// activityJournal is a journal that can also list and prune its events.
type activityJournal interface {
	core.Journal
	web.ActivitySource
	journal.Pruner
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"sheets_enabled", cfg.Sheets.Enabled(),
		"database_enabled", cfg.Database.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	// Activity journal: Postgres when configured, in-process otherwise
	var store activityJournal
	if cfg.Database.Enabled() {
		pool, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := journal.NewStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate journal schema", "error", err)
			os.Exit(1)
		}
		store = pg
	} else {
		slog.Info("no database configured, keeping activity in memory",
			"capacity", cfg.Journal.MemoryCapacity,
		)
		store = journal.NewMemory(cfg.Journal.MemoryCapacity)
	}

	var events core.Journal = store
	if cfg.Journal.LogEvents {
		events = journal.Multi{store, journal.NewLogger(slog.Default())}
	}

	// Spreadsheet access is optional; without it only uploads work
	var gateway core.SheetGateway
	if cfg.Sheets.Enabled() || cfg.Sheets.Endpoint != "" {
		gateway, err = connectSheets(ctx, cfg.Sheets)
		if err != nil {
			slog.Error("failed to configure spreadsheet access", "error", err, "code", core.MapError(err).Code)
			os.Exit(1)
		}
	} else {
		slog.Warn("no spreadsheet credentials configured, sheet mode disabled")
	}

	server := web.NewServer(cfg, web.Options{
		Gateway:  gateway,
		Journal:  events,
		Activity: store,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go journal.StartRetention(jobCtx, store, journal.RetentionConfig{
		MaxAge:        cfg.Journal.Retention,
		CheckInterval: cfg.Journal.CheckInterval,
	})
	go server.StartCleanup(jobCtx)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight imports finish (with timeout)
		if err := server.WaitForImports(shutdownCtx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// connectDatabase opens and verifies the journal connection pool.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// connectSheets builds the cached Google Sheets gateway.
func connectSheets(ctx context.Context, cfg config.SheetsConfig) (core.SheetGateway, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	client, err := sheets.Dial(ctx, creds, cfg.Endpoint,
		sheets.WithTimeout(cfg.Timeout),
		sheets.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("spreadsheet access configured",
		"timeout", cfg.Timeout.String(),
		"listing_ttl", cfg.ListingTTL.String(),
	)
	return sheets.NewCachedGateway(client, cfg.ListingTTL), nil
}
