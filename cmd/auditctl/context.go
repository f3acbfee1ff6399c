package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/auditdash/internal/config"
	"github.com/JonMunkholm/auditdash/internal/core"
	"github.com/JonMunkholm/auditdash/internal/logging"
	"github.com/JonMunkholm/auditdash/internal/sheets"
)

// gatewayFunc opens spreadsheet access on demand.
type gatewayFunc func(ctx context.Context) (core.SheetGateway, error)

// commandContext holds state shared by subcommands.
type commandContext struct {
	openGateway gatewayFunc

	once    sync.Once
	cfg     *config.Config
	cfgErr  error
	verbose bool
}

func newCommandContext() *commandContext {
	c := &commandContext{}
	c.openGateway = c.dialSheets
	return c
}

// config loads .env and environment configuration once.
func (c *commandContext) config() (*config.Config, error) {
	c.once.Do(func() {
		// Existing environment wins over .env for the CLI
		_ = godotenv.Load()
		c.cfg, c.cfgErr = config.Load()
		if c.cfgErr != nil {
			return
		}
		level := c.cfg.Logging.Level
		if c.verbose {
			level = "debug"
		}
		logging.Setup(level, c.cfg.Logging.Format)
	})
	return c.cfg, c.cfgErr
}

func (c *commandContext) dialSheets(ctx context.Context) (core.SheetGateway, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if !cfg.Sheets.Enabled() && cfg.Sheets.Endpoint == "" {
		return nil, fmt.Errorf("%w: set SHEETS_CREDENTIALS_FILE or SHEETS_CREDENTIALS_JSON", core.ErrAuth)
	}
	creds, err := cfg.Sheets.Credentials()
	if err != nil {
		return nil, err
	}
	return sheets.Dial(ctx, creds, cfg.Sheets.Endpoint,
		sheets.WithTimeout(cfg.Sheets.Timeout),
		sheets.WithLogger(slog.Default()),
	)
}
