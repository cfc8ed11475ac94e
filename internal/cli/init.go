// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/gamezone and cmd/gamezone-worker.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"gamezone/internal/config"
	gzlog "gamezone/internal/log"
	gsheet "gamezone/internal/sheets/google"
	"gamezone/internal/storage"
)

// SetupLogger builds the process logger from cfg and sets it as the default.
// The closer releases the rotating log file, if one is configured.
func SetupLogger(cfg *config.Config) (*gzlog.Logger, io.Closer) {
	level := gzlog.ParseLevel(cfg.LogLevel)
	handler, closer := gzlog.NewHandler(level, gzlog.FileConfig{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	logger := gzlog.New(gzlog.Config{
		Level:     level,
		Component: gzlog.ComponentApp,
		Handler:   handler,
	})
	gzlog.SetDefault(logger)
	return logger, closer
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// OpenStorage opens and migrates the SQLite database at dbPath.
func OpenStorage(logger *gzlog.Logger, dbPath string) (*storage.DB, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite database", "error", err, "path", dbPath)
		return nil, err
	}
	logger.Info("SQLite database ready", "path", dbPath)
	return db, nil
}

// SheetsConfig maps the application config onto the Sheets client settings.
func SheetsConfig(cfg *config.Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ReportSheet:        cfg.GoogleSheetName,
		ActivitySheet:      cfg.GoogleActivitySheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	}
}

// InitSheets returns a Sheets client, or nil when no spreadsheet is configured.
func InitSheets(ctx context.Context, logger *gzlog.Logger, cfg *config.Config) (*gsheet.Client, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	client, err := gsheet.New(ctx, SheetsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// ReadPassword prompts on out and reads a line from in without echo when in
// is a terminal.
func ReadPassword(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs first with a context bounded by timeout.
func GracefulShutdown(logger *gzlog.Logger, timeout time.Duration, cleanup func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), gzlog.FieldOperation, gzlog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()
	}()

	return ctx
}
