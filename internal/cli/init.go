// Package cli provides the startup steps shared by cmd/emitrack,
// cmd/ledger-worker and cmd/recurring-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"emitrack/internal/config"
	"emitrack/internal/log"
	"emitrack/internal/storage"
)

// Bootstrap loads .env and the environment config, installs the default
// logger for component and validates. Invalid config exits the process.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	// Errors are ignored: .env is optional outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// RequireSQLite exits unless the shared SQLite backend is configured. The
// workers run as separate processes and cannot see an in-memory store.
func RequireSQLite(logger *log.Logger, cfg *config.Config) {
	if cfg.DataBackend != "sqlite" {
		logger.Error("This process needs DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}
}

// InitSQLite opens the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// WaitStopped waits for done up to timeout and reports whether it closed in
// time.
func WaitStopped(logger *log.Logger, done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		logger.Info("Shutdown complete")
		return true
	case <-timer.C:
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
		return false
	}
}
