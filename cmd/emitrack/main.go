package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"emitrack/internal/auth"
	"emitrack/internal/backend"
	"emitrack/internal/cache"
	"emitrack/internal/cli"
	"emitrack/internal/config"
	"emitrack/internal/core"
	apphttp "emitrack/internal/http"
	"emitrack/internal/log"
	"emitrack/internal/services"
	"emitrack/internal/worker"
)

const budgetCacheSize = 1000

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentHTTP)

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg.AuthMode, cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to initialize auth", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AuthMode == config.AuthModeDev {
		logger.Warn("Auth is in dev mode, bearer tokens are trusted as user ids")
	}

	caches := cache.NewManager()
	var budgetCache *cache.LRUCache[core.MonthlyBudget]
	if cfg.BudgetCacheTTL > 0 {
		budgetCache = cache.NewLRUCache[core.MonthlyBudget](budgetCacheSize, cfg.BudgetCacheTTL)
		caches.Register(budgetCache)
		caches.StartCleanup(cfg.BudgetCacheTTL)
	}
	defer caches.Stop()

	budgets := services.NewBudgetService(res.Store, budgetCache)
	publisher := res.Publisher()
	svc := apphttp.Services{
		EMIs:    services.NewEMIService(res.Store, publisher, budgets),
		Ledger:  services.NewLedgerService(res.Store, publisher, budgets),
		Incomes: services.NewIncomeService(res.Store, budgets),
		Cards:   services.NewCardService(res.Store, publisher, budgets),
		Budgets: budgets,
	}

	// The recurring worker cannot see an in-memory store, so the server rolls
	// incomes forward itself.
	if backendCfg.Type == backend.MemoryBackend {
		sched, err := worker.NewRecurringScheduler(services.NewRecurringProcessor(res.Store, budgets), cfg.RecurringSchedule)
		if err != nil {
			logger.Error("Invalid recurring schedule", log.FieldError, err)
			os.Exit(1)
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            net.JoinHostPort("", cfg.Port),
		Store:           res.Store,
		Verifier:        verifier,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	}, svc)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting emitrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"auth_mode", cfg.AuthMode,
			"sync_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
