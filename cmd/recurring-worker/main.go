package main

import (
	"time"

	"emitrack/internal/cli"
	"emitrack/internal/log"
	"emitrack/internal/services"
	"emitrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")
	cli.RequireSQLite(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Budgets are cached in the server process; its TTL covers changes made here.
	processor := services.NewRecurringProcessor(repo, nil)

	sched, err := worker.NewRecurringScheduler(processor, cfg.RecurringSchedule)
	if err != nil {
		logger.Error("Invalid recurring schedule", log.FieldError, err)
		return
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Recurring income processor configured",
		"schedule", cfg.RecurringSchedule,
		"sqlite_db", cfg.SQLiteDBPath)
	sched.Start(ctx)

	<-ctx.Done()
	logger.Info("Shutdown signal received, shutting down recurring-worker")
	cli.WaitStopped(logger, sched.Stop().Done(), 30*time.Second)
}
