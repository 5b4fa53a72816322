package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"emitrack/internal/amqp"
	"emitrack/internal/services"
	"emitrack/internal/storage"
	"emitrack/internal/storage/memory"
)

// Result is a ready store plus the optional sync publisher.
type Result struct {
	Store storage.Store

	publisher *amqp.Client
}

// Publisher returns the sync publisher, or nil when AMQP is not configured.
// The untyped nil matters: services check the interface against nil.
func (r *Result) Publisher() services.SyncPublisher {
	if r.publisher == nil {
		return nil
	}
	return r.publisher
}

// Close releases the publisher and then the store.
func (r *Result) Close() error {
	var errs []error
	if r.publisher != nil {
		errs = append(errs, r.publisher.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store storage.Store
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized in-memory backend, data will not survive a restart")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{Store: store}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			res.publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	return res, nil
}
