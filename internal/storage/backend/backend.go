// Package backend builds the storage and event infrastructure selected by
// the configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/tabkeeper/internal/config"
	"github.com/mmynk/tabkeeper/internal/events"
	"github.com/mmynk/tabkeeper/internal/storage"
	"github.com/mmynk/tabkeeper/internal/storage/mongo"
	"github.com/mmynk/tabkeeper/internal/storage/sqlite"
)

// Result holds the opened backend. Events is nil when AMQP is not
// configured or unreachable.
type Result struct {
	Store  storage.Store
	Events *events.Client
}

// Close releases the event client and the store.
func (r *Result) Close() error {
	var errs []error
	if r.Events != nil {
		errs = append(errs, r.Events.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// Open connects the store named by cfg.StoreDriver. When requireEvents is
// false an AMQP failure is logged and the backend runs without events.
func Open(ctx context.Context, cfg *config.Config, requireEvents bool, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	res := &Result{Store: store}

	if cfg.AMQPURL == "" {
		if requireEvents {
			store.Close()
			return nil, errors.New("AMQP_URL is required")
		}
		logger.Info("AMQP disabled, payment events will not be published")
		return res, nil
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPReconcileQueue)
	if err != nil {
		if requireEvents {
			store.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return res, nil
	}

	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPReconcileQueue)
	res.Events = client
	return res, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		logger.Info("Initialized SQLite store", "db_path", cfg.SQLitePath)
		return store, nil

	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		store, err := mongo.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
		}
		logger.Info("Initialized MongoDB store", "database", cfg.MongoDatabase)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}
}
