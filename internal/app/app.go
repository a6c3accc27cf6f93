// Package app wires configuration into a store backend, the reference
// resolver and the use-case services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alexanderramin/planrollup/internal/config"
	"github.com/alexanderramin/planrollup/internal/keyring"
	"github.com/alexanderramin/planrollup/internal/reference"
	"github.com/alexanderramin/planrollup/internal/service"
	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/alexanderramin/planrollup/internal/store/postgrest"
	"github.com/alexanderramin/planrollup/internal/store/sqlstore"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoRestKey is returned when the postgrest backend has neither an
// environment key nor a keyring entry.
var ErrNoRestKey = errors.New("no REST key: set PLANROLLUP_REST_KEY or run `planrollup key set`")

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       store.Store
	Registry    *prometheus.Registry
	Plans       service.PlanService
	Maintenance service.MaintenanceService

	closeStore func() error
}

// Open builds the store named by cfg.Backend and the services on top of
// it. Callers must Close the App.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tables, err := reference.Load(cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := store.NewMetrics(reg)

	s, closeStore, err := OpenStore(ctx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	s = store.Instrument(s, metrics)

	observer := service.NewLogUseCaseObserver(logger)
	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    s,
		Registry: reg,
		Plans: service.NewPlanService(s, reference.NewResolver(tables), service.PlanOptions{
			BatchSize: cfg.BatchSize,
			Year:      cfg.Year,
			Logger:    logger,
		}, observer),
		Maintenance: service.NewMaintenanceService(s, logger, observer),
		closeStore:  closeStore,
	}, nil
}

// OpenStore opens the raw backend. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config, metrics *store.Metrics, logger *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendPostgREST:
		key, err := keyring.Resolve(cfg.RestKey)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil, ErrNoRestKey
		}
		if err != nil {
			return nil, nil, err
		}
		c := postgrest.New(postgrest.Config{
			BaseURL:  cfg.RestURL,
			Key:      key,
			Timeout:  cfg.Timeout,
			Retries:  cfg.Retries,
			Backoff:  cfg.Backoff,
			PageSize: cfg.PageSize,
		}, postgrest.WithMetrics(metrics), postgrest.WithLogger(logger))
		return c, func() error { return nil }, nil

	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		s, err := sqlstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.BackendSQLite:
		s, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Close writes the metrics textfile when configured and releases the
// store. Both errors are reported.
func (a *App) Close() error {
	var errs []error
	if a.Config.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.Config.MetricsFile, a.Registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}
	return errors.Join(errs...)
}
