package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bcchr/detbuilder/internal/core/api"
	"github.com/bcchr/detbuilder/internal/core/config"
	"github.com/bcchr/detbuilder/internal/core/db"
	"github.com/bcchr/detbuilder/internal/core/logging"
	"github.com/bcchr/detbuilder/internal/core/metrics"
	"github.com/bcchr/detbuilder/internal/core/store"
	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/routing"
)

// app bundles the components a command needs.
type app struct {
	cfg      *config.ServiceConfig
	logger   *slog.Logger
	db       *sqlx.DB
	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	svc      *api.Service
}

// openDB loads config, builds the logger and opens the database.
func openDB(ctx context.Context) (*config.ServiceConfig, *slog.Logger, *sqlx.DB, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(logFormat, logLevel, os.Stderr)

	url := cfg.DatabaseURL(dbURL)
	if strings.HasPrefix(url, "sqlite://") {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	database, err := db.Open(ctx, url)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, logger, database, nil
}

// newApp opens the database, checks migrations and wires the service.
// withMetrics registers Prometheus collectors. overrides adjust the loaded
// config before anything is built from it.
func newApp(ctx context.Context, withMetrics bool, overrides ...func(*config.ServiceConfig)) (*app, error) {
	cfg, logger, database, err := openDB(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, fmt.Errorf("migration %s not applied - run 'detbuilder migrate up' first", s.ID)
		}
	}

	st, err := store.New(database, cfg.DefaultEvent)
	if err != nil {
		database.Close()
		return nil, err
	}

	router, err := routing.NewHostRouter(st, logic.NewEngine(cfg.CacheSize), logger)
	if err != nil {
		database.Close()
		return nil, err
	}

	var registry *prometheus.Registry
	if withMetrics && cfg.MetricsAddr != "" {
		registry = prometheus.NewRegistry()
	}
	m := metrics.New(registry, router.Engine().Len)

	svc, err := api.NewService(st, router, m, logger, cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		store:    st,
		registry: registry,
		metrics:  m,
		svc:      svc,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
