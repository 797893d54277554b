// Package app wires configuration, logging, the Postgres store, metrics
// and the import service into one value for the presentation layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/config"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	_ "github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core/formats" // Register all formats
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/logging"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/metrics"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/principal"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/store/postgres"
)

// errRejected rolls back the transaction of an import that returned errors
// without a storage cause.
var errRejected = errors.New("import rejected")

// App holds the long lived dependencies of the import engine.
type App struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Principal *principal.Principal
	Service   *core.Service
	Registry  *prometheus.Registry
}

// ServiceConfig maps the import section of cfg onto the service limits.
func ServiceConfig(cfg *config.Config) core.Config {
	return core.Config{
		MaxFileSize:   cfg.Import.MaxFileSize,
		Timeout:       cfg.Import.Timeout,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		Locale:        cfg.LocaleTag(),
	}
}

// RetryOptions maps the import section of cfg onto the commit retries.
func RetryOptions(cfg *config.Config) postgres.RetryOptions {
	return postgres.RetryOptions{
		Attempts: uint(cfg.Import.RetryAttempts),
		Delay:    cfg.Import.RetryDelay,
	}
}

// PoolConfig parses the database URL and applies the pool settings.
func PoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	return poolConfig, nil
}

// New connects to the database, creates missing tables, loads the
// principal and builds the import service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	p, err := principal.Load(cfg.Principal.Path)
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}

	reg := prometheus.NewRegistry()
	var opts []core.Option
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector())
		recorder, err := metrics.NewRecorder(reg, cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, core.WithRecorder(recorder))
	}

	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	service := core.NewService(ServiceConfig(cfg), opts...)
	slog.Info("import service ready",
		"principal", p.ID,
		"formats", core.FormatCount(),
	)

	return &App{
		Config:    cfg,
		Pool:      pool,
		Principal: p,
		Service:   service,
		Registry:  reg,
	}, nil
}

// Close waits for running imports and closes the pool.
func (a *App) Close(ctx context.Context) {
	if active := a.Service.Limiter().ActiveCount(); active > 0 {
		slog.Info("waiting for imports to complete", "active", active)
		if err := a.Service.Limiter().WaitForDrain(ctx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}
	}
	a.Pool.Close()
}

// Handler serves the operational endpoints.
func (a *App) Handler() http.Handler {
	return NewHandler(a.Pool, a.Registry)
}

// Pinger checks the database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHandler returns a router with /healthz and /metrics.
func NewHandler(db Pinger, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler(g))
	return r
}

// ImportVote replaces the results of the stored vote id. The returned
// Errors are meant for the uploader, the error for the operator.
func (a *App) ImportVote(ctx context.Context, id, format string, uploads []core.Upload) (core.Errors, error) {
	return a.importTx(ctx, func(s *postgres.Store) (core.Errors, error) {
		if err := s.LockVote(ctx, id); err != nil {
			return nil, err
		}
		vote, err := s.LoadVote(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.Service.ImportVote(ctx, s, core.VoteRequest{
			Vote:      vote,
			Principal: a.Principal,
			Format:    format,
			Uploads:   uploads,
		}), nil
	})
}

// ImportElection replaces the results of the stored election id.
func (a *App) ImportElection(ctx context.Context, id, format, number, district string, uploads []core.Upload) (core.Errors, error) {
	return a.importTx(ctx, func(s *postgres.Store) (core.Errors, error) {
		if err := s.LockElection(ctx, id); err != nil {
			return nil, err
		}
		election, err := s.LoadElection(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.Service.ImportElection(ctx, s, core.ElectionRequest{
			Election:  election,
			Principal: a.Principal,
			Format:    format,
			Number:    number,
			District:  district,
			Uploads:   uploads,
		}), nil
	})
}

// ImportElectionParties replaces the party results of a proporz election.
func (a *App) ImportElectionParties(ctx context.Context, id, format string, uploads []core.Upload) (core.Errors, error) {
	return a.importTx(ctx, func(s *postgres.Store) (core.Errors, error) {
		if err := s.LockElection(ctx, id); err != nil {
			return nil, err
		}
		election, err := s.LoadElection(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.Service.ImportElectionParties(ctx, s, election, a.partiesRequest(format, uploads)), nil
	})
}

// ImportCompoundParties replaces the party results of an election compound.
func (a *App) ImportCompoundParties(ctx context.Context, id, format string, uploads []core.Upload) (core.Errors, error) {
	return a.importTx(ctx, func(s *postgres.Store) (core.Errors, error) {
		if err := s.LockElectionCompound(ctx, id); err != nil {
			return nil, err
		}
		compound, err := s.LoadElectionCompound(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.Service.ImportCompoundParties(ctx, s, compound, a.partiesRequest(format, uploads)), nil
	})
}

func (a *App) partiesRequest(format string, uploads []core.Upload) core.PartiesRequest {
	return core.PartiesRequest{Principal: a.Principal, Format: format, Uploads: uploads}
}

// importTx runs fn in a transaction. Rejected imports roll back, storage
// failures are retried by postgres.WithTx when they are transient.
func (a *App) importTx(ctx context.Context, fn func(s *postgres.Store) (core.Errors, error)) (core.Errors, error) {
	errs, err := runImport(func(fn func(s *postgres.Store) error) error {
		return postgres.WithTx(ctx, a.Pool, RetryOptions(a.Config), fn)
	}, fn)
	if err != nil {
		logging.FromContext(ctx).Error("import failed", "error", err)
	}
	return errs, err
}

// runImport maps the outcome of fn onto the transaction: nil commits,
// anything else rolls back.
func runImport(tx func(func(s *postgres.Store) error) error, fn func(s *postgres.Store) (core.Errors, error)) (core.Errors, error) {
	var errs core.Errors
	err := tx(func(s *postgres.Store) error {
		var err error
		errs, err = fn(s)
		if err != nil {
			return err
		}
		if errs.Empty() {
			return nil
		}
		if cause := errs.Err(); core.IsRetryable(cause) {
			return cause
		}
		return errRejected
	})
	switch {
	case err == nil, errors.Is(err, errRejected):
		return errs, nil
	case errors.Is(err, postgres.ErrNotFound):
		return nil, fmt.Errorf("import target: %w", err)
	case !errs.Empty():
		return errs, nil
	default:
		return nil, err
	}
}

// Progress reports the counted results of a stored vote or election.
func (a *App) Progress(ctx context.Context, target core.Target, id string) (models.Progress, error) {
	s := postgres.New(a.Pool)
	switch target {
	case core.TargetVote:
		return s.VoteProgress(ctx, id)
	case core.TargetElection:
		return s.ElectionProgress(ctx, id)
	default:
		return models.Progress{}, fmt.Errorf("no progress for %s", target)
	}
}
