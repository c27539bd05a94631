// Package app provides application-level wiring and dependency injection
// for the trackerql server and CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"trackerql/internal/compiler"
	"trackerql/internal/config"
	"trackerql/internal/engine"
	"trackerql/internal/metadata"
	"trackerql/internal/planstore"
	"trackerql/internal/service/analytics"
	"trackerql/internal/sqlrewrite"
)

// Deps holds the external dependencies that main() must provide.
// AnalyticsDB is nil when no analytics database is configured; queries can
// then be compiled but not executed or analyzed.
type Deps struct {
	Cfg         *config.Config
	AnalyticsDB *sql.DB
	MetaDB      *sql.DB
	Logger      *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Analytics *analytics.Service
	Catalog   *metadata.Store
	Optimizer *sqlrewrite.Optimizer
	Plans     *planstore.Store

	scheduler *planstore.PoolScheduler
	janitor   *planstore.Janitor
	logger    *slog.Logger
}

var errNoAnalyticsDB = errors.New("no analytics database configured")

// unavailableAnalyzer records degenerate plans when there is nothing to explain against.
type unavailableAnalyzer struct{}

func (unavailableAnalyzer) Explain(context.Context, string, ...any) ([]byte, error) {
	return nil, errNoAnalyticsDB
}

// New wires the catalog, optimizer, plan store and analytics service from
// the provided deps. Call Start to run background jobs and Close on shutdown.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ordering, err := compiler.ParseOffsetOrdering(cfg.OffsetOrdering)
	if err != nil {
		return nil, fmt.Errorf("offset ordering: %w", err)
	}

	var (
		analyzer planstore.Analyzer = unavailableAnalyzer{}
		executor *engine.Executor
	)
	if deps.AnalyticsDB != nil {
		var opts []engine.AnalyzerOption
		if cfg.ExplainRateLimit > 0 {
			opts = append(opts, engine.WithRateLimit(cfg.ExplainRateLimit))
		}
		analyzer = engine.NewAnalyzer(deps.AnalyticsDB, opts...)
		executor = engine.NewExecutor(deps.AnalyticsDB)
	}

	scheduler := planstore.NewPoolScheduler(cfg.PlanEvictionWorkers, logger)
	plans := planstore.New(analyzer, scheduler,
		planstore.WithLogger(logger),
		planstore.WithEvictionDelay(cfg.PlanEvictionDelay))

	catalog := metadata.NewStore(deps.MetaDB)
	optimizer := sqlrewrite.NewOptimizer(sqlrewrite.WithLogger(logger))

	svcOpts := []analytics.Option{
		analytics.WithLogger(logger),
		analytics.WithOffsetOrdering(ordering),
		analytics.WithOptimizer(cfg.CTEOptimizerEnabled),
		analytics.WithSQL(!cfg.IsProduction()),
	}
	var svc *analytics.Service
	if executor != nil {
		svc = analytics.NewService(catalog, executor, plans, optimizer, svcOpts...)
	} else {
		svc = analytics.NewService(catalog, nil, plans, optimizer, svcOpts...)
	}

	return &App{
		Analytics: svc,
		Catalog:   catalog,
		Optimizer: optimizer,
		Plans:     plans,
		scheduler: scheduler,
		janitor:   planstore.NewJanitor(plans, cfg.PlanJanitorSchedule, cfg.PlanMaxAge, logger),
		logger:    logger,
	}, nil
}

// Start runs the plan janitor.
func (a *App) Start() error {
	return a.janitor.Start()
}

// Close stops the janitor and waits for scheduled plan evictions.
func (a *App) Close() {
	a.janitor.Stop()
	a.scheduler.Wait()
	a.logger.Info("analytics app stopped")
}
