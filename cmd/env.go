package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hdtickets/ticketsearch/internal/aggregator"
	"github.com/hdtickets/ticketsearch/internal/fusion"
	"github.com/hdtickets/ticketsearch/internal/monitoring"
	"github.com/hdtickets/ticketsearch/internal/ratelimit"
	"github.com/hdtickets/ticketsearch/internal/source"
)

// env bundles everything a search needs, wired once per command.
type env struct {
	Store     ratelimit.CounterStore
	SrcConfig *source.Config
	Registry  *source.Registry
	Limiter   *ratelimit.Limiter
	Orch      *aggregator.Orchestrator
}

// initEnv builds the counter store, source registry, limiter, and
// orchestrator from the loaded config.
func initEnv(ctx context.Context, rec monitoring.Recorder) (*env, error) {
	store, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	srcCfg, err := source.LoadConfig(cfg.SourcesFile)
	if err != nil {
		store.Close()
		return nil, err
	}

	reg := source.BuildRegistry(srcCfg)
	limiter := ratelimit.NewLimiter(store, srcCfg.RateLimits())

	orch := aggregator.NewOrchestrator(reg, limiter, fusion.NewScorer(nil),
		aggregator.WithBatchSize(cfg.Search.BatchSize),
		aggregator.WithTaskTimeout(time.Duration(cfg.Search.TaskTimeoutSecs)*time.Second),
		aggregator.WithRecorder(rec),
	)

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.Strings("sources", reg.AllNames()),
	)

	return &env{
		Store:     store,
		SrcConfig: srcCfg,
		Registry:  reg,
		Limiter:   limiter,
		Orch:      orch,
	}, nil
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("closing counter store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (ratelimit.CounterStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return ratelimit.NewMemoryStore(), nil
	case "sqlite":
		return ratelimit.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return ratelimit.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
