package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/microres/internal/cache"
	"github.com/miradorstack/microres/internal/config"
	"github.com/miradorstack/microres/internal/engine"
	"github.com/miradorstack/microres/internal/history"
	"github.com/miradorstack/microres/internal/repo"
	"github.com/miradorstack/microres/internal/services"
	"github.com/miradorstack/microres/internal/tracing"
	"github.com/miradorstack/microres/internal/utils"
)

// app holds everything a command needs, plus the closers to run on exit.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *services.ResilienceService
	rules   *engine.CategoryRules
	tracing *tracing.Provider
	closers []func() error
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger := utils.NewLogger(logOut, cfg.Logging.Level, cfg.Logging.JSON)
	a := &app{cfg: cfg, logger: logger}

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: "microres",
		Version:     version,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.tracing = tp

	evaluator, err := engine.NewEvaluator(logger, engine.Options{
		Strategy:     cfg.Engine.Strategy,
		IndexScaling: cfg.Engine.IndexScaling,
		DTWWindow:    cfg.Engine.DTWWindow,
		Workers:      cfg.Engine.Workers,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	rules, err := loadRules(cfg.Rules, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.rules = rules

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		lru, err := cache.NewLRUProvider(cfg.Cache.Size)
		if err != nil {
			a.Close()
			return nil, err
		}
		cacheProvider = lru
		a.closers = append(a.closers, lru.Close)
	}

	source := a.metricSource(cacheProvider)

	opts := services.Options{
		Rules:    rules,
		Source:   source,
		Cache:    cacheProvider,
		CacheTTL: cfg.Cache.TTL,
	}
	if cfg.History.Enabled {
		store, err := history.Open(history.Config{
			Path:     cfg.History.Path,
			InMemory: cfg.History.InMemory,
			Logger:   logger,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		opts.History = store
		a.closers = append(a.closers, store.Close)
	}

	a.service = services.NewResilienceService(logger, evaluator, opts)
	return a, nil
}

func (a *app) metricSource(cacheProvider cache.Provider) repo.MetricSource {
	switch a.cfg.Sources.Default {
	case config.SourceInflux:
		if a.cfg.Sources.Influx.URL == "" {
			return nil
		}
		influx := repo.NewInfluxSource(
			a.cfg.Sources.Influx.URL,
			a.cfg.Sources.Influx.Token,
			a.cfg.Sources.Influx.Org,
			a.cfg.Sources.Influx.Timeout,
			repo.InfluxSourceConfig{
				Bucket:      a.cfg.Sources.Influx.Bucket,
				Measurement: a.cfg.Sources.Influx.Measurement,
				Field:       a.cfg.Sources.Influx.Field,
			},
		)
		a.closers = append(a.closers, func() error { influx.Close(); return nil })
		return influx
	default:
		if a.cfg.Sources.Core.BaseURL == "" {
			return nil
		}
		return repo.NewMiradorCoreClient(
			a.cfg.Sources.Core.BaseURL,
			a.cfg.Sources.Core.MatrixPath,
			a.cfg.Sources.Core.Timeout,
			cacheProvider,
			a.cfg.Cache.TTL,
		)
	}
}

// Close runs every closer in reverse order and flushes traces.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.tracing != nil {
		if err := a.tracing.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadRules reads the category rule file. A watched path that does not exist yet starts with an
// empty rule set so the watcher has something to swap the file's rules into once it appears.
func loadRules(cfg config.RulesConfig, logger *slog.Logger) (*engine.CategoryRules, error) {
	rules, err := engine.NewCategoryRules(cfg.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}
	if rules != nil {
		return rules, nil
	}
	logger.Debug("no category rules loaded", slog.String("path", cfg.Path))
	if cfg.Watch && cfg.Path != "" {
		return engine.ParseCategoryRules(nil, logger)
	}
	return nil, nil
}
