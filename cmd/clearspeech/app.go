package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/clearspeech/internal/config"
	"github.com/MrWong99/clearspeech/internal/exercise"
	"github.com/MrWong99/clearspeech/internal/history"
	"github.com/MrWong99/clearspeech/internal/observe"
	"github.com/MrWong99/clearspeech/internal/practice"
)

// app is the wiring shared by all commands.
type app struct {
	cfg     *config.Config
	cfgPath string
	level   *slog.LevelVar

	registry  *config.Registry
	telemetry *observe.Telemetry
	metrics   *observe.Metrics
	svc       *practice.Service
}

// newApp loads the configuration, installs the logger and telemetry, and
// builds the practice service.
func newApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, path, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	logger, level := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	slog.Debug("configuration loaded", "path", path, "log_level", cfg.LogLevel)

	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: cfg.Telemetry.ServiceName})
	if err != nil {
		return nil, err
	}
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	a := &app{
		cfg:       cfg,
		cfgPath:   path,
		level:     level,
		registry:  config.NewRegistry(),
		telemetry: tel,
		metrics:   metrics,
	}
	registerBuiltinProviders(a.registry)

	catalog, err := exercise.Load(cfg.Exercises.Path)
	if err != nil {
		a.Close()
		return nil, err
	}

	var store history.Store = history.NewMemStore()
	if cfg.History.Path != "" {
		if store, err = history.OpenFileStore(cfg.History.Path); err != nil {
			a.Close()
			return nil, err
		}
	}

	gen, err := buildFeedback(cfg.Feedback, a.registry, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	user := cfg.User
	opts := []practice.Option{
		practice.WithCatalog(catalog),
		practice.WithStore(store),
		practice.WithMetrics(a.metrics),
		practice.WithUserContext(&user),
	}
	if gen != nil {
		opts = append(opts, practice.WithFeedback(gen, cfg.Feedback.Timeout))
	}
	if a.svc, err = practice.New(cfg.Scoring, opts...); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// applyConfig pushes a reloaded configuration into the running service.
func (a *app) applyConfig(old, cfg *config.Config) {
	d := config.Diff(old, cfg)
	if !d.Changed() {
		return
	}
	if d.LogLevelChanged {
		a.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.ScoringChanged {
		if err := a.svc.SetScoringConfig(cfg.Scoring); err != nil {
			slog.Warn("reloaded scoring config rejected", "err", err)
		} else {
			slog.Info("scoring config reloaded", "match_threshold", cfg.Scoring.MatchThreshold)
		}
	}
	if d.FeedbackChanged {
		gen, err := buildFeedback(cfg.Feedback, a.registry, a.metrics)
		if err != nil {
			slog.Warn("reloaded feedback config rejected", "err", err)
		} else {
			a.svc.SetFeedback(gen, cfg.Feedback.Timeout)
			slog.Info("feedback providers reloaded")
		}
	}
	if d.UserChanged {
		user := cfg.User
		a.svc.SetUserContext(&user)
	}
	restart := d.RestartRequired
	if d.ExercisesChanged {
		restart = append(restart, "exercises.path")
	}
	if len(restart) > 0 {
		slog.Warn("some configuration changes take effect after a restart", "fields", restart)
	}
}

// Close writes the metrics textfile, if configured, and shuts telemetry down.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if path := a.cfg.Telemetry.MetricsTextfile; path != "" {
		if err := observe.WriteTextfile(path, a.telemetry.Registry()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}
