package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"modelkeeper/internal/backend"
	"modelkeeper/internal/config"
	"modelkeeper/internal/lifecycle"
	"modelkeeper/internal/store"
	"modelkeeper/internal/trainingdata"
	"modelkeeper/pkg/types"
)

// app is everything a command needs once configuration is resolved.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	mgr   *lifecycle.Manager
	close func()
}

// loadConfig reads the optional file, then MODELKEEPER_* overrides, then
// defaults. The returned config is validated.
func loadConfig(path string, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	baseDir := ""
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
		baseDir = filepath.Dir(path)
	}
	if err := config.ApplyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	cfg, err := cfg.WithDefaults().ResolvePaths(baseDir)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "modelkeeper").Logger()
}

func newBackend(cfg config.Config) backend.Backend {
	opts := backend.Options{
		BaseURL:        cfg.Service.URL,
		Username:       cfg.Service.Username,
		Password:       cfg.Service.Password,
		RequestTimeout: cfg.Service.RequestTimeout(),
	}
	if types.Kind(cfg.Service.Kind) == types.KindRanker {
		return backend.NewRankerBackend(backend.RankerOptions{
			Options:            opts,
			ClusterID:          cfg.Ranker.ClusterID,
			Collection:         cfg.Ranker.Collection,
			FeatureConcurrency: cfg.Ranker.FeatureConcurrency,
		})
	}
	return backend.NewClassifierBackend(opts)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	if cfg.Driver == "postgres" {
		pg, err := store.OpenPG(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return store.NewMemoryStore(), func() {}, nil
}

// newApp wires the backend, document store, row source and claims into a
// lifecycle manager.
func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger := newLogger(logOut, cfg.LogLevel)
	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	var rows trainingdata.RowSource
	if cfg.Training.RowsFile != "" {
		rows, err = trainingdata.FromFile(cfg.Training.RowsFile)
		if err != nil {
			closeStore()
			return nil, err
		}
	}
	var claims *store.Claims
	if cfg.Claims.Enabled {
		claims = store.NewClaims(st, cfg.Claims.Owner, cfg.Claims.ClaimTTL())
		logger.Debug().Str("owner", claims.Owner()).Msg("launch claims enabled")
	}
	mgr := lifecycle.NewWithConfig(lifecycle.Config{
		Backend:              newBackend(cfg),
		Name:                 cfg.Instance.Name,
		Language:             cfg.Instance.Language,
		MaxInstances:         cfg.Instance.MaxInstances,
		PollInterval:         cfg.Instance.PollInterval(),
		SkipTrainingDataSave: cfg.Instance.SaveTrainingData != nil && !*cfg.Instance.SaveTrainingData,
		RetentionFailure:     lifecycle.RetentionFailurePolicy(cfg.Instance.RetentionFailure),
		Rows:                 rows,
		TrainingData:         store.NewTrainingData(st),
		Claims:               claims,
		Logger:               &logger,
	})
	return &app{cfg: cfg, log: logger, mgr: mgr, close: closeStore}, nil
}

func readBlob(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
