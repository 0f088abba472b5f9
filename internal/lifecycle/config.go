package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"modelkeeper/internal/backend"
	"modelkeeper/internal/store"
	"modelkeeper/internal/trainingdata"
	"modelkeeper/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPollInterval = 60 * time.Second
	defaultLanguage     = "en"
)

// RetentionFailurePolicy decides what a completed monitor does when pruning
// old instances fails.
type RetentionFailurePolicy string

const (
	// RetentionFail fails the monitor call with the RetentionError.
	RetentionFail RetentionFailurePolicy = "fail"
	// RetentionIgnore logs the error and returns the available instance.
	RetentionIgnore RetentionFailurePolicy = "ignore"
)

// DefaultName returns the logical instance name used when none is configured.
func DefaultName(k types.Kind) string { return "default-" + string(k) }

// DefaultMaxInstances returns the per-kind retention limit.
func DefaultMaxInstances(k types.Kind) int {
	if k == types.KindRanker {
		return 1
	}
	return 3
}

// Sleeper waits between status polls. Sleep returns early with ctx.Err() when
// ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Backend is the remote service client. Required.
	Backend      backend.Backend
	Name         string
	Language     string
	MaxInstances int
	PollInterval time.Duration
	// SkipTrainingDataSave disables recording training blobs after launch.
	SkipTrainingDataSave bool
	RetentionFailure     RetentionFailurePolicy
	// Rows supplies training rows when a launch is given no data.
	Rows trainingdata.RowSource
	// TrainingData records blobs per instance; nil disables persistence.
	TrainingData *store.TrainingData
	// Claims enables cross-process launch claims keyed by kind and name.
	Claims *store.Claims

	Logger    *zerolog.Logger
	Publisher EventPublisher
	Clock     func() time.Time
	Sleeper   Sleeper
}

// New constructs a Manager for b with package defaults.
func New(b backend.Backend, name string) *Manager {
	return NewWithConfig(Config{Backend: b, Name: name})
}

// NewWithConfig constructs a Manager from Config.
func NewWithConfig(cfg Config) *Manager {
	if cfg.Backend == nil {
		panic("lifecycle: Config.Backend is required")
	}
	kind := cfg.Backend.Kind()
	m := &Manager{
		b:        cfg.Backend,
		kind:     kind,
		name:     cfg.Name,
		language: cfg.Language,
		maxInst:  cfg.MaxInstances,
		interval: cfg.PollInterval,
		save:     !cfg.SkipTrainingDataSave,
		policy:   cfg.RetentionFailure,
		rows:     cfg.Rows,
		data:     cfg.TrainingData,
		claims:   cfg.Claims,
		now:      cfg.Clock,
		sleeper:  cfg.Sleeper,
		pub:      cfg.Publisher,
	}
	// Apply defaults if unset
	if m.name == "" {
		m.name = DefaultName(kind)
	}
	if m.language == "" {
		m.language = defaultLanguage
	}
	if m.maxInst <= 0 {
		m.maxInst = DefaultMaxInstances(kind)
	}
	if m.interval <= 0 {
		m.interval = defaultPollInterval
	}
	if m.policy == "" {
		m.policy = RetentionFail
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("kind", string(kind)).Str("name", m.name).Logger()
	} else {
		m.log = zerolog.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.sleeper == nil {
		m.sleeper = timerSleeper{}
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	return m
}
