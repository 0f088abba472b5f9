package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service and the CLI.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	Service  ServiceConfig  `json:"service" yaml:"service" toml:"service"`
	Instance InstanceConfig `json:"instance" yaml:"instance" toml:"instance"`
	Ranker   RankerConfig   `json:"ranker" yaml:"ranker" toml:"ranker"`
	Store    StoreConfig    `json:"store" yaml:"store" toml:"store"`
	Training TrainingConfig `json:"training" yaml:"training" toml:"training"`
	Claims   ClaimsConfig   `json:"claims" yaml:"claims" toml:"claims"`
	CORS     CORSConfig     `json:"cors" yaml:"cors" toml:"cors"`
}

// ServiceConfig locates the remote training service.
type ServiceConfig struct {
	// Kind is "classifier" or "ranker".
	Kind                  string `json:"kind" yaml:"kind" toml:"kind"`
	URL                   string `json:"url" yaml:"url" toml:"url"`
	Username              string `json:"username" yaml:"username" toml:"username"`
	Password              string `json:"password" yaml:"password" toml:"password"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
}

type InstanceConfig struct {
	Name                string `json:"name" yaml:"name" toml:"name"`
	Language            string `json:"language" yaml:"language" toml:"language"`
	MaxInstances        int    `json:"max_instances" yaml:"max_instances" toml:"max_instances"`
	PollIntervalSeconds int    `json:"poll_interval_seconds" yaml:"poll_interval_seconds" toml:"poll_interval_seconds"`
	// RetentionFailure is "fail" (default) or "ignore".
	RetentionFailure string `json:"retention_failure" yaml:"retention_failure" toml:"retention_failure"`
	// SaveTrainingData defaults to true when unset.
	SaveTrainingData *bool `json:"save_training_data" yaml:"save_training_data" toml:"save_training_data"`
}

type RankerConfig struct {
	ClusterID          string `json:"cluster_id" yaml:"cluster_id" toml:"cluster_id"`
	Collection         string `json:"collection" yaml:"collection" toml:"collection"`
	FeatureConcurrency int    `json:"feature_concurrency" yaml:"feature_concurrency" toml:"feature_concurrency"`
}

type StoreConfig struct {
	// Driver is "memory" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver" toml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Table  string `json:"table" yaml:"table" toml:"table"`
}

type TrainingConfig struct {
	// RowsFile is a .csv or .yaml class file supplying training rows.
	RowsFile string `json:"rows_file" yaml:"rows_file" toml:"rows_file"`
}

type ClaimsConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Owner      string `json:"owner" yaml:"owner" toml:"owner"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds"`
}

type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MODELKEEPER_"

// ApplyEnv overrides cfg with MODELKEEPER_* variables read through getenv.
// Unset or empty variables leave cfg untouched.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(EnvPrefix + key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}
	str("ADDR", &cfg.Addr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("SERVICE_KIND", &cfg.Service.Kind)
	str("SERVICE_URL", &cfg.Service.URL)
	str("SERVICE_USERNAME", &cfg.Service.Username)
	str("SERVICE_PASSWORD", &cfg.Service.Password)
	str("INSTANCE_NAME", &cfg.Instance.Name)
	str("INSTANCE_LANGUAGE", &cfg.Instance.Language)
	str("RANKER_CLUSTER_ID", &cfg.Ranker.ClusterID)
	str("RANKER_COLLECTION", &cfg.Ranker.Collection)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)
	str("TRAINING_ROWS_FILE", &cfg.Training.RowsFile)
	if err := num("INSTANCE_MAX_INSTANCES", &cfg.Instance.MaxInstances); err != nil {
		return err
	}
	if err := num("INSTANCE_POLL_INTERVAL_SECONDS", &cfg.Instance.PollIntervalSeconds); err != nil {
		return err
	}
	if v := getenv(EnvPrefix + "INSTANCE_SAVE_TRAINING_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sINSTANCE_SAVE_TRAINING_DATA: %w", EnvPrefix, err)
		}
		cfg.Instance.SaveTrainingData = &b
	}
	return nil
}

// WithDefaults returns cfg with unset fields filled in.
func (cfg Config) WithDefaults() Config {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Service.Kind == "" {
		cfg.Service.Kind = "classifier"
	}
	if cfg.Service.RequestTimeoutSeconds <= 0 {
		cfg.Service.RequestTimeoutSeconds = 30
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Instance.SaveTrainingData == nil {
		t := true
		cfg.Instance.SaveTrainingData = &t
	}
	return cfg
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	switch cfg.Service.Kind {
	case "classifier", "ranker":
	default:
		return fmt.Errorf("service.kind must be classifier or ranker, got %q", cfg.Service.Kind)
	}
	if cfg.Service.URL == "" {
		return fmt.Errorf("service.url is required")
	}
	switch cfg.Store.Driver {
	case "memory":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be memory or postgres, got %q", cfg.Store.Driver)
	}
	switch cfg.Instance.RetentionFailure {
	case "", "fail", "ignore":
	default:
		return fmt.Errorf("instance.retention_failure must be fail or ignore, got %q", cfg.Instance.RetentionFailure)
	}
	return nil
}

// PollInterval returns the configured poll interval (zero when unset).
func (c InstanceConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout for the remote service.
func (c ServiceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ClaimTTL returns the claim expiry (zero when unset).
func (c ClaimsConfig) ClaimTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
