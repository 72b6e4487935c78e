package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/microres/internal/distance"
	"github.com/miradorstack/microres/internal/utils"
)

// Config captures the settings required to boot the resilience service and CLI.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Sources SourcesConfig `yaml:"sources"`
	Rules   RulesConfig   `yaml:"rules"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	MaxRecvMsgBytes int           `yaml:"maxRecvMsgBytes"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// EngineConfig tunes ranking and indexing.
type EngineConfig struct {
	Strategy     string  `yaml:"strategy"`
	IndexScaling float64 `yaml:"indexScaling"`
	DTWWindow    int     `yaml:"dtwWindow"`
	Workers      int     `yaml:"workers"`
}

// SourcesConfig groups the metric backends a case may be resolved against.
type SourcesConfig struct {
	Default string             `yaml:"default"`
	Core    CoreSourceConfig   `yaml:"core"`
	Influx  InfluxSourceConfig `yaml:"influx"`
}

// CoreSourceConfig configures access to the mirador-core metric matrix API.
type CoreSourceConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	MatrixPath string        `yaml:"matrixPath"`
	Timeout    time.Duration `yaml:"timeout"`
}

// InfluxSourceConfig configures InfluxDB access.
type InfluxSourceConfig struct {
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	Org         string        `yaml:"org"`
	Bucket      string        `yaml:"bucket"`
	Measurement string        `yaml:"measurement"`
	Field       string        `yaml:"field"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RulesConfig controls category rule loading.
type RulesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// CacheConfig controls the in-process result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// HistoryConfig controls evaluation persistence.
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"inMemory"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

const (
	SourceCore   = "core"
	SourceInflux = "influx"
)

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MICRORES_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if _, ok := utils.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if _, err := distance.Lookup(c.Engine.Strategy, distance.Options{DTWWindow: c.Engine.DTWWindow}); err != nil {
		return fmt.Errorf("engine.strategy: %w", err)
	}
	if !(c.Engine.IndexScaling > 0) {
		return fmt.Errorf("engine.indexScaling must be positive, got %v", c.Engine.IndexScaling)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	switch c.Sources.Default {
	case "", SourceCore, SourceInflux:
	default:
		return fmt.Errorf("sources.default must be %q or %q, got %q", SourceCore, SourceInflux, c.Sources.Default)
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive when the cache is enabled")
	}
	if c.History.Enabled && !c.History.InMemory && c.History.Path == "" {
		return fmt.Errorf("history.path is required unless history.inMemory is set")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			MaxRecvMsgBytes: 16 << 20,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Engine: EngineConfig{
			Strategy:     distance.StrategyEuclidean,
			IndexScaling: 0.1,
			DTWWindow:    distance.DefaultDTWWindow,
		},
		Sources: SourcesConfig{
			Default: SourceCore,
			Core: CoreSourceConfig{
				MatrixPath: "/api/v1/rca/metric-matrix",
				Timeout:    5 * time.Second,
			},
			Influx: InfluxSourceConfig{
				Measurement: "microres_metrics",
				Field:       "value",
				Timeout:     10 * time.Second,
			},
		},
		Rules: RulesConfig{Path: "configs/rules/categories.yaml"},
		Cache: CacheConfig{
			Enabled: false,
			Size:    256,
			TTL:     10 * time.Minute,
		},
		History: HistoryConfig{Path: "data/history"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MICRORES_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MICRORES_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MICRORES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MICRORES_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MICRORES_STRATEGY"); v != "" {
		cfg.Engine.Strategy = v
	}
	if v := os.Getenv("MICRORES_INDEX_SCALING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.IndexScaling = f
		}
	}
	if v := os.Getenv("MICRORES_DTW_WINDOW"); v != "" {
		if w, err := strconv.Atoi(v); err == nil {
			cfg.Engine.DTWWindow = w
		}
	}
	if v := os.Getenv("MICRORES_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("MICRORES_SOURCE"); v != "" {
		cfg.Sources.Default = v
	}
	if v := os.Getenv("MIRADOR_CORE_BASE_URL"); v != "" {
		cfg.Sources.Core.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_CORE_MATRIX_PATH"); v != "" {
		cfg.Sources.Core.MatrixPath = v
	}
	if v := os.Getenv("MICRORES_INFLUX_URL"); v != "" {
		cfg.Sources.Influx.URL = v
	}
	if v := os.Getenv("MICRORES_INFLUX_TOKEN"); v != "" {
		cfg.Sources.Influx.Token = v
	}
	if v := os.Getenv("MICRORES_INFLUX_ORG"); v != "" {
		cfg.Sources.Influx.Org = v
	}
	if v := os.Getenv("MICRORES_INFLUX_BUCKET"); v != "" {
		cfg.Sources.Influx.Bucket = v
	}
	if v := os.Getenv("MICRORES_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("MICRORES_RULES_WATCH"); v != "" {
		cfg.Rules.Watch = parseBool(v)
	}
	if v := os.Getenv("MICRORES_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("MICRORES_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = n
		}
	}
	if v := os.Getenv("MICRORES_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("MICRORES_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("MICRORES_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("MICRORES_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("MICRORES_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
