package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MICRORES_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" || cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Engine.Strategy != "euclidean" || cfg.Engine.IndexScaling != 0.1 || cfg.Engine.DTWWindow != 5 {
		t.Fatalf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Sources.Core.MatrixPath != "/api/v1/rca/metric-matrix" {
		t.Fatalf("unexpected matrix path %s", cfg.Sources.Core.MatrixPath)
	}
	if cfg.Cache.Size != 256 || cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("unexpected cache defaults %+v", cfg.Cache)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microres.yaml")
	if err := os.WriteFile(path, []byte(`server:
  address: ":6000"
engine:
  strategy: dtw
  dtwWindow: 3
sources:
  default: influx
  influx:
    url: http://influx:8086
    bucket: perf
cache:
  enabled: true
  size: 16
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MICRORES_INDEX_SCALING", "0.5")
	t.Setenv("MICRORES_LOG_FORMAT", "json")
	t.Setenv("MICRORES_CACHE_TTL", "1m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":6000" || cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("unexpected server %+v", cfg.Server)
	}
	if cfg.Engine.Strategy != "dtw" || cfg.Engine.DTWWindow != 3 || cfg.Engine.IndexScaling != 0.5 {
		t.Fatalf("unexpected engine %+v", cfg.Engine)
	}
	if cfg.Sources.Default != SourceInflux || cfg.Sources.Influx.Bucket != "perf" || cfg.Sources.Influx.Field != "value" {
		t.Fatalf("unexpected sources %+v", cfg.Sources)
	}
	if !cfg.Logging.JSON {
		t.Fatalf("expected json logging from env")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Size != 16 || cfg.Cache.TTL != time.Minute {
		t.Fatalf("unexpected cache %+v", cfg.Cache)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown strategy", func(c *Config) { c.Engine.Strategy = "manhattan" }, "engine.strategy"},
		{"zero scaling", func(c *Config) { c.Engine.IndexScaling = 0 }, "indexScaling"},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }, "workers"},
		{"bad source", func(c *Config) { c.Sources.Default = "graphite" }, "sources.default"},
		{"empty cache", func(c *Config) { c.Cache.Enabled = true; c.Cache.Size = 0 }, "cache.size"},
		{"history without path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }, "history.path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	t.Setenv("MICRORES_RULES_WATCH", "")
	cfg, err := Load(filepath.Join("..", "..", "configs", "microres.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if !cfg.Rules.Watch || cfg.Rules.Path != "configs/rules/categories.yaml" {
		t.Fatalf("unexpected rules config %+v", cfg.Rules)
	}
	if !cfg.History.Enabled || !cfg.Cache.Enabled {
		t.Fatalf("expected history and cache enabled, got %+v %+v", cfg.History, cfg.Cache)
	}
	if cfg.Sources.Default != SourceCore || cfg.Sources.Core.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected sources %+v", cfg.Sources)
	}
}
