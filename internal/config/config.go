// Package config loads pipeline configuration from an optional YAML
// file plus environment variable overrides, layered the way
// pkg/config/env.go and pkg/config/zero_config.go do: a file provides
// defaults, environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TTLs holds per-intent cache TTLs, in seconds.
type TTLs struct {
	Status  int `yaml:"status"`
	General int `yaml:"general"`
	Explain int `yaml:"explain"`
	Code    int `yaml:"code"`
	Default int `yaml:"default"`
}

// Config is the resolved configuration for one pipeline instance.
type Config struct {
	Project     string `yaml:"project"`
	ProjectRoot string `yaml:"project_root"`

	ContextMaxChars int `yaml:"context_chars"`
	TopK            int `yaml:"top_k"`

	CacheDisabled   bool `yaml:"cache_disabled"`
	CacheMaxEntries int  `yaml:"cache_max_entries"`
	CacheTTLs       TTLs `yaml:"cache_ttl"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TraceExporter   string `yaml:"trace_exporter"`
	AutoSave        bool   `yaml:"auto_save"`

	DataDir string `yaml:"data_dir"`

	FastModel string `yaml:"fast_model"`
	MainModel string `yaml:"main_model"`

	MemoryTimeout time.Duration `yaml:"-"`
}

// SetDefaults fills in zero-valued fields with the pipeline's defaults.
func (c *Config) SetDefaults() {
	if c.ContextMaxChars == 0 {
		c.ContextMaxChars = 120_000
	}
	if c.TopK == 0 {
		c.TopK = 20
	}
	if c.CacheMaxEntries == 0 {
		c.CacheMaxEntries = 1000
	}
	if c.CacheTTLs.Status == 0 {
		c.CacheTTLs.Status = 180
	}
	if c.CacheTTLs.General == 0 {
		c.CacheTTLs.General = 600
	}
	if c.CacheTTLs.Explain == 0 {
		c.CacheTTLs.Explain = 600
	}
	if c.CacheTTLs.Code == 0 {
		c.CacheTTLs.Code = 90
	}
	if c.CacheTTLs.Default == 0 {
		c.CacheTTLs.Default = 900
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.ProjectRoot == "" {
		c.ProjectRoot = "."
	}
	if c.MemoryTimeout == 0 {
		c.MemoryTimeout = 30 * time.Second
	}
	if c.TraceExporter == "" {
		c.TraceExporter = "jsonl"
	}
}

// Validate checks that the resolved configuration is usable. A failure
// here is a Configuration error: fatal, surfaced at startup with a
// non-zero exit.
func (c *Config) Validate() error {
	if c.ProjectRoot == "" {
		return fmt.Errorf("project root is required")
	}
	if info, err := os.Stat(c.ProjectRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("project root %q is not a readable directory", c.ProjectRoot)
	}
	return nil
}

// Load reads an optional YAML file, overlays environment variables
// (including a .env file if present), then fills any field still at its
// zero value with defaults: file < environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	_ = godotenv.Load() // best-effort; missing .env is not an error

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RAG_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("RAG_PROJECT_ROOT"); v != "" {
		cfg.ProjectRoot = v
	}
	if v := envInt("RAG_CONTEXT_CHARS"); v != 0 {
		cfg.ContextMaxChars = v
	}
	if v := envInt("RAG_TOP_K"); v != 0 {
		cfg.TopK = v
	}
	if v := envInt("RAG_CACHE_TTL"); v != 0 {
		cfg.CacheTTLs.Default = v
	}
	if v := envInt("RAG_CACHE_MAX_ENTRIES"); v != 0 {
		cfg.CacheMaxEntries = v
	}
	if v := os.Getenv("RAG_DISABLE_CACHE"); v != "" {
		cfg.CacheDisabled = envBool(v)
	}
	if v := envInt("RAG_CACHE_TTL_STATUS"); v != 0 {
		cfg.CacheTTLs.Status = v
	}
	if v := envInt("RAG_CACHE_TTL_GENERAL"); v != 0 {
		cfg.CacheTTLs.General = v
	}
	if v := envInt("RAG_CACHE_TTL_EXPLAIN"); v != 0 {
		cfg.CacheTTLs.Explain = v
	}
	if v := envInt("RAG_CACHE_TTL_CODE"); v != 0 {
		cfg.CacheTTLs.Code = v
	}
	if v := os.Getenv("RAG_TRACING_ENABLED"); v != "" {
		cfg.TracingEnabled = envBool(v)
	}
	if v := os.Getenv("RAG_TRACE_EXPORTER"); v != "" {
		cfg.TraceExporter = v
	}
	if v := os.Getenv("RAG_AUTO_SAVE"); v != "" {
		cfg.AutoSave = envBool(v)
	}
}

func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}

func envBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// TTLForIntent returns the configured cache TTL, in seconds, for the
// given intent string (one of the ragtypes.Intent values).
func (c *Config) TTLForIntent(intent string) int {
	switch intent {
	case "status":
		return c.CacheTTLs.Status
	case "general":
		return c.CacheTTLs.General
	case "explain":
		return c.CacheTTLs.Explain
	case "code":
		return c.CacheTTLs.Code
	default:
		return c.CacheTTLs.Default
	}
}
