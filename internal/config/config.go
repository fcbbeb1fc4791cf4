// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	UploadDir string `yaml:"upload_dir"` // root the intake layer stores assets under
}

type AdminConfig struct {
	Port          int           `yaml:"port"`
	Password      string        `yaml:"password"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables the cache layer
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AnalysisConfig struct {
	BaseURL        string        `yaml:"base_url"`
	HealthTimeout  time.Duration `yaml:"health_timeout"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `yaml:"base_delay"`
	CapDelay   time.Duration `yaml:"cap_delay"`
	MaxRetries int           `yaml:"max_retries"`
}

type ProgressConfig struct {
	Initial  int           `yaml:"initial"`
	Handoff  int           `yaml:"handoff"`
	Step     int           `yaml:"step"`
	Interval time.Duration `yaml:"interval"`
	Ceiling  int           `yaml:"ceiling"`
}

type ReconcilerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Admin      AdminConfig      `yaml:"admin"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Retry      RetryConfig      `yaml:"retry"`
	Progress   ProgressConfig   `yaml:"progress"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path, applying defaults
// for everything the file leaves out.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	if cfg.Analysis.BaseURL == "" && !dev {
		return nil, fmt.Errorf("analysis.base_url is required")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "uploads"
	}
	if c.Admin.Port <= 0 {
		c.Admin.Port = 9090
	}
	if c.Admin.SessionTTL <= 0 {
		c.Admin.SessionTTL = 30 * time.Minute
	}
	if c.Database.PoolSize <= 0 {
		c.Database.PoolSize = 10
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 30 * time.Second
	}
	if c.Analysis.HealthTimeout <= 0 {
		c.Analysis.HealthTimeout = 5 * time.Second
	}
	if c.Analysis.ProcessTimeout <= 0 {
		c.Analysis.ProcessTimeout = 5 * time.Minute
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = time.Second
	}
	if c.Retry.CapDelay <= 0 {
		c.Retry.CapDelay = 30 * time.Second
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Progress.Initial <= 0 {
		c.Progress.Initial = 5
	}
	if c.Progress.Handoff <= 0 {
		c.Progress.Handoff = 20
	}
	if c.Progress.Step <= 0 {
		c.Progress.Step = 5
	}
	if c.Progress.Interval <= 0 {
		c.Progress.Interval = 10 * time.Second
	}
	if c.Progress.Ceiling <= 0 {
		c.Progress.Ceiling = 85
	}
	if c.Reconciler.Interval <= 0 {
		c.Reconciler.Interval = time.Minute
	}
	if c.Reconciler.StaleAfter <= 0 {
		c.Reconciler.StaleAfter = 30 * time.Minute
	}
}
