package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the backend location, transport policy, local storage and logging.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Inbox   InboxConfig   `yaml:"inbox"`
}

type APIConfig struct {
	BaseURL string `yaml:"baseURL"`
	// Per-request timeout. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// Client-side rate limit
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Retries apply to idempotent GETs only
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	// Empty disables the metrics server
	Addr string `yaml:"addr"`
}

type InboxConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:     "http://localhost:3000",
			Timeout:     15 * time.Second,
			RPS:         5,
			Burst:       10,
			MaxAttempts: 3,
			BaseBackoff: 500 * time.Millisecond,
		},
		Storage: StorageConfig{DBPath: "./insta.db"},
		Log:     LogConfig{Level: "info"},
		Inbox:   InboxConfig{PollInterval: 10 * time.Second},
	}
}

// ResolveEnv loads ./.env when present and applies INSTA_* overrides.
func (c *Config) ResolveEnv() {
	_ = godotenv.Load()
	if v := os.Getenv("INSTA_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("INSTA_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.Timeout = d
		}
	}
	if v := os.Getenv("INSTA_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.API.RPS = f
		}
	}
	if v := os.Getenv("INSTA_API_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.API.MaxAttempts = n
		}
	}
	if v := os.Getenv("INSTA_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("INSTA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" && c.Metrics.Addr == "" {
		c.Metrics.Addr = v
	}
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error: defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
