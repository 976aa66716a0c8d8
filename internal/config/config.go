package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"personalens/internal/snapshot"
)

// Config is the application's configuration model.
// It captures the default target account, how snapshots are fetched, how
// stats lines are read, and where results are cached.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Parser  ParserConfig  `yaml:"parser"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type AccountConfig struct {
	Username string `yaml:"username"`
}

type FetchConfig struct {
	// Camofox browser server. If empty, read from env CAMOFOX_URL
	CamofoxURL string `yaml:"camofoxURL"`
	// Nitter instance to render profiles. If empty, read NITTER_INSTANCE, then probe
	NitterInstance string `yaml:"nitterInstance"`
	// Public instance list consulted when the default instance is down
	InstancesURL string `yaml:"instancesURL"`
	SessionID    string `yaml:"sessionID"`
	PostCount    int    `yaml:"postCount"`
	// "cursor" follows ?cursor= links, "click" presses "Load more"
	Mode    string        `yaml:"mode"`
	Timeout time.Duration `yaml:"timeout"`
	// Camofox request pacing. Env CAMOFOX_RPS / CAMOFOX_BURST win
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

type ParserConfig struct {
	// Token count -> counter roles, e.g. {4: [replies, retweets, likes, views]}.
	// Entries replace the built-in 1/2/3-token layout for the same count.
	StatsLayout map[int][]string `yaml:"statsLayout"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	// Listen address for /metrics; empty disables. Env METRICS_ADDR
	Addr string `yaml:"addr"`
}

const (
	ModeCursor = "cursor"
	ModeClick  = "click"
)

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{Username: ""},
		Fetch: FetchConfig{
			CamofoxURL:   "http://localhost:9377",
			InstancesURL: "https://raw.githubusercontent.com/libredirect/instances/main/data.json",
			SessionID:    "persona-lens",
			PostCount:    20,
			Mode:         ModeCursor,
			Timeout:      30 * time.Second,

			RequestsPerSecond: 1,
			Burst:             3,
		},
		Parser:  ParserConfig{},
		Storage: StorageConfig{DBPath: "./personalens.db"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("CAMOFOX_URL"); v != "" && (c.Fetch.CamofoxURL == "" || c.Fetch.CamofoxURL == Default().Fetch.CamofoxURL) {
		c.Fetch.CamofoxURL = v
	}
	if c.Fetch.NitterInstance == "" {
		c.Fetch.NitterInstance = os.Getenv("NITTER_INSTANCE")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Validate checks fields that would otherwise fail deep inside a fetch.
func (c Config) Validate() error {
	switch c.Fetch.Mode {
	case "", ModeCursor, ModeClick:
	default:
		return fmt.Errorf("fetch.mode: unknown mode %q", c.Fetch.Mode)
	}
	if c.Fetch.PostCount < 0 {
		return fmt.Errorf("fetch.postCount: must not be negative, got %d", c.Fetch.PostCount)
	}
	if c.Fetch.RequestsPerSecond < 0 || c.Fetch.Burst < 0 {
		return errors.New("fetch: requestsPerSecond and burst must not be negative")
	}
	if _, err := c.StatsLayout(); err != nil {
		return fmt.Errorf("parser.statsLayout: %w", err)
	}
	return nil
}

// StatsLayout merges parser.statsLayout over the built-in layout.
func (c Config) StatsLayout() (snapshot.StatsLayout, error) {
	return snapshot.ParseStatsLayout(c.Parser.StatsLayout)
}

// Load reads YAML config from path. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.ResolveEnv()
		return cfg, nil
	}
	return cfg, err
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
