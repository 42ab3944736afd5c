// Package config loads process configuration: an optional .env file, then
// IDSEARCH_* environment variables, then an optional YAML overlay named by
// IDSEARCH_CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pstrings "idsearch/pkg/platform/strings"
)

const envPrefix = "IDSEARCH_"

// Source names as they appear in Timeouts and Sources.
const (
	SourceDirectory     = "directory"
	SourceProfile       = "profile"
	SourceContactCenter = "contact_center"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full process configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Log      Log            `yaml:"log"`
	Search   Search         `yaml:"search"`
	Cache    Cache          `yaml:"cache"`
	Sources  Sources        `yaml:"sources"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Search holds the per-request knobs.
type Search struct {
	Deadline      time.Duration            `yaml:"deadline"`
	Timeouts      map[string]time.Duration `yaml:"timeouts"`
	Switchboard   string                   `yaml:"switchboard"`
	EnrichTimeout time.Duration            `yaml:"enrich_timeout"`
	MaxCandidates int                      `yaml:"max_candidates"`
}

// Cache configures the result cache.
type Cache struct {
	TTL           time.Duration `yaml:"ttl"`
	Size          int           `yaml:"size"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// Endpoint is one HTTP backend.
type Endpoint struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Sources configures the identity backends.
type Sources struct {
	Directory     Endpoint `yaml:"directory"`
	ContactCenter Endpoint `yaml:"contact_center"`
	// ContactCenterRPS paces contact-center calls; zero disables pacing
	ContactCenterRPS   float64 `yaml:"contact_center_rps"`
	ContactCenterBurst int     `yaml:"contact_center_burst"`
}

// RedisConfig configures the shared result cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig names the two databases. Either may be empty.
type PostgresConfig struct {
	ProfileDSN    string `yaml:"profile_dsn"`
	EnrichmentDSN string `yaml:"enrichment_dsn"`
}

// KafkaConfig configures the audit stream. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SearchSnapshot is the read-only view a single search runs with.
type SearchSnapshot struct {
	Timeouts      map[string]time.Duration
	Deadline      time.Duration
	CacheTTL      time.Duration
	Switchboard   string
	EnrichTimeout time.Duration
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:    Log{Level: "info", Format: "json"},
		Search: Search{
			Deadline: 8 * time.Second,
			Timeouts: map[string]time.Duration{
				SourceDirectory:     3 * time.Second,
				SourceContactCenter: 4 * time.Second,
				SourceProfile:       5 * time.Second,
			},
			EnrichTimeout: 2 * time.Second,
			MaxCandidates: 25,
		},
		Cache: Cache{TTL: 30 * time.Minute, Size: 10000, SweepSchedule: "@every 5m"},
		Sources: Sources{
			ContactCenterRPS:   10,
			ContactCenterBurst: 5,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Kafka: KafkaConfig{Topic: "idsearch.search-events"},
	}
}

// FromEnv builds the configuration and validates it. A missing .env file is
// not an error; a missing IDSEARCH_CONFIG_FILE is.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(envPrefix + name))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			return
		}
		*dst = d
	}
	num := func(name string, dst *int) {
		v := strings.TrimSpace(getenv(envPrefix + name))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
			return
		}
		*dst = n
	}

	str("ADDR", &c.Server.Addr)
	dur("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	dur("DEADLINE", &c.Search.Deadline)
	for name, env := range map[string]string{
		SourceDirectory:     "DIRECTORY_TIMEOUT",
		SourceProfile:       "PROFILE_TIMEOUT",
		SourceContactCenter: "CONTACT_CENTER_TIMEOUT",
	} {
		d := c.Search.Timeouts[name]
		dur(env, &d)
		c.Search.Timeouts[name] = d
	}
	str("SWITCHBOARD", &c.Search.Switchboard)
	dur("ENRICH_TIMEOUT", &c.Search.EnrichTimeout)
	num("MAX_CANDIDATES", &c.Search.MaxCandidates)

	dur("CACHE_TTL", &c.Cache.TTL)
	num("CACHE_SIZE", &c.Cache.Size)
	str("CACHE_SWEEP", &c.Cache.SweepSchedule)

	str("DIRECTORY_URL", &c.Sources.Directory.URL)
	str("DIRECTORY_TOKEN", &c.Sources.Directory.Token)
	str("CONTACT_CENTER_URL", &c.Sources.ContactCenter.URL)
	str("CONTACT_CENTER_TOKEN", &c.Sources.ContactCenter.Token)
	if v := strings.TrimSpace(getenv(envPrefix + "CONTACT_CENTER_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONTACT_CENTER_RPS: %w", envPrefix, err))
		} else {
			c.Sources.ContactCenterRPS = rps
		}
	}
	num("CONTACT_CENTER_BURST", &c.Sources.ContactCenterBurst)

	str("REDIS_URL", &c.Redis.URL)
	num("REDIS_POOL_SIZE", &c.Redis.PoolSize)
	str("PROFILE_DSN", &c.Postgres.ProfileDSN)
	str("ENRICHMENT_DSN", &c.Postgres.EnrichmentDSN)

	if v := strings.TrimSpace(getenv(envPrefix + "KAFKA_BROKERS")); v != "" {
		c.Kafka.Brokers = pstrings.SplitList(v)
	}
	str("KAFKA_TOPIC", &c.Kafka.Topic)

	return errors.Join(errs...)
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	// Maps merge into the defaults, so a file may name only some sources
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects non-positive durations and a source timeout longer than the
// overall deadline.
func (c Config) Validate() error {
	var errs []error
	if c.Search.Deadline <= 0 {
		errs = append(errs, errors.New("search deadline must be positive"))
	}
	for name, d := range c.Search.Timeouts {
		switch {
		case d <= 0:
			errs = append(errs, fmt.Errorf("timeout for %s must be positive", name))
		case c.Search.Deadline > 0 && d > c.Search.Deadline:
			errs = append(errs, fmt.Errorf("timeout for %s (%s) exceeds deadline (%s)", name, d, c.Search.Deadline))
		}
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache ttl must be positive"))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, errors.New("cache size must be positive"))
	}
	if c.Search.MaxCandidates <= 0 {
		errs = append(errs, errors.New("max candidates must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// SearchSnapshot returns a copy of the per-request settings. Callers may keep
// it for the whole request without seeing later changes.
func (c Config) SearchSnapshot() SearchSnapshot {
	timeouts := make(map[string]time.Duration, len(c.Search.Timeouts))
	for k, v := range c.Search.Timeouts {
		timeouts[k] = v
	}
	return SearchSnapshot{
		Timeouts:      timeouts,
		Deadline:      c.Search.Deadline,
		CacheTTL:      c.Cache.TTL,
		Switchboard:   c.Search.Switchboard,
		EnrichTimeout: c.Search.EnrichTimeout,
	}
}
