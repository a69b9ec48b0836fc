// Package config loads streakd configuration from YAML, .env files and
// STREAKD_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STREAKD_"

// Config is the complete streakd configuration.
type Config struct {
	Store          StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Rollover       RolloverConfig `yaml:"rollover" envPrefix:"ROLLOVER_"`
	SeedActivities []string       `yaml:"seed_activities,omitempty" env:"SEED_ACTIVITIES" envSeparator:","`
	Journal        JournalConfig  `yaml:"journal" envPrefix:"JOURNAL_"`
	Notify         NotifyConfig   `yaml:"notify" envPrefix:"NOTIFY_"`
	Metrics        MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
	Commands       CommandsConfig `yaml:"commands" envPrefix:"COMMANDS_"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // json|sqlite|memory
	Path   string `yaml:"path" env:"PATH"`
}

// RolloverConfig controls when and how the daily rollover runs.
type RolloverConfig struct {
	Time                   string        `yaml:"time" env:"TIME"`         // HH:MM local time
	Timezone               string        `yaml:"timezone" env:"TIMEZONE"` // IANA name
	FreezeGrantProbability float64       `yaml:"freeze_grant_probability" env:"FREEZE_GRANT_PROBABILITY"`
	ResetAimOnMiss         bool          `yaml:"reset_aim_on_miss" env:"RESET_AIM_ON_MISS"`
	MinGap                 time.Duration `yaml:"min_gap" env:"MIN_GAP"`
}

// JournalConfig enables the rollover journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path,omitempty" env:"PATH"`
}

// NotifyConfig enables JetStream publication when NATSURL is set. Failed
// publishes are retried MaxRetries times with exponential backoff from 500ms.
type NotifyConfig struct {
	NATSURL        string        `yaml:"nats_url,omitempty" env:"NATS_URL"`
	Subject        string        `yaml:"subject,omitempty" env:"SUBJECT"`
	Stream         string        `yaml:"stream,omitempty" env:"STREAM"`
	MaxRetries     int           `yaml:"max_retries" env:"MAX_RETRIES"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"PUBLISH_TIMEOUT"`
}

// MetricsConfig enables the admin HTTP server when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" env:"ADDR"`
}

// CommandsConfig configures chat command parsing.
type CommandsConfig struct {
	Prefix    string `yaml:"prefix" env:"PREFIX"`
	ChannelID string `yaml:"channel_id,omitempty" env:"CHANNEL_ID"`
}

var knownDrivers = []string{"json", "sqlite", "memory"}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: "json", Path: "./streaks.json"},
		Rollover: RolloverConfig{
			Time:                   "00:00",
			Timezone:               "UTC",
			FreezeGrantProbability: 0.25,
			ResetAimOnMiss:         true,
			MinGap:                 20 * time.Hour,
		},
		Notify: NotifyConfig{
			Subject:        "streakd.rollover",
			Stream:         "STREAKD",
			MaxRetries:     2,
			PublishTimeout: 5 * time.Second,
		},
		Commands: CommandsConfig{Prefix: "!"},
	}
}

// Load reads configPath on top of the defaults, then applies environment
// overrides and validates. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if os.IsNotExist(err) {
			return nil, serrors.ConfigNotFound(configPath)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env and .env.local when present. Existing process
// variables are never overwritten.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(p), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(p))
	}
}

func normalize(cfg *Config) {
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Rollover.Time = strings.TrimSpace(cfg.Rollover.Time)
	cfg.Rollover.Timezone = strings.TrimSpace(cfg.Rollover.Timezone)
	seeds := cfg.SeedActivities[:0]
	for _, s := range cfg.SeedActivities {
		if s = streak.NormalizeName(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	cfg.SeedActivities = seeds
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "streakd.rollover"
	}
	if cfg.Notify.Stream == "" {
		cfg.Notify.Stream = "STREAKD"
	}
}

// Validate checks every field and reports the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(knownDrivers, c.Store.Driver) {
		return serrors.ConfigInvalid("store.driver", fmt.Sprintf("unknown driver %q (want one of %s)", c.Store.Driver, strings.Join(knownDrivers, ", ")))
	}
	if c.Store.Driver != "memory" && c.Store.Path == "" {
		return serrors.ConfigInvalid("store.path", "required for driver "+c.Store.Driver)
	}
	if _, err := ParseTimeOfDay(c.Rollover.Time); err != nil {
		return serrors.ConfigInvalid("rollover.time", err.Error())
	}
	if _, err := time.LoadLocation(c.Rollover.Timezone); err != nil {
		return serrors.ConfigInvalid("rollover.timezone", err.Error())
	}
	if p := c.Rollover.FreezeGrantProbability; p < 0 || p > 1 {
		return serrors.ConfigInvalid("rollover.freeze_grant_probability", fmt.Sprintf("%v is outside [0,1]", p))
	}
	if c.Rollover.MinGap < 0 {
		return serrors.ConfigInvalid("rollover.min_gap", "must not be negative")
	}
	if c.Notify.MaxRetries < 0 {
		return serrors.ConfigInvalid("notify.max_retries", "must not be negative")
	}
	if c.Notify.PublishTimeout <= 0 {
		return serrors.ConfigInvalid("notify.publish_timeout", "must be positive")
	}
	if strings.ContainsAny(c.Notify.Stream, ". *>") {
		return serrors.ConfigInvalid("notify.stream", fmt.Sprintf("%q is not a valid stream name", c.Notify.Stream))
	}
	if c.Commands.Prefix == "" {
		return serrors.ConfigInvalid("commands.prefix", "must not be empty")
	}
	seen := make(map[string]bool, len(c.SeedActivities))
	for _, s := range c.SeedActivities {
		if seen[s] {
			return serrors.ConfigInvalid("seed_activities", fmt.Sprintf("duplicate activity %q", s))
		}
		seen[s] = true
	}
	return nil
}

// Location returns the rollover timezone. It falls back to UTC only for
// configurations that skipped validation.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Rollover.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TimeOfDay returns the parsed rollover time.
func (c *Config) TimeOfDay() TimeOfDay {
	t, _ := ParseTimeOfDay(c.Rollover.Time)
	return t
}

// Policy returns the rollover policy.
func (c *Config) Policy() streak.Policy {
	return streak.Policy{
		FreezeGrantProbability: c.Rollover.FreezeGrantProbability,
		ResetAimOnMiss:         c.Rollover.ResetAimOnMiss,
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.SeedActivities = []string{"read", "exercise"}
	example.Journal.Path = "./streakd-journal.db"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	header := "# streakd configuration\n# Every key can be overridden with " + EnvPrefix + "<SECTION>_<KEY>, e.g. STREAKD_ROLLOVER_TIME=21:30\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
