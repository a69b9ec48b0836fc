package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streakd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Store.Driver)
	assert.Equal(t, 0.25, cfg.Rollover.FreezeGrantProbability)
	assert.True(t, cfg.Rollover.ResetAimOnMiss)
	assert.Equal(t, 20*time.Hour, cfg.Rollover.MinGap)
	assert.Equal(t, "!", cfg.Commands.Prefix)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, TimeOfDay{}, cfg.TimeOfDay())
	assert.Equal(t, "STREAKD", cfg.Notify.Stream)
	assert.Equal(t, 5*time.Second, cfg.Notify.PublishTimeout)
	assert.Equal(t, 2, cfg.Notify.MaxRetries)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv("STREAKD_TEST_DB", "/var/lib/streakd/streaks.db")
	t.Setenv("STREAKD_ROLLOVER_TIME", "21:30")
	t.Setenv("STREAKD_COMMANDS_CHANNEL_ID", "1343")

	path := writeConfig(t, `
store:
  driver: SQLite
  path: ${STREAKD_TEST_DB}
rollover:
  time: "06:00"
  timezone: Europe/Oslo
  freeze_grant_probability: 0.5
  reset_aim_on_miss: false
  min_gap: 12h
seed_activities: [read, " read", run]
notify:
  nats_url: nats://localhost:4222
`)
	_, err := Load(path)
	require.Error(t, err, "duplicate seed after normalization")

	path = writeConfig(t, `
store:
  driver: SQLite
  path: ${STREAKD_TEST_DB}
rollover:
  time: "06:00"
  timezone: Europe/Oslo
  freeze_grant_probability: 0.5
  reset_aim_on_miss: false
  min_gap: 12h
seed_activities: [read, run]
notify:
  publish_timeout: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/streakd/streaks.db", cfg.Store.Path)
	assert.Equal(t, "21:30", cfg.Rollover.Time, "env wins over file")
	assert.Equal(t, TimeOfDay{Hour: 21, Minute: 30}, cfg.TimeOfDay())
	assert.Equal(t, "Europe/Oslo", cfg.Location().String())
	assert.Equal(t, 12*time.Hour, cfg.Rollover.MinGap)
	assert.Equal(t, []string{"read", "run"}, cfg.SeedActivities)
	assert.Equal(t, "1343", cfg.Commands.ChannelID)
	assert.Equal(t, "streakd.rollover", cfg.Notify.Subject)
	assert.Equal(t, 2*time.Second, cfg.Notify.PublishTimeout)

	p := cfg.Policy()
	assert.Equal(t, 0.5, p.FreezeGrantProbability)
	assert.False(t, p.ResetAimOnMiss)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, serrors.ErrConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"driver", func(c *Config) { c.Store.Driver = "etcd" }, "store.driver"},
		{"path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"time", func(c *Config) { c.Rollover.Time = "25:00" }, "rollover.time"},
		{"timezone", func(c *Config) { c.Rollover.Timezone = "Mars/Olympus" }, "rollover.timezone"},
		{"probability", func(c *Config) { c.Rollover.FreezeGrantProbability = 1.5 }, "rollover.freeze_grant_probability"},
		{"gap", func(c *Config) { c.Rollover.MinGap = -time.Hour }, "rollover.min_gap"},
		{"retries", func(c *Config) { c.Notify.MaxRetries = -1 }, "notify.max_retries"},
		{"publish timeout", func(c *Config) { c.Notify.PublishTimeout = 0 }, "notify.publish_timeout"},
		{"stream", func(c *Config) { c.Notify.Stream = "streakd.events" }, "notify.stream"},
		{"prefix", func(c *Config) { c.Commands.Prefix = "" }, "commands.prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, serrors.ErrConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	mem := Default()
	mem.Store = StoreConfig{Driver: "memory"}
	assert.NoError(t, mem.Validate(), "memory store needs no path")
}

func TestParseTimeOfDay(t *testing.T) {
	good := map[string]TimeOfDay{"00:00": {}, "9:05": {Hour: 9, Minute: 5}, "23:59": {Hour: 23, Minute: 59}}
	for in, want := range good {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "12", "24:00", "12:60", "12:5", "ab:cd"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, "07:05", TimeOfDay{Hour: 7, Minute: 5}.String())
}

func TestInit(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "streakd.yaml")

	require.NoError(t, Init(configPath, false))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# streakd configuration"))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "exercise"}, cfg.SeedActivities)
	assert.Equal(t, 20*time.Hour, cfg.Rollover.MinGap)

	assert.Error(t, Init(configPath, false), "existing file needs force")
	assert.NoError(t, Init(configPath, true))
}
