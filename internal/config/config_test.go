package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.LocalDataDir)
	assert.Equal(t, 10000, cfg.TargetCount)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.BatchSleep)
	assert.Equal(t, 60*time.Second, cfg.RateLimitCooldown)
	assert.Equal(t, "steampulse-raw-lake", cfg.RemoteBucket)
	assert.Equal(t, "steampulse-data-eng", cfg.ProjectID)
	assert.Equal(t, BackendFile, cfg.CheckpointBackend)
	assert.Equal(t, 0, cfg.DiscoveryMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadConfig_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BatchSize)
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steampulse.yaml")
	content := `
local_data_dir: /var/lib/steampulse
batch_size: 25
batch_sleep: 500ms
rate_limit_cooldown: 2m
kafka_brokers: ["k1:9092"]
kafka_topic: games
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("BATCH_SIZE", "40")
	t.Setenv("REMOTE_BUCKET", "other-bucket")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/steampulse", cfg.LocalDataDir)
	assert.Equal(t, 40, cfg.BatchSize, "environment wins over the file")
	assert.Equal(t, 500*time.Millisecond, cfg.BatchSleep)
	assert.Equal(t, 2*time.Minute, cfg.RateLimitCooldown)
	assert.Equal(t, []string{"k1:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "other-bucket", cfg.RemoteBucket)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steampulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: [oops"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestLoadConfig_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("BATCH_SIZE", "many")
	t.Setenv("BATCH_SLEEP", "soon")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.BatchSleep)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"negative target", func(c *Config) { c.TargetCount = -1 }},
		{"empty data dir", func(c *Config) { c.LocalDataDir = " " }},
		{"negative retries", func(c *Config) { c.DiscoveryMaxRetries = -2 }},
		{"sql backend without url", func(c *Config) { c.CheckpointBackend = BackendPostgres }},
		{"unknown backend", func(c *Config) { c.CheckpointBackend = "redis" }},
		{"zero remote timeout", func(c *Config) { c.RemoteTimeout = 0 }},
		{"topic without brokers", func(c *Config) { c.KafkaTopic = "games" }},
		{"bad log level", func(c *Config) { c.LogLevelName = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}

	t.Run("sql backend with url", func(t *testing.T) {
		cfg := Default()
		cfg.CheckpointBackend = BackendSQLServer
		cfg.DatabaseURL = "sqlserver://sa:pw@localhost:1433?database=steam" // pragma: allowlist secret
		assert.NoError(t, cfg.Validate())
	})
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("SP_LIST", " a, ,b ,c")
	assert.Equal(t, []string{"a", "b", "c"}, GetEnvList("SP_LIST", nil))
	assert.Equal(t, []string{"x"}, GetEnvList("SP_LIST_UNSET", []string{"x"}))
}
