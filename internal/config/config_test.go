package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.IdleTTL)
	assert.Equal(t, 1000, cfg.MaxSessions)
	assert.Equal(t, 8081, cfg.MCPPort)
	assert.Empty(t, cfg.ScriptsDir)
	assert.False(t, cfg.ExternalTicks)
}

func TestLoad_EnvAndDotenv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("LANDER_IDLE_TTL=5m\nLANDER_ADDR=:9999\n"), 0o600))
	t.Setenv("LANDER_ADDR", ":7000")
	t.Setenv("LANDER_LOG_LEVEL", "debug")
	t.Setenv("LANDER_DEFAULT_PHONE", "555-0100")
	t.Setenv("LANDER_EXTERNAL_TICKS", "true")
	// godotenv sets what it loads; register it so the test restores the environment.
	t.Setenv("LANDER_IDLE_TTL", "")
	os.Unsetenv("LANDER_IDLE_TTL")

	cfg, err := Load(dotenv)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr, "process environment wins over the file")
	assert.Equal(t, 5*time.Minute, cfg.IdleTTL)
	assert.Equal(t, "555-0100", cfg.DefaultPhone)
	assert.Equal(t, "DEBUG", cfg.Level().String())
	assert.True(t, cfg.ExternalTicks)
}

func TestLoad_Invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("LANDER_LOG_LEVEL", "loud")
	_, err := Load(missing)
	assert.ErrorContains(t, err, "invalid log level")

	t.Setenv("LANDER_LOG_LEVEL", "info")
	t.Setenv("LANDER_IDLE_TTL", "soon")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "parse env")

	t.Setenv("LANDER_IDLE_TTL", "1m")
	t.Setenv("LANDER_LOG_FORMAT", "xml")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "invalid log format")
}
