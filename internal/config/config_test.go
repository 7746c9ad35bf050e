package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/media-tracker/internal/config"
	"github.com/handsomefox/media-tracker/internal/env"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "key")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, env.Local, cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10*time.Second, cfg.Server.HTTPTimeout)
	assert.InDelta(t, 3.0, cfg.Jikan.RatePerSecond, 0.001)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, config.DevJWTSecret, cfg.Auth.JWTSecret)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TMDB_API_READ_TOKEN", "token")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://tracker.example")
	t.Setenv("JIKAN_BURST", "5")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://localhost:5173", "https://tracker.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5, cfg.Jikan.Burst)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "tmdb:\n  api_key: from-file\ndatabase:\n  path: /tmp/file.db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("DB_PATH", "/tmp/env.db")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TMDB.APIKey)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path, "environment wins over the file")
}

func TestValidateRequiresCredentials(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("TMDB_API_READ_TOKEN", "")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TMDB_API_KEY")

	t.Setenv("TMDB_API_KEY", "key")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
