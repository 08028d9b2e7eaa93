package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataanalyst/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE", "HOST", "PORT", "GIN_MODE", "CORS_ORIGINS", "DB_DRIVER", "DATABASE_URL",
		"STORAGE_BACKEND", "UPLOAD_DIR", "STORAGE_BUCKET", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "MAX_UPLOAD_MB",
		"SESSION_TTL", "JANITOR_SCHEDULE", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "COERCE_LENIENT_NUMBERS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8050", cfg.Server.Addr())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, int64(50<<20), cfg.Upload.MaxBytes())
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Cleaning.LenientNumbers)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")
	t.Setenv("COERCE_LENIENT_NUMBERS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 50, cfg.Upload.MaxMB)
	assert.True(t, cfg.Cleaning.LenientNumbers)
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
session:
  ttl: 30m
storage:
  backend: s3
  bucket: uploads
  region: eu-west-1
  access_key_id: key
  secret_access_key: secret
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Bucket)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"s3 bucket", func(c *Config) { c.Storage.Backend = BackendS3 }},
		{"azure account", func(c *Config) { c.Storage.Backend = BackendAzure }},
		{"backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"upload limit", func(c *Config) { c.Upload.MaxMB = 0 }},
		{"rate limit", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"schedule", func(c *Config) { c.Session.JanitorSchedule = "every so often" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}

	assert.NoError(t, validateConfig(Defaults()))
}

func TestLoadBadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
