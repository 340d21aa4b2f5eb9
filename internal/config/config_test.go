package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Uploads.MaxMB)
	assert.Equal(t, "pdf", cfg.Uploads.Subdir)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_YAMLAndRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neuroserve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9001
uploads:
  dir: uploads
  max_mb: 5
cache:
  ttl: 1m
services:
  enabled: [text_tools]
  task_timeout: 15s
  text_tools:
    dictionary_path: words.txt
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.Uploads.Dir)
	assert.Equal(t, 5, cfg.Uploads.MaxMB)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Second, cfg.Services.TaskTimeout)
	assert.Equal(t, filepath.Join(dir, "words.txt"), cfg.Services.TextTools.DictionaryPath)
	assert.True(t, cfg.ServiceEnabled("text_tools"))
	assert.False(t, cfg.ServiceEnabled("pdf_reader"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8123")
	t.Setenv("UPLOAD_MAX_MB", "7")
	t.Setenv("DATABASE_URL", "sqlite:/tmp/x.db")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("NEUROSERVE_API_KEY", "secret")
	t.Setenv("PDF_OCR", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Uploads.MaxMB)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.DatabaseDSN())
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.True(t, cfg.Auth.Enabled())
	assert.True(t, cfg.Services.PDFReader.OCR)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad db driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"no upload dir", func(c *Config) { c.Uploads.Dir = "" }},
		{"zero upload size", func(c *Config) { c.Uploads.MaxMB = 0 }},
		{"negative max pages", func(c *Config) { c.Services.PDFReader.MaxPages = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
