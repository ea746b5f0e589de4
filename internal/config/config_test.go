package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://www.racingrulesofsailing.org", cfg.Scrape.BaseURL)
	require.True(t, cfg.Scrape.SnapshotArchiving)
	require.Equal(t, "Asia/Hong_Kong", cfg.Events.Timezone)
	require.Equal(t, "local", cfg.Archive.Backend)
	require.Equal(t, "raceboard", cfg.Mongo.Database)
	require.True(t, cfg.Schedules.Enabled)

	require.Equal(t, time.Minute, cfg.HTMLTimeout())
	require.Equal(t, 30*time.Second, cfg.PDFTimeout())
	require.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
scrape:
  base_url: https://results.example.org
  result_mirrors:
    - https://mirror.example.org/{eventId}
events:
  ids: [e1, e2]
cache:
  ttl_seconds: 120
archive:
  backend: memory
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://results.example.org", cfg.Scrape.BaseURL)
	require.Equal(t, []string{"https://mirror.example.org/{eventId}"}, cfg.Scrape.ResultMirrors)
	require.Equal(t, []string{"e1", "e2"}, cfg.Events.IDs)
	require.Equal(t, 2*time.Minute, cfg.CacheTTL())
	require.Equal(t, "memory", cfg.Archive.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty base url", func(c *Config) { c.Scrape.BaseURL = "" }},
		{"zero html timeout", func(c *Config) { c.Scrape.HTMLTimeoutSec = 0 }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTLSeconds = 0 }},
		{"gcs without bucket", func(c *Config) { c.Archive.Backend = "gcs"; c.Archive.Bucket = "" }},
		{"local without base dir", func(c *Config) { c.Archive.Backend = "local"; c.Archive.BaseDir = "" }},
		{"unknown archive backend", func(c *Config) { c.Archive.Backend = "s3" }},
		{"bad timezone", func(c *Config) { c.Events.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
