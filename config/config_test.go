package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:10000", cfg.Server.Address())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "pdf", cfg.Server.DefaultResponse)
	assert.Contains(t, cfg.Server.CorsOrigins, "http://localhost:5173")
	assert.Equal(t, "Shakti Trading Co.", cfg.Document.Title)
	assert.Equal(t, "Rs ", cfg.Document.CurrencyPrefix)
	assert.Empty(t, cfg.Document.FontFile)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval)
	assert.Equal(t, "challan-challans", FormatIndex(cfg.Elastic))
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "5000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("CHALLAN_DOCUMENT_TITLE", "Acme Traders")
	t.Setenv("CHALLAN_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Database.DSN)
	assert.Equal(t, "Acme Traders", cfg.Document.Title)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "challan.yaml")
	content := []byte("server:\n  port: 8081\n  default_response: json\ndocument:\n  currency_prefix: \"INR \"\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Server.DefaultResponse)
	assert.Equal(t, "INR ", cfg.Document.CurrencyPrefix)
	// untouched keys keep their defaults
	assert.Equal(t, "Shakti Trading Co.", cfg.Document.Title)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}
