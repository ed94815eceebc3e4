package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, "pricescout.db", cfg.Database.Path)
	assert.Equal(t, "auto", cfg.Scanner.Workers)
	assert.True(t, cfg.Scanner.Headless)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/scans.db
scanner:
  workers: "4"
  headless: false
server:
  port: 9090
cache:
  ttl_seconds: 60
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/scans.db", cfg.Database.Path)
	assert.Equal(t, "4", cfg.Scanner.Workers)
	assert.False(t, cfg.Scanner.Headless)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, float64(60), cfg.CacheTTL().Seconds())
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DATABASE_PATH", "/data/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/data/override.db", cfg.Database.Path)
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
