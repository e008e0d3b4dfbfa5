package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "configs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
store:
  type: memory
storage:
  local_path: `+filepath.Join(t.TempDir(), "exports")+`
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 80, cfg.Progress.PassingScore)
	assert.Equal(t, 5, cfg.Progress.QuizInterval)
	assert.True(t, cfg.Progress.QuizGate)
	assert.Equal(t, "file", cfg.Catalog.Source)
	assert.Equal(t, dir, cfg.Path)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
store:
  type: memory
storage:
  local_path: `+filepath.Join(t.TempDir(), "exports")+`
`)
	t.Setenv("PROGRESS_STORE", "mongo")
	t.Setenv("MONGO_URI", "mongodb://example:27017")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.Store.Type)
	assert.Equal(t, "mongodb://example:27017", cfg.Mongo.URI)
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:  ServerConfig{Mode: "debug"},
		Store:   StoreConfig{Type: "redis"},
		Catalog: CatalogConfig{Source: "file"},
	}
	assert.NoError(t, base.Validate())

	release := base
	release.Server.Mode = "release"
	release.JWT.Secret = "short"
	assert.Error(t, release.Validate())

	badStore := base
	badStore.Store.Type = "etcd"
	assert.Error(t, badStore.Validate())

	badScore := base
	badScore.Progress.PassingScore = 120
	assert.Error(t, badScore.Validate())
}
