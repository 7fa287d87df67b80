package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "txmgrd.yaml")

	cfg := Default(filepath.Join(dir, "sys"))
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SysDir, loaded.SysDir)
	assert.Equal(t, cfg.MaxLogSize, loaded.MaxLogSize)
	assert.Equal(t, cfg.ClientPoolSize, loaded.ClientPoolSize)
}

func TestLoadRejectsMissingSysDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, Save(path, Config{MaxLogSize: 1024}))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadDefaultsClientPoolSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, Save(path, Config{SysDir: dir, MaxLogSize: 1024}))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ClientPoolSize)
}
