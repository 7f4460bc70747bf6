package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/pkg/logging"
)

func init() {
	logging.Silence()
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, m.Load())

	assert.Equal(t, 30, m.GetInt("coordinator.metrics_interval_seconds", 0))
	assert.Equal(t, 100, m.GetInt("gateway.rate_limit.limit", 0))
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
gateway:
  rate_limit:
    limit: 10
extra:
  flag: enabled
`)
	m := NewManager(path)
	require.NoError(t, m.Load())

	// File value wins, sibling defaults remain.
	assert.Equal(t, 10, m.GetInt("gateway.rate_limit.limit", 0))
	assert.Equal(t, 60, m.GetInt("gateway.rate_limit.window_seconds", 0))

	value, err := m.Get("extra.flag")
	require.NoError(t, err)
	assert.Equal(t, "enabled", value)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "gateway: [unclosed")
	m := NewManager(path)
	assert.Error(t, m.Load())
}

func TestGetUnknownKey(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, m.Load())

	_, err := m.Get("no.such.key")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, 7, m.GetInt("no.such.key", 7))
}

func TestSetOverridesShadowFileValues(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, m.Load())

	m.Set("gateway.rate_limit.limit", 5)
	assert.Equal(t, 5, m.GetInt("gateway.rate_limit.limit", 0))

	// Overrides survive a reload.
	require.NoError(t, m.Load())
	assert.Equal(t, 5, m.GetInt("gateway.rate_limit.limit", 0))

	// Cleanup drops them.
	m.Cleanup()
	assert.Equal(t, 100, m.GetInt("gateway.rate_limit.limit", 0))
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "registry:\n  health_interval_seconds: 15\n")

	m := NewManager(path)
	require.NoError(t, m.Load())
	assert.Equal(t, 15, m.GetInt("registry.health_interval_seconds", 0))

	require.NoError(t, m.StartWatching())
	defer m.StopWatching()

	writeConfig(t, dir, "registry:\n  health_interval_seconds: 45\n")

	assert.Eventually(t, func() bool {
		return m.GetInt("registry.health_interval_seconds", 0) == 45
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "a: 1\n")

	m := NewManager(path)
	require.NoError(t, m.StartWatching())
	require.NoError(t, m.StartWatching())
	assert.True(t, m.Summary()["watching"].(bool))

	m.StopWatching()
	m.StopWatching()
	assert.False(t, m.Summary()["watching"].(bool))
}

func TestWatcherSurvivesRepeatedRestarts(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "a: 1\n")

	m := NewManager(path)
	for i := 0; i < 25; i++ {
		require.NoError(t, m.StartWatching())
		m.StopWatching()
	}
	assert.False(t, m.Summary()["watching"].(bool))
}

func TestWatcherCreatesMissingConfigDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conduit")
	path := filepath.Join(dir, "config.yaml")

	m := NewManager(path)
	require.NoError(t, m.Load())
	require.NoError(t, m.StartWatching())
	defer m.StopWatching()

	require.True(t, m.Summary()["watching"].(bool))
	require.DirExists(t, dir)

	// The watch must pick the file up when it first appears.
	writeConfig(t, dir, "registry:\n  health_interval_seconds: 45\n")
	assert.Eventually(t, func() bool {
		return m.GetInt("registry.health_interval_seconds", 0) == 45
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSummary(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, m.Load())
	m.Set("k", "v")

	summary := m.Summary()
	assert.Equal(t, 1, summary["overrides"])
	assert.NotZero(t, summary["loadedAt"])
}
