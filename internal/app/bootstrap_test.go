package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"conduit/internal/coordinator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(true, false, "/tmp/conduit/config.yaml")

	assert.True(t, cfg.Debug)
	assert.False(t, cfg.Silent)
	assert.Equal(t, "/tmp/conduit/config.yaml", cfg.ConfigPath)
}

func TestNewApplicationWithExplicitConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	application, err := NewApplication(NewConfig(false, true, path))
	require.NoError(t, err)
	require.NotNil(t, application.Coordinator())
	assert.Equal(t, coordinator.StatusStopped, application.Coordinator().Status())
}

func TestRunStartsAndStopsOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	application, err := NewApplication(NewConfig(false, true, path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- application.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return application.Coordinator().Status() == coordinator.StatusRunning
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Equal(t, coordinator.StatusStopped, application.Coordinator().Status())
}
