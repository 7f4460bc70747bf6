package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"conduit/internal/coordinator"
	"conduit/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs conduit. It owns the integration coordinator and wires configuration
// and logging before the coordinator is started.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: configure logging, resolve the config path, build the coordinator
//  2. Execution phase: start the coordinator and block until the context is cancelled
type Application struct {
	config      *Config
	coordinator *coordinator.Coordinator
}

// NewApplication creates and initializes a new application instance with the
// provided configuration. The coordinator is constructed but not started;
// call Run to start it.
//
// Configuration path resolution:
//   - If cfg.ConfigPath is set: that file is used as-is
//   - If cfg.ConfigPath is empty: <user config dir>/conduit/config.yaml
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.Init(appLogLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user config directory: %w", err)
		}
		configPath = filepath.Join(dir, "conduit", "config.yaml")
	}
	logging.Info("Bootstrap", "Using configuration file: %s", configPath)

	return &Application{
		config:      cfg,
		coordinator: coordinator.New(configPath),
	}, nil
}

// Coordinator returns the integration coordinator owned by the application.
func (a *Application) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}

// Run starts the coordinator and blocks until the context is cancelled,
// then performs a graceful shutdown. The method returns the startup error
// if the coordinator fails to come up, or the shutdown error otherwise.
func (a *Application) Run(ctx context.Context) error {
	if err := a.coordinator.Start(ctx); err != nil {
		logging.Error("Bootstrap", err, "Failed to start coordinator")
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	logging.Info("Bootstrap", "Coordinator running. Press Ctrl+C to stop.")
	<-ctx.Done()

	logging.Info("Bootstrap", "Shutting down")
	if err := a.coordinator.Stop(); err != nil {
		logging.Error("Bootstrap", err, "Shutdown failed")
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
