package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"conduit/internal/app"

	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveSilent suppresses all log output. Useful when conduit is embedded in
// scripts that only care about the exit code.
var serveSilent bool

// serveConfigPath specifies a custom configuration file path.
// When empty, the default location under the user config directory is used.
var serveConfigPath string

// serveCmd defines the serve command structure.
// This is the main command of conduit: it boots the integration coordinator
// and keeps it running until the process is signalled.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conduit integration coordinator",
	Long: `Starts the integration coordinator and runs it until interrupted.

On startup the coordinator loads its configuration, brings up the service
registry with periodic health checking, the middleware orchestrator with the
default processing chain, and the API gateway with the default endpoints
(/api/health, /api/metrics, /api/config, /api/services). It then collects
runtime metrics periodically until the process receives SIGINT or SIGTERM,
at which point all components are shut down gracefully in reverse order.

Configuration:
  conduit loads configuration from a single YAML file. By default this is
  config.yaml in the conduit directory under the user configuration
  directory; use --config-path to point at a different file. A missing file
  is not an error: built-in defaults apply.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent, serveConfigPath)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Path to the configuration file")
}
