package cmd

import (
	"errors"
	"fmt"

	"conduit/internal/app"
	"conduit/internal/coordinator"
	"conduit/internal/gateway"
	"conduit/internal/registry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	checkDebug      bool
	checkConfigPath string
)

// checkCmd boots the coordinator, queries its health and service endpoints
// and prints a summary. It is a smoke test for a configuration file: if
// check succeeds, serve will come up with the same config.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Boot the coordinator once and report its health",
	Long: `Starts the integration coordinator, queries the built-in /api/health and
/api/metrics endpoints, prints the registered services as a table and shuts
the coordinator down again.

The command exits non-zero when startup fails or the system reports
unhealthy components, so it can be used as a configuration smoke test in
scripts and CI pipelines.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// runCheck is the main entry point for the check command
func runCheck(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(app.NewConfig(checkDebug, !checkDebug, checkConfigPath))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	coord := application.Coordinator()
	if err := coord.Start(cmd.Context()); err != nil {
		return fmt.Errorf("coordinator failed to start: %w", err)
	}
	defer func() {
		if stopErr := coord.Stop(); stopErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: shutdown failed: %v\n", stopErr)
		}
	}()

	health := coord.ProcessAPIRequest(cmd.Context(), &gateway.Request{
		Method:   "GET",
		Path:     "/api/health",
		ClientID: "conduit-check",
	})
	if !health.Success {
		return fmt.Errorf("health endpoint failed: %s", health.Error)
	}

	healthy := renderHealth(cmd, health.Data)
	renderServices(cmd, coord.Registry().Find(registry.Query{}))
	renderMetrics(cmd, coord.Metrics())

	if !healthy {
		return errors.New("one or more components are unhealthy")
	}
	return nil
}

// renderHealth prints the per-component health table and reports whether
// every component is healthy.
func renderHealth(cmd *cobra.Command, data interface{}) bool {
	body, ok := data.(map[string]interface{})
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "health: %v\n", data)
		return false
	}
	components, ok := body["components"].(map[string]interface{})
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "health: %v\n", body)
		return false
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Status"})

	allHealthy := true
	for _, component := range []string{"registry", "orchestrator", "gateway", "config"} {
		up, _ := components[component].(bool)
		status := text.FgGreen.Sprint("healthy")
		if !up {
			status = text.FgRed.Sprint("unhealthy")
			allHealthy = false
		}
		t.AppendRow(table.Row{component, status})
	}
	t.Render()
	return allHealthy
}

func renderServices(cmd *cobra.Command, services []registry.ServiceInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Service", "Type", "Status", "Endpoints"})

	for _, svc := range services {
		status := string(svc.Status)
		switch svc.Status {
		case registry.StatusHealthy:
			status = text.FgGreen.Sprint(status)
		case registry.StatusUnhealthy:
			status = text.FgRed.Sprint(status)
		}
		t.AppendRow(table.Row{svc.Name, string(svc.Type), status, len(svc.Endpoints)})
	}
	t.Render()
}

func renderMetrics(cmd *cobra.Command, m coordinator.Metrics) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"uptime", fmt.Sprintf("%.1fs", m.UptimeSeconds)},
		{"requests processed", m.TotalRequests},
		{"packets processed", m.TotalPackets},
		{"active services", m.ActiveServices},
		{"healthy services", m.HealthyServices},
		{"middleware chains", m.MiddlewareChains},
		{"api endpoints", m.APIEndpoints},
		{"errors", m.ErrorCount},
	})
	t.Render()
}

func init() {
	checkCmd.Flags().BoolVar(&checkDebug, "debug", false, "Enable debug logging")
	checkCmd.Flags().StringVar(&checkConfigPath, "config-path", "", "Path to the configuration file")
}
