package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"conduit/internal/registry"

	"github.com/spf13/cobra"
)

func newCaptureCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	return cmd, &buf
}

func TestRenderHealthAllHealthy(t *testing.T) {
	cmd, buf := newCaptureCmd()

	healthy := renderHealth(cmd, map[string]interface{}{
		"healthy": true,
		"status":  "running",
		"components": map[string]interface{}{
			"registry":     true,
			"orchestrator": true,
			"gateway":      true,
			"config":       true,
		},
	})

	if !healthy {
		t.Error("Expected all components to be reported healthy")
	}
	for _, component := range []string{"registry", "orchestrator", "gateway", "config"} {
		if !strings.Contains(buf.String(), component) {
			t.Errorf("Expected output to mention %q", component)
		}
	}
}

func TestRenderHealthDegraded(t *testing.T) {
	cmd, _ := newCaptureCmd()

	healthy := renderHealth(cmd, map[string]interface{}{
		"healthy": false,
		"status":  "running",
		"components": map[string]interface{}{
			"registry":     true,
			"orchestrator": false,
			"gateway":      true,
			"config":       true,
		},
	})

	if healthy {
		t.Error("Expected degraded health to be reported")
	}
}

func TestRenderHealthUnexpectedPayload(t *testing.T) {
	cmd, _ := newCaptureCmd()

	if renderHealth(cmd, "not a map") {
		t.Error("Expected non-map payload to be treated as unhealthy")
	}
}

func TestRenderServices(t *testing.T) {
	cmd, buf := newCaptureCmd()

	renderServices(cmd, []registry.ServiceInfo{
		{
			Name:         "billing",
			Type:         registry.TypeAPI,
			Status:       registry.StatusHealthy,
			RegisteredAt: time.Now(),
		},
	})

	if !strings.Contains(buf.String(), "billing") {
		t.Errorf("Expected output to contain service name, got %q", buf.String())
	}
}
