package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiosk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
gateway:
  listen: ":9999"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Gateway.Listen)
	require.Equal(t, "http://127.0.0.1:3000", cfg.Backend.URL)
	require.Equal(t, 250*time.Millisecond, cfg.Backend.ProbeTimeout)
	require.Equal(t, "kiosk.service", cfg.Supervisor.Unit)
	require.Equal(t, 15*time.Second, cfg.Supervisor.Timeout)
	require.Equal(t, "./data/schedule.json", cfg.State.SchedulePath)
	require.Equal(t, "./data/mode.json", cfg.State.ModePath)
	require.Equal(t, "./data/audit.db", cfg.State.AuditPath)
	require.Equal(t, time.Minute, cfg.Reconcile.Interval)
	require.Equal(t, "http://127.0.0.1:8080", cfg.Client.GatewayURL)
	require.Equal(t, 15*time.Second, cfg.Client.HeartbeatInterval)
	require.Equal(t, 5*time.Second, cfg.Client.RetryInterval)
	require.Equal(t, "kiosk.state", cfg.Notify.Subject)
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: "http://10.0.0.5:3000"
  probe_timeout: 1s
reconcile:
  interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://10.0.0.5:3000", cfg.Backend.URL)
	require.Equal(t, time.Second, cfg.Backend.ProbeTimeout)
	require.Equal(t, 30*time.Second, cfg.Reconcile.Interval)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := writeConfig(t, "gateway: [listen: :8080\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "configuration file not found")
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("KIOSK_TEST_UNIT", "display.service")
	path := writeConfig(t, `
supervisor:
  unit: "${KIOSK_TEST_UNIT}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "display.service", cfg.Supervisor.Unit)
}

func TestInit_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.yaml")

	require.NoError(t, Init(path, false))

	// The example file must load cleanly.
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Gateway.Listen)
	require.True(t, cfg.Monitoring.MetricsEnabled)

	// A second init refuses to overwrite without force.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

func TestNormalizeLogLevel(t *testing.T) {
	require.Equal(t, LogLevelDebug, NormalizeLogLevel("DEBUG"))
	require.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	require.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
	require.Equal(t, LogFormatJSON, NormalizeLogFormat(" JSON "))
	require.Equal(t, LogFormatText, NormalizeLogFormat(""))
}
