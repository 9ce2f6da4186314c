// Package config loads and validates the kiosk controller configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level controller configuration.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Backend    BackendConfig    `yaml:"backend"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	State      StateConfig      `yaml:"state"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Client     ClientConfig     `yaml:"client"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Notify     NotifyConfig     `yaml:"notify"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GatewayConfig configures the always-on HTTP front door.
type GatewayConfig struct {
	Listen string `yaml:"listen"` // address the gateway binds, e.g. ":8080"
}

// BackendConfig describes the kiosk backend the gateway forwards to.
type BackendConfig struct {
	URL          string        `yaml:"url"`           // base URL of the kiosk backend
	ProbeTimeout time.Duration `yaml:"probe_timeout"` // per-request health probe dial timeout
}

// SupervisorConfig configures the process supervisor integration.
type SupervisorConfig struct {
	Unit    string        `yaml:"unit"`    // systemd unit name of the kiosk service
	Timeout time.Duration `yaml:"timeout"` // per-command timeout for systemctl calls
}

// StateConfig locates the externally written schedule and mode records.
type StateConfig struct {
	SchedulePath string `yaml:"schedule_path"`
	ModePath     string `yaml:"mode_path"`
	AuditPath    string `yaml:"audit_path"` // sqlite file for the reconcile action log
}

// ReconcileConfig controls the in-daemon reconciliation cadence.
type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ClientConfig controls the recovery monitor run by `kioskd watch`.
type ClientConfig struct {
	GatewayURL        string        `yaml:"gateway_url"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	ReloadCommand     string        `yaml:"reload_command"`
	StatePath         string        `yaml:"state_path"` // persisted last known boot id
}

// MonitoringConfig controls health and metrics exposure on the gateway.
type MonitoringConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// NotifyConfig configures optional NATS publication of state transitions.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig controls slog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = ":8080"
	}
	if c.Backend.URL == "" {
		c.Backend.URL = "http://127.0.0.1:3000"
	}
	if c.Backend.ProbeTimeout <= 0 {
		c.Backend.ProbeTimeout = 250 * time.Millisecond
	}
	if c.Supervisor.Unit == "" {
		c.Supervisor.Unit = "kiosk.service"
	}
	if c.Supervisor.Timeout <= 0 {
		c.Supervisor.Timeout = 15 * time.Second
	}
	if c.State.SchedulePath == "" {
		c.State.SchedulePath = "./data/schedule.json"
	}
	if c.State.ModePath == "" {
		c.State.ModePath = "./data/mode.json"
	}
	if c.State.AuditPath == "" {
		c.State.AuditPath = "./data/audit.db"
	}
	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = time.Minute
	}
	if c.Client.GatewayURL == "" {
		c.Client.GatewayURL = "http://127.0.0.1:8080"
	}
	if c.Client.HeartbeatInterval <= 0 {
		c.Client.HeartbeatInterval = 15 * time.Second
	}
	if c.Client.RetryInterval <= 0 {
		c.Client.RetryInterval = 5 * time.Second
	}
	if c.Client.StatePath == "" {
		c.Client.StatePath = "./data/client-state.json"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "kiosk.state"
	}
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# Kiosk controller configuration
gateway:
  listen: ":8080"

backend:
  url: "http://127.0.0.1:3000"

supervisor:
  unit: "kiosk.service"

state:
  schedule_path: "./data/schedule.json"
  mode_path: "./data/mode.json"
  audit_path: "./data/audit.db"

reconcile:
  interval: 1m

client:
  gateway_url: "http://127.0.0.1:8080"
  heartbeat_interval: 15s
  retry_interval: 5s
  reload_command: "systemctl restart kiosk-browser.service"

monitoring:
  metrics_enabled: true

notify:
  enabled: false
  nats_url: "nats://127.0.0.1:4222"
  subject: "kiosk.state"

logging:
  level: info
  format: text
`
	if err := os.WriteFile(configPath, []byte(example), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
