// Package config resolves the application configuration from the data
// directory, an optional config.yaml, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables. DJINN_HOME moves the data directory, DJINN_USER
// sets the user id; nothing else is read from the environment.
const (
	EnvHome = "DJINN_HOME"
	EnvUser = "DJINN_USER"
)

const defaultUserID = "local"

// RuntimeKind selects which model runtime implementation to use.
type RuntimeKind string

const (
	RuntimeExec RuntimeKind = "exec"
	RuntimeHTTP RuntimeKind = "http"
	RuntimeMock RuntimeKind = "mock"
)

// Config holds the resolved application configuration.
type Config struct {
	HomeDir     string
	UserID      string
	CatalogPath string

	Runtime RuntimeConfig
	Probe   ProbeConfig

	VariantTimeout  time.Duration
	DecisionTimeout time.Duration
}

// RuntimeConfig configures the connection to the local model runtime.
type RuntimeConfig struct {
	Kind    RuntimeKind
	Binary  string // exec runtime
	BaseURL string // http runtime
	APIKey  string // http runtime, optional for local servers
}

// ProbeConfig holds the resource gate thresholds.
type ProbeConfig struct {
	RAMStressPct   float64
	CPUStressPct   float64
	HeavyTierRAMGB float64
}

// fileConfig is the structure of $DJINN_HOME/config.yaml. Every field is
// optional; the zero file yields the defaults.
type fileConfig struct {
	User    string `yaml:"user"`
	Catalog string `yaml:"catalog"`
	Runtime struct {
		Kind    string `yaml:"kind"`
		Binary  string `yaml:"binary"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"runtime"`
	Probe struct {
		RAMStressPct   float64 `yaml:"ram_stress_pct"`
		CPUStressPct   float64 `yaml:"cpu_stress_pct"`
		HeavyTierRAMGB float64 `yaml:"heavy_tier_ram_gb"`
	} `yaml:"probe"`
	Timeouts struct {
		VariantSeconds  int `yaml:"variant_seconds"`
		DecisionSeconds int `yaml:"decision_seconds"`
	} `yaml:"timeouts"`
}

// Load resolves the configuration. Environment variables take precedence
// over config.yaml, which takes precedence over built-in defaults.
func Load() (*Config, error) {
	homeDir, err := resolveHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	fc := loadFileConfig(filepath.Join(homeDir, "config.yaml"))

	cfg := &Config{
		HomeDir:     homeDir,
		UserID:      getEnvOrDefault(EnvUser, fc.User),
		CatalogPath: fc.Catalog,
		Runtime: RuntimeConfig{
			Kind:    RuntimeKind(fc.Runtime.Kind),
			Binary:  fc.Runtime.Binary,
			BaseURL: fc.Runtime.BaseURL,
			APIKey:  fc.Runtime.APIKey,
		},
		Probe: ProbeConfig{
			RAMStressPct:   fc.Probe.RAMStressPct,
			CPUStressPct:   fc.Probe.CPUStressPct,
			HeavyTierRAMGB: fc.Probe.HeavyTierRAMGB,
		},
		VariantTimeout:  time.Duration(fc.Timeouts.VariantSeconds) * time.Second,
		DecisionTimeout: time.Duration(fc.Timeouts.DecisionSeconds) * time.Second,
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.UserID == "" {
		c.UserID = defaultUserID
	}
	if c.Runtime.Kind == "" {
		c.Runtime.Kind = RuntimeExec
	}
	if c.Runtime.Binary == "" {
		c.Runtime.Binary = "ollama"
	}
	if c.Runtime.BaseURL == "" {
		c.Runtime.BaseURL = "http://localhost:11434/v1"
	}
	if c.Probe.RAMStressPct == 0 {
		c.Probe.RAMStressPct = 85
	}
	if c.Probe.CPUStressPct == 0 {
		c.Probe.CPUStressPct = 90
	}
	if c.Probe.HeavyTierRAMGB == 0 {
		c.Probe.HeavyTierRAMGB = 64
	}
	if c.VariantTimeout == 0 {
		c.VariantTimeout = 60 * time.Second
	}
	if c.DecisionTimeout == 0 {
		c.DecisionTimeout = 120 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Runtime.Kind {
	case RuntimeExec, RuntimeHTTP, RuntimeMock:
	default:
		return fmt.Errorf("unknown runtime kind %q (want exec, http, or mock)", c.Runtime.Kind)
	}
	return nil
}

// PrefsPath is the preference store location.
func (c *Config) PrefsPath() string { return filepath.Join(c.HomeDir, "prefs.yaml") }

// HistoryPath is the history archive location.
func (c *Config) HistoryPath() string { return filepath.Join(c.HomeDir, "history.jsonl") }

// loadFileConfig reads config.yaml, returning the zero config when the file
// is missing or unreadable.
func loadFileConfig(path string) *fileConfig {
	fc := &fileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	_ = yaml.Unmarshal(data, fc)
	return fc
}

func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func resolveHomeDir() (string, error) {
	dir := os.Getenv(EnvHome)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".djinn")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
