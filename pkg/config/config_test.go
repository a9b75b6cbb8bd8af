package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv(EnvUser, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UserID != "local" {
		t.Errorf("UserID = %q, want local", cfg.UserID)
	}
	if cfg.Runtime.Kind != RuntimeExec {
		t.Errorf("Runtime.Kind = %q, want exec", cfg.Runtime.Kind)
	}
	if cfg.Runtime.Binary != "ollama" {
		t.Errorf("Runtime.Binary = %q, want ollama", cfg.Runtime.Binary)
	}
	if cfg.Probe.RAMStressPct != 85 || cfg.Probe.CPUStressPct != 90 || cfg.Probe.HeavyTierRAMGB != 64 {
		t.Errorf("Probe defaults = %+v", cfg.Probe)
	}
	if cfg.VariantTimeout != 60*time.Second || cfg.DecisionTimeout != 120*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.VariantTimeout, cfg.DecisionTimeout)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvUser, "")

	yaml := `
user: alice
runtime:
  kind: http
  base_url: http://localhost:8080/v1
probe:
  heavy_tier_ram_gb: 96
timeouts:
  variant_seconds: 30
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", cfg.UserID)
	}
	if cfg.Runtime.Kind != RuntimeHTTP {
		t.Errorf("Runtime.Kind = %q, want http", cfg.Runtime.Kind)
	}
	if cfg.Runtime.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("Runtime.BaseURL = %q", cfg.Runtime.BaseURL)
	}
	if cfg.Probe.HeavyTierRAMGB != 96 {
		t.Errorf("HeavyTierRAMGB = %v, want 96", cfg.Probe.HeavyTierRAMGB)
	}
	if cfg.VariantTimeout != 30*time.Second {
		t.Errorf("VariantTimeout = %v, want 30s", cfg.VariantTimeout)
	}
	if cfg.DecisionTimeout != 120*time.Second {
		t.Errorf("DecisionTimeout = %v, want default 120s", cfg.DecisionTimeout)
	}
}

func TestEnvUserOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvUser, "bob")

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("user: alice\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UserID != "bob" {
		t.Errorf("UserID = %q, want env override bob", cfg.UserID)
	}
}

func TestUnknownRuntimeKindRejected(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("runtime:\n  kind: grpc\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted unknown runtime kind")
	}
}

func TestDataPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvUser, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PrefsPath() != filepath.Join(dir, "prefs.yaml") {
		t.Errorf("PrefsPath = %q", cfg.PrefsPath())
	}
	if cfg.HistoryPath() != filepath.Join(dir, "history.jsonl") {
		t.Errorf("HistoryPath = %q", cfg.HistoryPath())
	}
}
