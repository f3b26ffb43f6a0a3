package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
adapter:
  name: exec
  primary_payload_key: command
  run_as_user: appuser
  static:
    grace_period_seconds: 5
server:
  listen: ":9090"
controller:
  stop_timeout_seconds: 15
  busy_policy: reject
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AdapterName != "exec" {
		t.Errorf("AdapterName = %q, want exec", cfg.AdapterName)
	}
	if cfg.PrimaryPayloadKey != "command" {
		t.Errorf("PrimaryPayloadKey = %q, want command", cfg.PrimaryPayloadKey)
	}
	if cfg.RunAsUser != "appuser" {
		t.Errorf("RunAsUser = %q, want appuser", cfg.RunAsUser)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.StopTimeout != 15*time.Second {
		t.Errorf("StopTimeout = %v, want 15s", cfg.StopTimeout)
	}
	if cfg.Policy != PolicyReject {
		t.Errorf("Policy = %q, want reject", cfg.Policy)
	}
	if got := cfg.AdapterStatic["grace_period_seconds"]; got != 5 {
		t.Errorf("AdapterStatic[grace_period_seconds] = %v, want 5", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
adapter:
  name: exec
  primary_payload_key: command
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("default ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.Policy != PolicyQueue {
		t.Errorf("default Policy = %q, want queue", cfg.Policy)
	}
	if cfg.StopTimeout != 30*time.Second {
		t.Errorf("default StopTimeout = %v, want 30s", cfg.StopTimeout)
	}
	if cfg.RunAsUser != "" {
		t.Errorf("RunAsUser should default to empty, got %q", cfg.RunAsUser)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing adapter name", func(c *Config) { c.AdapterName = "" }, true},
		{"missing primary key", func(c *Config) { c.PrimaryPayloadKey = "" }, true},
		{"bad policy", func(c *Config) { c.Policy = "maybe" }, true},
		{"zero stop timeout", func(c *Config) { c.StopTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				AdapterName:       "exec",
				PrimaryPayloadKey: "command",
				Policy:            PolicyQueue,
				StopTimeout:       30 * time.Second,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
