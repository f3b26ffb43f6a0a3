// Package config loads the control core configuration. Configuration is read
// once at process start and never mutated afterwards.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BusyPolicy decides what happens to a mutating request that arrives while
// another one is in flight.
type BusyPolicy string

const (
	// PolicyQueue blocks the request until the lifecycle lock frees up (FIFO)
	PolicyQueue BusyPolicy = "queue"
	// PolicyReject fails the request immediately with a busy error
	PolicyReject BusyPolicy = "reject"
)

// Config holds the full control core configuration. Read-only after Load.
type Config struct {
	// Adapter selection
	AdapterName   string
	AdapterStatic map[string]interface{}

	// PrimaryPayloadKey must be present in every start payload
	PrimaryPayloadKey string

	// RunAsUser is the optional unprivileged identity for workload commands.
	// Empty means the workload runs with the controller's own privileges.
	RunAsUser string

	// ListenAddr is the control surface bind address
	ListenAddr string

	// StopTimeout bounds the wait for graceful workload termination
	StopTimeout time.Duration

	// Policy for concurrent mutating requests
	Policy BusyPolicy

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the given file (or the default search path
// when empty) with CCC_-prefixed environment overrides.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("/etc/ccc")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CCC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("controller.stop_timeout_seconds", 30)
	v.SetDefault("controller.busy_policy", string(PolicyQueue))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		AdapterName:       v.GetString("adapter.name"),
		AdapterStatic:     v.GetStringMap("adapter.static"),
		PrimaryPayloadKey: v.GetString("adapter.primary_payload_key"),
		RunAsUser:         v.GetString("adapter.run_as_user"),
		ListenAddr:        v.GetString("server.listen"),
		StopTimeout:       time.Duration(v.GetInt("controller.stop_timeout_seconds")) * time.Second,
		Policy:            BusyPolicy(v.GetString("controller.busy_policy")),
		LogLevel:          v.GetString("log.level"),
		LogFormat:         v.GetString("log.format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration is serviceable
func (c *Config) Validate() error {
	if c.AdapterName == "" {
		return fmt.Errorf("adapter.name is required")
	}
	if c.PrimaryPayloadKey == "" {
		return fmt.Errorf("adapter.primary_payload_key is required")
	}
	if c.Policy != PolicyQueue && c.Policy != PolicyReject {
		return fmt.Errorf("controller.busy_policy must be %q or %q, got %q",
			PolicyQueue, PolicyReject, c.Policy)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("controller.stop_timeout_seconds must be positive")
	}
	return nil
}
