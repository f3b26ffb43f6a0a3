package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/container-control/pkg/config"
)

var configCfgFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Loads the configuration exactly as 'ccc serve' would, including defaults
and CCC_ environment overrides, and prints the effective result. Useful for
verifying a container image before shipping it.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().StringVarP(&configCfgFile, "config", "c", "", "config file to inspect")
}

type effectiveConfig struct {
	Adapter struct {
		Name              string                 `yaml:"name"`
		PrimaryPayloadKey string                 `yaml:"primary_payload_key"`
		RunAsUser         string                 `yaml:"run_as_user,omitempty"`
		Static            map[string]interface{} `yaml:"static,omitempty"`
	} `yaml:"adapter"`
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
	Controller struct {
		StopTimeoutSeconds int    `yaml:"stop_timeout_seconds"`
		BusyPolicy         string `yaml:"busy_policy"`
	} `yaml:"controller"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configCfgFile)
	if err != nil {
		return err
	}

	var out effectiveConfig
	out.Adapter.Name = cfg.AdapterName
	out.Adapter.PrimaryPayloadKey = cfg.PrimaryPayloadKey
	out.Adapter.RunAsUser = cfg.RunAsUser
	out.Adapter.Static = cfg.AdapterStatic
	out.Server.Listen = cfg.ListenAddr
	out.Controller.StopTimeoutSeconds = int(cfg.StopTimeout.Seconds())
	out.Controller.BusyPolicy = string(cfg.Policy)
	out.Log.Level = cfg.LogLevel
	out.Log.Format = cfg.LogFormat

	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, string(data))
	return nil
}
