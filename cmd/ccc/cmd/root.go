package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverURL    string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ccc",
	Short: "Container control core",
	Long: `ccc is the per-container control plane: a single long-lived process that
fronts an arbitrary workload and exposes a uniform start/stop/update/metrics
surface for external orchestrators.

Run 'ccc serve' inside the container; the remaining commands are thin clients
for a running core.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initClientConfig)

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "control core URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initClientConfig resolves client settings from flags and environment
func initClientConfig() {
	viper.SetEnvPrefix("CCC")
	viper.AutomaticEnv()
	viper.BindEnv("server", "CCC_SERVER")

	if serverURL == "" {
		serverURL = viper.GetString("server")
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
}

// GetServerURL returns the configured core URL with trailing slashes removed
func GetServerURL() string {
	return strings.TrimRight(serverURL, "/")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
