package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var expositionFlag bool

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the current metrics snapshot",
	RunE:  runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().BoolVar(&expositionFlag, "exposition", false, "print the raw scrape-format text instead of the snapshot")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	if expositionFlag {
		resp, err := httpClient.Get(GetServerURL() + "/metrics")
		if err != nil {
			return fmt.Errorf("cannot reach control core: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("core returned %d", resp.StatusCode)
		}
		_, err = io.Copy(os.Stdout, resp.Body)
		return err
	}

	var snapshot map[string]interface{}
	if err := getJSON("/api/metrics", &snapshot); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(snapshot)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append([]string{"timestamp", fmt.Sprintf("%v", snapshot["timestamp"])})
	table.Append([]string{"state", fmt.Sprintf("%v", snapshot["state"])})
	for key, value := range snapshot {
		if key == "timestamp" || key == "state" {
			continue
		}
		table.Append([]string{key, fmt.Sprintf("%v", value)})
	}
	table.Render()
	return nil
}
