package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workload state and health",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var health map[string]interface{}
	if err := getJSON("/api/health", &health); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(health)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Status", fmt.Sprintf("%v", health["status"])})
	table.Append([]string{"State", fmt.Sprintf("%v", health["state"])})
	table.Append([]string{"Timestamp", fmt.Sprintf("%v", health["timestamp"])})
	table.Append([]string{"Core", GetServerURL()})
	table.Render()
	return nil
}
