package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	payloadFile string
	payloadData string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start (or restart) the workload",
	Long: `Sends a start request with the given payload. A workload that is already
running is stopped first; the core serializes the restart.`,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the workload",
	RunE:  runStop,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply a live configuration change",
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(updateCmd)

	for _, c := range []*cobra.Command{startCmd, updateCmd} {
		c.Flags().StringVarP(&payloadFile, "file", "f", "", "JSON payload file")
		c.Flags().StringVarP(&payloadData, "data", "d", "", "inline JSON payload")
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(payloadFile, payloadData)
	if err != nil {
		return err
	}

	body, status, err := postJSON("/api/start", payload)
	if err != nil {
		return err
	}
	return report(body, status)
}

func runStop(cmd *cobra.Command, args []string) error {
	body, status, err := postJSON("/api/stop", map[string]interface{}{})
	if err != nil {
		return err
	}
	return report(body, status)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(payloadFile, payloadData)
	if err != nil {
		return err
	}

	body, status, err := postJSON("/api/update", payload)
	if err != nil {
		return err
	}
	return report(body, status)
}

// report prints the core's response and fails the command on non-200
func report(body map[string]interface{}, status int) error {
	if IsJSONOutput() {
		printJSON(body)
	} else if msg, ok := body["message"]; ok {
		fmt.Println(msg)
	} else if detail, ok := body["error"]; ok {
		fmt.Println(detail)
	}

	if status != http.StatusOK {
		return fmt.Errorf("core returned %d", status)
	}
	return nil
}
