package cmd

import (
	"fmt"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
	"github.com/spf13/cobra"
)

var (
	followLogs bool
	logsOffset int64
	logsLimit  int64
)

var logsCmd = &cobra.Command{
	Use:   "logs <runId>",
	Short: "Fetch or follow a run's logs",
	Long: `Fetch a page of a run's log lines, or stream them live with
-f/--follow until the stream is interrupted or closed. The server does
not close the stream when the run finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		client, err := newClient()
		if err != nil {
			return err
		}

		if followLogs {
			fmt.Printf("📋 following logs for run: %s\n", runID)
			return client.StreamLogs(cmd.Context(), runID, printLogEntry)
		}

		fmt.Printf("📋 fetching logs for run: %s\n", runID)
		entries, err := client.FetchLogs(cmd.Context(), runID, logsOffset, logsLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			printLogEntry(e)
		}
		return nil
	},
}

func printLogEntry(e schemas.LogEntry) {
	fmt.Printf("[%s] %s\n", e.Time, e.Line)
}

func init() {
	logsCmd.Flags().BoolVarP(&followLogs, "follow", "f", false, "stream logs in real-time")
	logsCmd.Flags().Int64Var(&logsOffset, "offset", 0, "number of lines to skip")
	logsCmd.Flags().Int64Var(&logsLimit, "limit", 1000, "maximum number of lines to return")
	rootCmd.AddCommand(logsCmd)
}
