package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/api/schemas"
	"github.com/spf13/cobra"
)

var (
	runInput       string
	runTimeoutSecs int
	runMemoryMB    int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Submit and inspect Actor runs",
}

var runSubmitCmd = &cobra.Command{
	Use:   "submit <actorId>",
	Short: "Submit a new run for an Actor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		req := schemas.RunRequest{
			TimeoutSecs:  runTimeoutSecs,
			MemoryMbytes: runMemoryMB,
		}
		if runInput != "" {
			raw, err := os.ReadFile(runInput)
			if err != nil {
				return fmt.Errorf("reading input file: %w", err)
			}
			req.Input = json.RawMessage(raw)
		}

		run, err := client.SubmitRun(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		fmt.Printf("🚀 run submitted: %s (status: %s)\n", run.ID, run.Status)
		return nil
	},
}

var runGetCmd = &cobra.Command{
	Use:   "get <runId>",
	Short: "Fetch a run's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		run, err := client.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(run)
	},
}

var runAbortCmd = &cobra.Command{
	Use:   "abort <runId>",
	Short: "Abort a running run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		run, err := client.AbortRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("🛑 run %s aborted (status: %s)\n", run.ID, run.Status)
		return nil
	},
}

var runResurrectCmd = &cobra.Command{
	Use:   "resurrect <runId>",
	Short: "Resurrect a terminal run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		run, err := client.ResurrectRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("🔁 run %s resurrected (status: %s)\n", run.ID, run.Status)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runSubmitCmd.Flags().StringVar(&runInput, "input", "", "path to a JSON file used as the run's INPUT record")
	runSubmitCmd.Flags().IntVar(&runTimeoutSecs, "timeout", 0, "overrides the Actor's default timeout, in seconds")
	runSubmitCmd.Flags().IntVar(&runMemoryMB, "memory", 0, "overrides the Actor's default memory cap, in megabytes")

	runsCmd.AddCommand(runSubmitCmd, runGetCmd, runAbortCmd, runResurrectCmd)
	rootCmd.AddCommand(runsCmd)
}
