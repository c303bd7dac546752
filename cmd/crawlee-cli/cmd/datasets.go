package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Push and list dataset items",
}

var datasetPushCmd = &cobra.Command{
	Use:   "push <datasetId> <file.json>",
	Short: "Push items from a JSON file (array or single object) to a dataset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading items file: %w", err)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			items = []json.RawMessage{json.RawMessage(raw)}
		}

		resp, err := client.PushDatasetItems(cmd.Context(), args[0], items)
		if err != nil {
			return err
		}
		fmt.Printf("✅ pushed %d item(s) starting at index %d\n", resp.ItemCount, resp.FirstIndex)
		return nil
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list <datasetId>",
	Short: "List items in a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		items, total, err := client.ListDatasetItems(cmd.Context(), args[0], datasetOffset, datasetLimit)
		if err != nil {
			return err
		}
		for _, item := range items {
			fmt.Println(string(item))
		}
		fmt.Printf("— %d of %d item(s)\n", len(items), total)
		return nil
	},
}

var (
	datasetOffset int64
	datasetLimit  int64
)

func init() {
	datasetListCmd.Flags().Int64Var(&datasetOffset, "offset", 0, "number of items to skip")
	datasetListCmd.Flags().Int64Var(&datasetLimit, "limit", 100, "maximum number of items to return")

	datasetsCmd.AddCommand(datasetPushCmd, datasetListCmd)
	rootCmd.AddCommand(datasetsCmd)
}
