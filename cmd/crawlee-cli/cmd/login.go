package cmd

import (
	"fmt"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/cliclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Cache a session token or API key for this instance",
	Long: `Stores the given token in the OS keyring, scoped to the configured
base URL, so that subsequent commands don't need CRAWLEE_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := viper.GetString(baseURLKey)
		if err := cliclient.SaveToken(baseURL, args[0]); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		fmt.Printf("✅ token cached for %s\n", baseURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached token for this instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := viper.GetString(baseURLKey)
		if err := cliclient.DeleteToken(baseURL); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}
		fmt.Printf("✅ token removed for %s\n", baseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
