package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/cliclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix    = "CRAWLEE"
	baseURLKey   = "baseUrl"
	defaultBase  = "http://localhost:3000"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "crawlee-cli",
	Short: "CLI for interacting with a crawlee-cloud instance",
	Long: `crawlee-cli is a small command-line tool for submitting and tracking
Actor runs, streaming their logs, and pushing items to a dataset against
a running crawlee-cloud instance. Use "crawlee-cli login" to cache a
token, then "crawlee-cli runs ..." / "crawlee-cli logs ..." / "crawlee-cli
datasets ...".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: $HOME/.crawlee/crawlee.yaml, ./crawlee.yaml")
	rootCmd.PersistentFlags().String("base-url", "", "base URL of the crawlee-cloud instance (overrides config)")
	_ = viper.BindPFlag(baseURLKey, rootCmd.PersistentFlags().Lookup("base-url"))
}

func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.crawlee")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("crawlee")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return err
		}
	}

	if !viper.IsSet(baseURLKey) {
		viper.SetDefault(baseURLKey, defaultBase)
	} else {
		viper.Set(baseURLKey, strings.TrimRight(viper.GetString(baseURLKey), "/"))
	}
	return nil
}

// newClient builds a cliclient.Client for the configured base URL, using
// the cached token from the OS keyring unless CRAWLEE_TOKEN overrides it.
func newClient() (*cliclient.Client, error) {
	baseURL := viper.GetString(baseURLKey)

	token := os.Getenv("CRAWLEE_TOKEN")
	if token == "" {
		cached, err := cliclient.LoadToken(baseURL)
		if err == nil {
			token = cached
		}
	}
	return cliclient.New(baseURL, token), nil
}
