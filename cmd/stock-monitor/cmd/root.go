// Package cmd implements the CLI commands for stock-monitor.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/stock-monitor/internal/api/client"
)

var rootCmd = &cobra.Command{
	Use:   "stock-monitor",
	Short: "Watch Shopee products and notify when they come back in stock",
	Long: "stock-monitor polls Shopee product pages on a schedule, remembers whether\n" +
		"each item was last seen in stock, and sends a Telegram or Discord message\n" +
		"whenever availability flips.",
	SilenceUsage: true,
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		String("config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "ops API URL for status and trigger")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runMonitor(cmd.Context())
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(triggerCmd())
	rootCmd.AddCommand(versionCmd())
}

func initConfig() {
	viper.SetEnvPrefix("STOCKMON")
	viper.AutomaticEnv()
}

func configPath() string {
	return viper.GetString("config")
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
