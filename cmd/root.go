package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "portfolio-tracker",
	Short: "Manual crypto portfolio tracker",
	Long: `portfolio-tracker keeps a manually curated crypto portfolio priced and
persisted. It serves a stateless price proxy in front of an upstream
aggregator, values holdings against live quotes, and stores per-asset
balances in an on-chain asset registry contract.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
