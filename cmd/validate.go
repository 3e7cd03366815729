package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mertdlkr/portfolio-tracker/internal/config"
	"github.com/mertdlkr/portfolio-tracker/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, privateKey, err := config.LoadWithKey(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	slog.Info("✓ Configuration valid",
		"holdings", len(cfg.Holdings),
		"rpc_urls", len(cfg.RPCUrls),
		"registry_address", cfg.RegistryAddress,
		"upstream_url", cfg.UpstreamURL,
		"poll_interval", cfg.GetPollInterval().String(),
		"refresh_interval", cfg.RefreshInterval,
		"log_level", cfg.LogLevel,
		"private_key_set", privateKey != "",
	)

	return nil
}
