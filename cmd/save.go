package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mertdlkr/portfolio-tracker/internal/assetid"
	"github.com/mertdlkr/portfolio-tracker/internal/config"
	"github.com/mertdlkr/portfolio-tracker/internal/logger"
	"github.com/mertdlkr/portfolio-tracker/internal/portfolio"
	"github.com/mertdlkr/portfolio-tracker/internal/registry"
)

var saveDryRun bool

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write configured holdings to the registry",
	Long: `Derive the on-chain key for every configured holding and submit one
atomic batch write covering the whole list. Requires
PORTFOLIO_PRIVATE_KEY unless --dry-run is given.`,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().BoolVar(&saveDryRun, "dry-run", false, "print the batch without submitting a transaction")
}

func runSave(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, privateKey, err := config.LoadWithKey(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if len(cfg.Holdings) == 0 {
		return fmt.Errorf("no holdings configured, nothing to save")
	}

	ctx := context.Background()

	var store registry.Store
	var owner common.Address

	if saveDryRun {
		owner = common.HexToAddress(cfg.OwnerAddress)
		store = registry.NewMemory(owner)
	} else {
		if err := cfg.RequireRegistry(); err != nil {
			return err
		}
		if privateKey == "" {
			return fmt.Errorf("PORTFOLIO_PRIVATE_KEY is required to save")
		}

		contract, err := registry.NewContract(cfg.RPCUrls, cfg.RegistryAddress, privateKey, cfg.ChainID)
		if err != nil {
			slog.Error("Failed to connect to registry", "error", err)
			return err
		}
		defer contract.Close()
		store = contract
		owner = contract.Owner()
	}

	p := portfolio.New(owner, store)
	seedHoldings(p, cfg.Holdings)

	for _, h := range p.Holdings() {
		key := assetid.Derive(h.Identifier)
		scaled, err := portfolio.ToScaled(h.Amount)
		if err != nil {
			return fmt.Errorf("holding %q: %w", h.Identifier, err)
		}
		fmt.Printf("%s  key=0x%x  amount=%s  scaled=%s\n",
			h.Identifier, key, h.Amount.String(), scaled.String())
	}

	if err := p.SaveToChain(ctx); err != nil {
		slog.Error("Save failed", "error", err)
		return err
	}

	if saveDryRun {
		slog.Info("Dry run complete, no transaction submitted", "holdings", p.Len())
	} else {
		slog.Info("Holdings saved to registry", "owner", owner.Hex(), "holdings", p.Len())
	}
	return nil
}
