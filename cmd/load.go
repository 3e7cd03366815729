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

var loadOwner string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Read stored amounts from the registry",
	Long: `Batch-read the stored amount for every configured holding and print
the reconciled portfolio. The owner address comes from --owner, the
owner_address config key, or the signing key, in that order.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().StringVar(&loadOwner, "owner", "", "owner address to read (defaults to configured owner)")
}

func runLoad(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, privateKey, err := config.LoadWithKey(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if err := cfg.RequireRegistry(); err != nil {
		return err
	}
	if len(cfg.Holdings) == 0 {
		return fmt.Errorf("no holdings configured, nothing to load")
	}

	contract, err := registry.NewContract(cfg.RPCUrls, cfg.RegistryAddress, privateKey, cfg.ChainID)
	if err != nil {
		slog.Error("Failed to connect to registry", "error", err)
		return err
	}
	defer contract.Close()

	owner := contract.Owner()
	if loadOwner != "" {
		if !common.IsHexAddress(loadOwner) {
			return fmt.Errorf("invalid owner address: %q", loadOwner)
		}
		owner = common.HexToAddress(loadOwner)
	} else if cfg.OwnerAddress != "" {
		owner = common.HexToAddress(cfg.OwnerAddress)
	}
	if owner == (common.Address{}) {
		return fmt.Errorf("no owner address: set --owner, owner_address, or PORTFOLIO_PRIVATE_KEY")
	}

	p := portfolio.New(owner, contract)
	seedHoldings(p, cfg.Holdings)

	ctx := context.Background()
	if err := p.LoadFromChain(ctx); err != nil {
		slog.Error("Load failed", "error", err)
		return err
	}

	fmt.Printf("Owner: %s\n", owner.Hex())
	for _, h := range p.Holdings() {
		fmt.Printf("%s  key=0x%x  amount=%s\n",
			h.Identifier, assetid.Derive(h.Identifier), h.Amount.String())
	}
	return nil
}
