package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mertdlkr/portfolio-tracker/internal/config"
	"github.com/mertdlkr/portfolio-tracker/internal/logger"
	"github.com/mertdlkr/portfolio-tracker/internal/portfolio"
	"github.com/mertdlkr/portfolio-tracker/internal/registry"
)

var (
	historyOwner     string
	historyFromBlock uint64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the registry's update events for an owner",
	Long: `Filter the registry contract's AssetUpdated logs for an owner and
print each stored amount change in block order.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyOwner, "owner", "", "owner address to filter (defaults to configured owner)")
	historyCmd.Flags().Uint64Var(&historyFromBlock, "from-block", 0, "first block to scan")
}

func runHistory(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	cfg, privateKey, err := config.LoadWithKey(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if err := cfg.RequireRegistry(); err != nil {
		return err
	}

	contract, err := registry.NewContract(cfg.RPCUrls, cfg.RegistryAddress, privateKey, cfg.ChainID)
	if err != nil {
		slog.Error("Failed to connect to registry", "error", err)
		return err
	}
	defer contract.Close()

	owner := contract.Owner()
	if historyOwner != "" {
		if !common.IsHexAddress(historyOwner) {
			return fmt.Errorf("invalid owner address: %q", historyOwner)
		}
		owner = common.HexToAddress(historyOwner)
	} else if cfg.OwnerAddress != "" {
		owner = common.HexToAddress(cfg.OwnerAddress)
	}
	if owner == (common.Address{}) {
		return fmt.Errorf("no owner address: set --owner, owner_address, or PORTFOLIO_PRIVATE_KEY")
	}

	events, err := contract.History(context.Background(), owner, historyFromBlock)
	if err != nil {
		slog.Error("Event query failed", "error", err)
		return err
	}

	fmt.Printf("Owner: %s  (%d updates)\n", owner.Hex(), len(events))
	for _, ev := range events {
		fmt.Printf("key=0x%x  amount=%s  (%s)\n",
			ev.AssetID, ev.Amount.String(), portfolio.FromScaled(ev.Amount).String())
	}
	return nil
}
