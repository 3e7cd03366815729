package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mertdlkr/portfolio-tracker/internal/config"
	"github.com/mertdlkr/portfolio-tracker/internal/health"
	"github.com/mertdlkr/portfolio-tracker/internal/logger"
	"github.com/mertdlkr/portfolio-tracker/internal/portfolio"
	"github.com/mertdlkr/portfolio-tracker/internal/prices"
	"github.com/mertdlkr/portfolio-tracker/internal/registry"
	"github.com/mertdlkr/portfolio-tracker/internal/scheduler"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the portfolio tracking daemon",
	Long: `Keep the configured holdings priced and reconciled: poll the price
proxy on a fixed interval, refresh stored amounts from the asset
registry on a schedule, and expose /health.`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	logger.Setup(logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	cfg, privateKey, err := config.LoadWithKey(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"holdings", len(cfg.Holdings),
		"registry", cfg.HasRegistry(),
		"poll_interval", cfg.GetPollInterval().String(),
		"refresh_interval", cfg.RefreshInterval,
	)

	// Connect to the registry when chain configuration is present;
	// pricing works without it.
	var contract *registry.Contract
	var store registry.Store
	if cfg.HasRegistry() {
		contract, err = registry.NewContract(cfg.RPCUrls, cfg.RegistryAddress, privateKey, cfg.ChainID)
		if err != nil {
			slog.Error("Failed to connect to registry", "error", err)
			return err
		}
		defer contract.Close()
		store = contract
		slog.Info("Registry connection established",
			"address", cfg.RegistryAddress,
			"endpoints", len(cfg.RPCUrls),
		)
	}

	owner := resolveOwner(cfg, contract)
	p := portfolio.New(owner, store)
	seedHoldings(p, cfg.Holdings)

	// Price proxy: in-process unless an external one is configured
	upstream := prices.NewUpstream(cfg.UpstreamURL)
	proxyBase := cfg.ProxyURL

	checker := health.NewChecker(chainProbe(contract), upstream, p, cfg.GetPollInterval())

	var server *http.Server
	if proxyBase == "" {
		proxyBase = fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)
		handler := prices.NewHandler(upstream, cfg.DefaultIDs)
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler: prices.NewRouter(handler, checker.Handler()),
		}
		go func() {
			slog.Info("In-process price proxy starting", "port", cfg.HTTPPort)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Price proxy server error", "error", err)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("Price proxy shutdown error", "error", err)
			}
		}()
	}

	// Start the price poller
	poller := portfolio.NewPoller(p, prices.NewClient(proxyBase), cfg.GetPollInterval())
	poller.Start(ctx)
	defer poller.Stop()

	// Initial reconciliation from chain
	if store != nil {
		if err := p.LoadFromChain(ctx); err != nil {
			slog.Warn("Initial chain load failed, keeping configured amounts", "error", err)
		} else {
			slog.Info("Holdings reconciled from chain", "owner", owner.Hex())
		}
	}

	// Periodic refresh job: re-read stored amounts and log valuations
	refreshJob := func(jobCtx context.Context) error {
		if store != nil {
			if err := p.LoadFromChain(jobCtx); err != nil {
				return err
			}
		}
		logValuations(p)
		return nil
	}

	if cfg.RefreshInterval != "" {
		sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
			Interval:       cfg.RefreshInterval,
			Timezone:       cfg.GetTimezone(),
			RunImmediately: cfg.ShouldRunImmediately(),
			Logger:         slog.Default(),
		}, refreshJob)
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		defer sched.Stop()

		if err := sched.Start(); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("scheduler start failed: %w", err)
		}
	}

	slog.Info("Tracking daemon started", "owner", owner.Hex())

	<-ctx.Done()
	slog.Info("Shutdown requested, stopping daemon")
	return nil
}

// resolveOwner prefers the signing key's address, then the configured
// read-only owner.
func resolveOwner(cfg *config.Config, contract *registry.Contract) common.Address {
	if contract != nil && contract.Owner() != (common.Address{}) {
		return contract.Owner()
	}
	if cfg.OwnerAddress != "" {
		return common.HexToAddress(cfg.OwnerAddress)
	}
	return common.Address{}
}

// chainProbe keeps the health checker's dependency nil when no registry
// is configured (a typed nil would make the check fail instead of skip).
func chainProbe(contract *registry.Contract) health.ChainProbe {
	if contract == nil {
		return nil
	}
	return contract
}

func seedHoldings(p *portfolio.Portfolio, holdings []config.HoldingConfig) {
	for _, h := range holdings {
		p.Add(portfolio.Holding{
			Identifier: h.Identifier,
			Symbol:     h.Symbol,
			Name:       h.Name,
			Amount:     portfolio.ClampAmount(h.Amount),
		})
	}
}

func logValuations(p *portfolio.Portfolio) {
	valuations, total := p.Valuations()
	for _, v := range valuations {
		slog.Info("Holding valued",
			"identifier", v.Holding.Identifier,
			"symbol", v.Holding.Symbol,
			"amount", v.Holding.Amount.String(),
			"price", v.Price.String(),
			"value", v.Value.String(),
		)
	}
	slog.Info("Portfolio valued",
		"holdings", len(valuations),
		"total", total.String(),
		"poll_error", p.LastPollErr() != nil,
	)
}
