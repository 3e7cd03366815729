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

	"github.com/spf13/cobra"

	"github.com/mertdlkr/portfolio-tracker/internal/config"
	"github.com/mertdlkr/portfolio-tracker/internal/health"
	"github.com/mertdlkr/portfolio-tracker/internal/logger"
	"github.com/mertdlkr/portfolio-tracker/internal/prices"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the price proxy server",
	Long: `Serve GET /api/prices: a stateless pass-through to the upstream price
aggregator that normalizes quotes per asset identifier. Also exposes
/health.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}

	upstream := prices.NewUpstream(cfg.UpstreamURL)
	handler := prices.NewHandler(upstream, cfg.DefaultIDs)
	checker := health.NewChecker(nil, upstream, nil, 0)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: prices.NewRouter(handler, checker.Handler()),
	}

	go func() {
		slog.Info("Price proxy starting",
			"port", cfg.HTTPPort,
			"upstream", cfg.UpstreamURL,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Price proxy server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Price proxy shutdown error", "error", err)
		return err
	}
	slog.Info("Price proxy stopped")
	return nil
}
