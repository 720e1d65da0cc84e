package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rxtech-lab/argo-gateway/internal/config"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/stream"
	"github.com/rxtech-lab/argo-gateway/internal/trading"
	tradingprovider "github.com/rxtech-lab/argo-gateway/internal/trading/provider"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const defaultStreamBaseURL = "wss://fstream.binance.com"

// runAction wires the selected gateway backend, applies per-symbol setup and
// keeps the market data streams running until interrupted.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	providerType := tradingprovider.ProviderType(cmd.String("provider"))

	gateway, err := tradingprovider.NewExchangeGateway(providerType, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create gateway (available: %s): %w",
			strings.Join(tradingprovider.AvailableProviders(), ", "), err)
	}

	log.Info("Gateway created",
		zap.String("provider", string(providerType)),
		zap.Strings("symbols", cfg.Trading.Symbols),
		zap.Bool("dryRun", cfg.Trading.DryRun))

	binance, live := gateway.(*tradingprovider.BinanceGateway)
	if live {
		binance.Initialize(ctx)
	}

	// Symbol setup is fire-and-forget: failures are logged inside and do
	// not block trading readiness.
	trading.SetupSymbols(ctx, gateway, cfg.Trading.Symbols, cfg.Trading.Leverage,
		types.MarginMode(cfg.Trading.MarginMode), log)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if live {
		cache := stream.NewCache(cfg.Stream.CandleCacheSize)
		cache.RegisterAccountListener(func(snapshot types.AccountSnapshot, positions []types.Position) {
			log.Info("Account updated",
				zap.Float64("walletBalance", snapshot.WalletBalance),
				zap.Int("openPositions", len(positions)))
		})

		baseURL := cfg.Exchange.StreamBaseURL
		if baseURL == "" {
			baseURL = defaultStreamBaseURL
		}

		streamer := stream.NewStreamer(stream.StreamerConfig{
			BaseURL:           baseURL,
			Symbols:           cfg.Trading.Symbols,
			KlineInterval:     cfg.Stream.KlineInterval,
			KeepAliveInterval: cfg.Stream.KeepAliveInterval,
			ReconnectDelay:    cfg.Stream.ReconnectDelay,
		}, cache, binance, log)

		if err := streamer.Start(signalCtx); err != nil {
			return fmt.Errorf("failed to start streams: %w", err)
		}
		defer streamer.Stop()
	}

	log.Info("Gateway running, press Ctrl+C to stop")
	<-signalCtx.Done()
	log.Info("Shutting down")

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "gateway",
		Usage: "Run the futures exchange gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the gateway YAML config file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Gateway backend: binance-live, binance-paper, simulated",
				Value:   string(tradingprovider.ProviderBinancePaper),
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
