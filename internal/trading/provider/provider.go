package tradingprovider

import (
	"github.com/rxtech-lab/argo-gateway/internal/config"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/resilience"
	"github.com/rxtech-lab/argo-gateway/internal/trading"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// ProviderType selects which gateway backend to wire at startup.
type ProviderType string

var (
	_ trading.ExchangeGateway = (*BinanceGateway)(nil)
	_ trading.ExchangeGateway = (*SimulatedGateway)(nil)
)

const (
	// ProviderBinanceLive places real orders on the exchange.
	ProviderBinanceLive ProviderType = "binance-live"
	// ProviderBinancePaper reads live data but never places real orders.
	ProviderBinancePaper ProviderType = "binance-paper"
	// ProviderSimulated runs fully offline against driver-supplied prices.
	ProviderSimulated ProviderType = "simulated"
)

// AvailableProviders lists the selectable backend names.
func AvailableProviders() []string {
	return []string{
		string(ProviderBinanceLive),
		string(ProviderBinancePaper),
		string(ProviderSimulated),
	}
}

// NewExchangeGateway wires the selected backend from the gateway config. The
// choice is made exactly once; callers depend only on the returned interface.
func NewExchangeGateway(providerType ProviderType, cfg *config.GatewayConfig, log *logger.Logger) (trading.ExchangeGateway, error) {
	switch providerType {
	case ProviderBinanceLive, ProviderBinancePaper:
		pipeline := resilience.NewPipeline(string(providerType), cfg.Resilience, log)

		return NewBinanceGateway(BinanceGatewayConfig{
			ApiKey:     cfg.Exchange.ApiKey,
			SecretKey:  cfg.Exchange.SecretKey,
			BaseURL:    cfg.Exchange.RestBaseURL,
			Testnet:    cfg.Exchange.Testnet,
			RecvWindow: 0,
			DryRun:     cfg.Trading.DryRun || providerType == ProviderBinancePaper,
		}, pipeline, log)
	case ProviderSimulated:
		return NewSimulatedGateway(SimulatedGatewayConfig{
			InitialBalance: cfg.Simulation.InitialBalance,
			FeeRate:        cfg.Simulation.FeeRate,
		}, log), nil
	}

	return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown provider type: %s", providerType)
}
