package tradingprovider

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// BinanceGatewayConfig contains configuration for the live Binance futures
// gateway.
type BinanceGatewayConfig struct {
	ApiKey    string `json:"apiKey" validate:"required"`
	SecretKey string `json:"secretKey" validate:"required"`
	// BaseURL overrides the REST endpoint, e.g. for a local mock exchange.
	BaseURL string `json:"baseUrl" validate:"omitempty,url"`
	Testnet bool   `json:"testnet"`
	// RecvWindow in milliseconds; defaults to 5000 when zero.
	RecvWindow int64 `json:"recvWindow" validate:"gte=0"`
	// DryRun short-circuits order placement with synthetic fills.
	DryRun bool `json:"dryRun"`
}

// Validate validates the BinanceGatewayConfig struct.
func (c *BinanceGatewayConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance gateway config", err)
	}

	return nil
}
