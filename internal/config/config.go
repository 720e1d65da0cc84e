package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/internal/resilience"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ExchangeConfig holds credentials and endpoints for the exchange REST and
// stream surfaces.
type ExchangeConfig struct {
	ApiKey    string `yaml:"api_key" validate:"required"`
	SecretKey string `yaml:"secret_key" validate:"required"`
	// RestBaseURL overrides the production REST endpoint, e.g. to target a
	// testnet or a local mock.
	RestBaseURL string `yaml:"rest_base_url" validate:"omitempty,url"`
	// StreamBaseURL overrides the production websocket endpoint.
	StreamBaseURL string `yaml:"stream_base_url" validate:"omitempty"`
	Testnet       bool   `yaml:"testnet"`
}

// TradingConfig fixes the account setup applied before the first order.
type TradingConfig struct {
	Symbols    []string `yaml:"symbols" validate:"required,min=1,dive,required"`
	Leverage   int      `yaml:"leverage" validate:"required,gte=1,lte=125"`
	MarginMode string   `yaml:"margin_mode" validate:"required,oneof=CROSSED ISOLATED"`
	// DryRun short-circuits order placement with synthetic fills while
	// leaving every read path live.
	DryRun bool `yaml:"dry_run"`
}

// StreamConfig tunes the market data and user data stream cache.
type StreamConfig struct {
	KlineInterval string `yaml:"kline_interval" validate:"required"`
	// CandleCacheSize bounds the per-symbol closed candle history.
	CandleCacheSize int `yaml:"candle_cache_size" validate:"required,gt=0"`
	// KeepAliveInterval is how often the listen key is refreshed.
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval" validate:"required,gt=0"`
	// ReconnectDelay is waited before the single reconnect attempt after
	// an unexpected disconnect.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" validate:"required,gt=0"`
}

// SimulationConfig seeds the simulated gateway.
type SimulationConfig struct {
	InitialBalance float64 `yaml:"initial_balance" validate:"required,gt=0"`
	// FeeRate is the taker commission charged on both sides of a trade.
	FeeRate float64 `yaml:"fee_rate" validate:"gte=0,lt=1"`
}

// GatewayConfig is the root configuration for the gateway process.
type GatewayConfig struct {
	Exchange   ExchangeConfig            `yaml:"exchange" validate:"required"`
	Trading    TradingConfig             `yaml:"trading" validate:"required"`
	Stream     StreamConfig              `yaml:"stream" validate:"required"`
	Simulation SimulationConfig          `yaml:"simulation" validate:"required"`
	Resilience resilience.PipelineConfig `yaml:"resilience"`
}

// DefaultConfig returns the production defaults. Credentials and symbols are
// left empty and must come from the config file.
func DefaultConfig() GatewayConfig {
	//nolint:exhaustruct
	return GatewayConfig{
		Trading: TradingConfig{
			Symbols:    nil,
			Leverage:   10,
			MarginMode: "CROSSED",
			DryRun:     false,
		},
		Stream: StreamConfig{
			KlineInterval:     "1m",
			CandleCacheSize:   100,
			KeepAliveInterval: 30 * time.Minute,
			ReconnectDelay:    5 * time.Second,
		},
		Simulation: SimulationConfig{
			InitialBalance: 1000,
			FeeRate:        0.001,
		},
		Resilience: resilience.PipelineConfig{
			RateLimit: &resilience.RateLimiterConfig{
				Permits:     20,
				Period:      time.Second,
				WaitTimeout: 5 * time.Second,
			},
			Breaker: &resilience.CircuitBreakerConfig{
				WindowSize:   10,
				FailureRatio: 0.5,
				Cooldown:     time.Minute,
			},
			Retry: &resilience.RetryConfig{
				MaxAttempts: 4,
				BaseDelay:   500 * time.Millisecond,
			},
		},
	}
}

// Load reads a YAML config file on top of the defaults and validates the
// result.
func Load(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes on top of the defaults and validates the
// result.
func Parse(data []byte) (*GatewayConfig, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the GatewayConfig struct.
func (c *GatewayConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid gateway config", err)
	}

	return nil
}
