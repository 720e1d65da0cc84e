package trading

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// ExchangeGateway is the single contract strategy code trades through. It is
// implemented by the live exchange gateway and by the simulated gateway, so
// callers never know which backend they are wired to.
type ExchangeGateway interface {
	// GetAccountSnapshot returns the current account balances. On failure
	// a zero snapshot is returned alongside the error so callers can keep
	// functioning.
	GetAccountSnapshot(ctx context.Context) (types.AccountSnapshot, error)
	// GetPositions returns open positions, optionally filtered to one
	// symbol (empty symbol means all). Empty slice on failure.
	GetPositions(ctx context.Context, symbol string) ([]types.Position, error)
	// GetCandles returns up to limit most recent candles for the symbol
	// and interval.
	GetCandles(ctx context.Context, symbol string, interval string, limit int) ([]types.Kline, error)
	// GetCandlesRange returns candles inside [start, end] for historical
	// backfill.
	GetCandlesRange(ctx context.Context, symbol string, interval string, start time.Time, end time.Time, limit int) ([]types.Kline, error)
	// GetMarkPrice returns the current mark price. A returned 0 means
	// unknown, never a real price.
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)
	// PlaceMarketOrder places a market order through the full resilience
	// pipeline. Order failures always propagate.
	PlaceMarketOrder(ctx context.Context, order types.MarketOrderRequest) (types.OrderResult, error)
	// ClosePosition flattens the open position with an opposite
	// reduce-only market order. A missing position reports
	// OrderStatusSkipped, not an error.
	ClosePosition(ctx context.Context, symbol string) (types.OrderResult, error)
	// ClosePositionPartial closes |quantity| * fraction, floored to the
	// symbol's quantity precision. A fraction of 1 or more closes fully.
	ClosePositionPartial(ctx context.Context, symbol string, fraction float64) (types.OrderResult, error)
	// SetLeverage applies the leverage for a symbol. Already-set failures
	// are tolerated by callers.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// SetMarginMode applies the margin mode for a symbol.
	SetMarginMode(ctx context.Context, symbol string, mode types.MarginMode) error
	// GetSymbolPrecision returns the quantity precision (decimal places)
	// for a symbol, with a conservative default for unknown symbols.
	GetSymbolPrecision(symbol string) int
	// GetIncomeHistory returns recent income records (realized pnl,
	// commissions, funding fees).
	GetIncomeHistory(ctx context.Context, symbol string, limit int) ([]types.IncomeEntry, error)
}
