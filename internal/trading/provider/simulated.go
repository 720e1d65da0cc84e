package tradingprovider

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// SimulatedGatewayConfig seeds a simulated gateway.
type SimulatedGatewayConfig struct {
	InitialBalance float64 `json:"initialBalance" validate:"required,gt=0"`
	// FeeRate is the taker commission charged on notional at open and
	// close.
	FeeRate float64 `json:"feeRate" validate:"gte=0,lt=1"`
}

// SimulatedGateway implements the gateway contract synchronously against an
// explicitly-set clock and per-symbol prices. The backtest driver must call
// SetPrice before each simulated tick; any operation touching a symbol
// without a price fails explicitly so a backtest cannot run on bad data.
//
// Balance only changes through commission and realized P&L inside order
// placement and close, never directly.
type SimulatedGateway struct {
	mu sync.RWMutex

	cfg SimulatedGatewayConfig
	log *logger.Logger

	balance   float64
	now       time.Time
	prices    map[string]float64
	positions map[string]*types.Position
	precision map[string]int
	leverage  map[string]int
	margin    map[string]types.MarginMode
	candles   map[string][]types.Kline

	orders      []types.OrderRecord
	trades      []types.TradeEntry
	nextOrderID int64
}

// NewSimulatedGateway creates a simulated gateway with the configured virtual
// balance.
func NewSimulatedGateway(cfg SimulatedGatewayConfig, log *logger.Logger) *SimulatedGateway {
	//nolint:exhaustruct
	gw := &SimulatedGateway{
		cfg: cfg,
		log: log,
	}
	gw.reset()

	return gw
}

// Reset restores the initial balance and clears positions, prices, orders and
// trades.
func (g *SimulatedGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reset()
}

func (g *SimulatedGateway) reset() {
	g.balance = g.cfg.InitialBalance
	g.now = time.Time{}
	g.prices = make(map[string]float64)
	g.positions = make(map[string]*types.Position)
	g.precision = make(map[string]int)
	g.leverage = make(map[string]int)
	g.margin = make(map[string]types.MarginMode)
	g.candles = make(map[string][]types.Kline)
	g.orders = nil
	g.trades = nil
	g.nextOrderID = 1
}

// SetClock sets the simulated current time. The simulator never reads a real
// clock.
func (g *SimulatedGateway) SetClock(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.now = now
}

// SetPrice sets the current price for a symbol.
func (g *SimulatedGateway) SetPrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prices[symbol] = price
}

// SetSymbolPrecision overrides the quantity precision for a symbol.
func (g *SimulatedGateway) SetSymbolPrecision(symbol string, precision int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.precision[symbol] = precision
}

// SeedCandles loads historical candles served by GetCandles and
// GetCandlesRange.
func (g *SimulatedGateway) SeedCandles(symbol string, candles []types.Kline) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.candles[symbol] = append([]types.Kline(nil), candles...)
}

// GetAccountSnapshot returns the virtual balances. Margin balance includes
// unrealized P&L of open positions priced at the current prices.
func (g *SimulatedGateway) GetAccountSnapshot(_ context.Context) (types.AccountSnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	unrealized := 0.0
	for _, pos := range g.positions {
		price, ok := g.prices[pos.Symbol]
		if !ok {
			continue
		}

		unrealized += (price - pos.EntryPrice) * pos.Quantity
	}

	return types.AccountSnapshot{
		WalletBalance:    g.balance,
		MarginBalance:    g.balance + unrealized,
		AvailableBalance: g.balance,
		Assets: []types.AssetBalance{
			{Asset: "USDT", WalletBalance: g.balance, AvailableBalance: g.balance},
		},
		UpdatedAt: g.now,
	}, nil
}

// GetPositions returns open positions with unrealized P&L refreshed from the
// current prices.
func (g *SimulatedGateway) GetPositions(_ context.Context, symbol string) ([]types.Position, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	positions := make([]types.Position, 0, len(g.positions))
	for _, pos := range g.positions {
		if symbol != "" && pos.Symbol != symbol {
			continue
		}

		snapshot := *pos
		if price, ok := g.prices[pos.Symbol]; ok {
			snapshot.UnrealizedPnL = (price - pos.EntryPrice) * pos.Quantity
		}

		positions = append(positions, snapshot)
	}

	return positions, nil
}

// GetCandles returns up to limit most recent seeded candles.
func (g *SimulatedGateway) GetCandles(_ context.Context, symbol string, _ string, limit int) ([]types.Kline, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	candles, ok := g.candles[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no candles seeded for %s", symbol)
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return append([]types.Kline(nil), candles...), nil
}

// GetCandlesRange returns seeded candles with open time inside [start, end].
func (g *SimulatedGateway) GetCandlesRange(_ context.Context, symbol string, _ string, start time.Time, end time.Time, limit int) ([]types.Kline, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	candles, ok := g.candles[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no candles seeded for %s", symbol)
	}

	selected := make([]types.Kline, 0, len(candles))
	for _, candle := range candles {
		if candle.OpenTime.Before(start) || candle.OpenTime.After(end) {
			continue
		}

		selected = append(selected, candle)
		if limit > 0 && len(selected) == limit {
			break
		}
	}

	return selected, nil
}

// GetMarkPrice returns the explicitly-set price for a symbol. A missing price
// is an explicit error, never a silent zero.
func (g *SimulatedGateway) GetMarkPrice(_ context.Context, symbol string) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	price, ok := g.prices[symbol]
	if !ok {
		return 0, errors.Newf(errors.ErrCodePriceUnavailable, "no price set for %s", symbol)
	}

	return price, nil
}

// PlaceMarketOrder fills the order immediately at the current price. Opening
// (or adding to) a position deducts notional * feeRate from the virtual
// balance. The first fill fixes the entry price for the position lifecycle.
// An opposite-side order up to the open quantity closes that much of the
// position, realizing P&L; an order that would reverse the direction in a
// single fill is rejected.
func (g *SimulatedGateway) PlaceMarketOrder(_ context.Context, order types.MarketOrderRequest) (types.OrderResult, error) {
	//nolint:exhaustruct
	zero := types.OrderResult{}

	if err := order.Validate(); err != nil {
		return zero, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	price, ok := g.prices[order.Symbol]
	if !ok {
		return zero, errors.Newf(errors.ErrCodePriceUnavailable, "no price set for %s", order.Symbol)
	}

	signedQty := order.Quantity
	if order.Side == types.SideSell {
		signedQty = -signedQty
	}

	pos, exists := g.positions[order.Symbol]

	if order.ReduceOnly {
		if !exists {
			return zero, errors.Newf(errors.ErrCodeNoOpenPosition, "reduce-only order with no open position for %s", order.Symbol)
		}

		return g.reducePosition(pos, order.Quantity, price, "close")
	}

	if exists && pos.Quantity*signedQty < 0 {
		if order.Quantity > pos.AbsQuantity() {
			return zero, errors.Newf(errors.ErrCodeInvalidOrder,
				"order would flip the %s position through zero; close it before reversing", order.Symbol)
		}

		// An opposite-side fill up to the open quantity is a close, not
		// an add: realize P&L on the overlap instead of blending entry
		// prices across directions.
		return g.reducePosition(pos, order.Quantity, price, "close")
	}

	commission := order.Quantity * price * g.cfg.FeeRate
	g.balance -= commission

	if exists {
		// Adding to a position keeps the original entry price; only a
		// full close and reopen resets it.
		pos.Quantity += signedQty
	} else {
		g.positions[order.Symbol] = &types.Position{
			Symbol:        order.Symbol,
			Quantity:      signedQty,
			EntryPrice:    price,
			PositionSide:  order.PositionSide,
			UnrealizedPnL: 0,
			OpenedAt:      g.now,
		}
	}

	return g.recordFill(order.Symbol, order.Side, order.Quantity, price), nil
}

// ClosePosition flattens the open position at the current price, realizing
// P&L minus exit commission.
func (g *SimulatedGateway) ClosePosition(ctx context.Context, symbol string) (types.OrderResult, error) {
	return g.closePosition(ctx, symbol, 1)
}

// ClosePositionPartial closes |quantity| * fraction, floored to the symbol
// precision. The remaining position keeps its entry price.
func (g *SimulatedGateway) ClosePositionPartial(ctx context.Context, symbol string, fraction float64) (types.OrderResult, error) {
	if fraction <= 0 {
		//nolint:exhaustruct
		return types.OrderResult{}, errors.New(errors.ErrCodeInvalidParameter, "close fraction must be positive")
	}
	if fraction > 1 {
		fraction = 1
	}

	return g.closePosition(ctx, symbol, fraction)
}

func (g *SimulatedGateway) closePosition(_ context.Context, symbol string, fraction float64) (types.OrderResult, error) {
	//nolint:exhaustruct
	zero := types.OrderResult{}

	g.mu.Lock()
	defer g.mu.Unlock()

	pos, exists := g.positions[symbol]
	if !exists {
		g.log.Info("No open position to close", zap.String("symbol", symbol))

		return types.OrderResult{
			OrderID:     0,
			Symbol:      symbol,
			Side:        "",
			Status:      types.OrderStatusSkipped,
			ExecutedQty: 0,
			AvgPrice:    0,
			DryRun:      false,
		}, nil
	}

	price, ok := g.prices[symbol]
	if !ok {
		return zero, errors.Newf(errors.ErrCodePriceUnavailable, "no price set for %s", symbol)
	}

	precision := g.precisionFor(symbol)
	quantity := pos.AbsQuantity() * fraction
	if fraction < 1 {
		quantity = floorQuantity(quantity, precision)
		if quantity <= 0 {
			return zero, errors.Newf(errors.ErrCodeQuantityTooSmall,
				"partial close of %s rounds to zero at precision %d", symbol, precision)
		}
	}

	return g.reducePosition(pos, quantity, price, "close")
}

// reducePosition realizes P&L on quantity units at price and shrinks or
// removes the position. Callers hold the lock.
func (g *SimulatedGateway) reducePosition(pos *types.Position, quantity float64, price float64, reason string) (types.OrderResult, error) {
	if quantity > pos.AbsQuantity() {
		quantity = pos.AbsQuantity()
	}

	direction := 1.0
	side := types.SideSell
	if pos.Quantity < 0 {
		direction = -1.0
		side = types.SideBuy
	}

	exitCommission := quantity * price * g.cfg.FeeRate
	realized := (price-pos.EntryPrice)*quantity*direction - exitCommission
	g.balance += realized

	notionalEntry := pos.EntryPrice * quantity
	pnlPercent := 0.0
	if notionalEntry != 0 {
		pnlPercent = realized / notionalEntry * 100
	}

	g.trades = append(g.trades, types.TradeEntry{
		Symbol:     pos.Symbol,
		Side:       pos.Side(),
		Quantity:   quantity,
		EntryTime:  pos.OpenedAt,
		EntryPrice: pos.EntryPrice,
		ExitTime:   g.now,
		ExitPrice:  price,
		PnL:        realized,
		PnLPercent: pnlPercent,
		Commission: exitCommission,
		ExitReason: reason,
	})

	if quantity >= pos.AbsQuantity() {
		delete(g.positions, pos.Symbol)
	} else if pos.Quantity > 0 {
		pos.Quantity -= quantity
	} else {
		pos.Quantity += quantity
	}

	g.log.Info("Position reduced",
		zap.String("symbol", pos.Symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.Float64("realizedPnl", realized),
		zap.Float64("balance", g.balance))

	return g.recordFill(pos.Symbol, side, quantity, price), nil
}

// recordFill appends an order record and returns the filled result. Callers
// hold the lock.
func (g *SimulatedGateway) recordFill(symbol string, side types.Side, quantity float64, price float64) types.OrderResult {
	orderID := g.nextOrderID
	g.nextOrderID++

	g.orders = append(g.orders, types.OrderRecord{
		OrderID:   orderID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: g.now,
	})

	return types.OrderResult{
		OrderID:     orderID,
		Symbol:      symbol,
		Side:        side,
		Status:      types.OrderStatusFilled,
		ExecutedQty: quantity,
		AvgPrice:    price,
		DryRun:      false,
	}
}

// SetLeverage records the leverage for a symbol.
func (g *SimulatedGateway) SetLeverage(_ context.Context, symbol string, leverage int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.leverage[symbol] = leverage

	return nil
}

// SetMarginMode records the margin mode for a symbol.
func (g *SimulatedGateway) SetMarginMode(_ context.Context, symbol string, mode types.MarginMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.margin[symbol] = mode

	return nil
}

// GetSymbolPrecision returns the configured precision for a symbol, or the
// conservative default.
func (g *SimulatedGateway) GetSymbolPrecision(symbol string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.precisionFor(symbol)
}

func (g *SimulatedGateway) precisionFor(symbol string) int {
	if precision, ok := g.precision[symbol]; ok {
		return precision
	}

	return defaultPrecision
}

// GetIncomeHistory synthesizes income records from the realized trade log.
func (g *SimulatedGateway) GetIncomeHistory(_ context.Context, symbol string, limit int) ([]types.IncomeEntry, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entries := make([]types.IncomeEntry, 0, len(g.trades))
	for _, trade := range g.trades {
		if symbol != "" && trade.Symbol != symbol {
			continue
		}

		entries = append(entries, types.IncomeEntry{
			Symbol:     trade.Symbol,
			IncomeType: "REALIZED_PNL",
			Income:     trade.PnL,
			Asset:      "USDT",
			Time:       trade.ExitTime,
		})
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	return entries, nil
}

// Balance returns the current virtual balance.
func (g *SimulatedGateway) Balance() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.balance
}

// OrderHistory returns a copy of the append-only order log.
func (g *SimulatedGateway) OrderHistory() []types.OrderRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return append([]types.OrderRecord(nil), g.orders...)
}

// TradeHistory returns a copy of the realized trade log.
func (g *SimulatedGateway) TradeHistory() []types.TradeEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return append([]types.TradeEntry(nil), g.trades...)
}
