package tradingprovider

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulated(t *testing.T) *SimulatedGateway {
	t.Helper()

	return NewSimulatedGateway(SimulatedGatewayConfig{
		InitialBalance: 1000,
		FeeRate:        0.001,
	}, logger.NewNopLogger())
}

func openLong(t *testing.T, gw *SimulatedGateway, symbol string, qty float64, price float64) types.OrderResult {
	t.Helper()

	gw.SetPrice(symbol, price)
	result, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:   symbol,
		Side:     types.SideBuy,
		Quantity: qty,
	})
	require.NoError(t, err)
	require.Equal(t, types.OrderStatusFilled, result.Status)

	return result
}

func TestSimulatedGateway_LongRoundTrip(t *testing.T) {
	gw := newSimulated(t)
	gw.SetClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	openLong(t, gw, "BTCUSDT", 1, 100)

	// Entry commission: 1 * 100 * 0.001 = 0.1.
	assert.InDelta(t, 999.9, gw.Balance(), 1e-9)

	gw.SetPrice("BTCUSDT", 110)
	gw.SetClock(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC))

	result, err := gw.ClosePosition(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusFilled, result.Status)
	assert.Equal(t, types.SideSell, result.Side)

	// Realized: (110-100)*1 - 110*0.001 = 9.89; final 1000 - 0.1 + 9.89.
	assert.InDelta(t, 1009.79, gw.Balance(), 1e-9)

	trades := gw.TradeHistory()
	require.Len(t, trades, 1)
	assert.InDelta(t, 9.89, trades[0].PnL, 1e-9)
	assert.Equal(t, types.PositionTypeLong, trades[0].Side)
	assert.InDelta(t, 0.11, trades[0].Commission, 1e-9)

	positions, err := gw.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestSimulatedGateway_ShortPnLSignInverts(t *testing.T) {
	gw := newSimulated(t)
	gw.SetPrice("ETHUSDT", 100)

	_, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:   "ETHUSDT",
		Side:     types.SideSell,
		Quantity: 1,
	})
	require.NoError(t, err)

	// Price rises against the short.
	gw.SetPrice("ETHUSDT", 110)

	_, err = gw.ClosePosition(context.Background(), "ETHUSDT")
	require.NoError(t, err)

	trades := gw.TradeHistory()
	require.Len(t, trades, 1)
	assert.Equal(t, types.PositionTypeShort, trades[0].Side)
	// (110-100)*1 negated, minus exit commission 0.11.
	assert.InDelta(t, -10.11, trades[0].PnL, 1e-9)
}

func TestSimulatedGateway_PartialClose(t *testing.T) {
	gw := newSimulated(t)
	gw.SetSymbolPrecision("BTCUSDT", 3)

	openLong(t, gw, "BTCUSDT", 1, 100)
	gw.SetPrice("BTCUSDT", 110)

	result, err := gw.ClosePositionPartial(context.Background(), "BTCUSDT", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.ExecutedQty, 1e-9)

	positions, err := gw.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 0.5, positions[0].Quantity, 1e-9)
	// Entry price is untouched by a partial close.
	assert.InDelta(t, 100, positions[0].EntryPrice, 1e-9)
}

func TestSimulatedGateway_PartialCloseFullFractionMatchesClose(t *testing.T) {
	full := newSimulated(t)
	partial := newSimulated(t)

	for _, gw := range []*SimulatedGateway{full, partial} {
		openLong(t, gw, "BTCUSDT", 1, 100)
		gw.SetPrice("BTCUSDT", 110)
	}

	_, err := full.ClosePosition(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	// Fractions of 1 or more are clamped to a full close.
	_, err = partial.ClosePositionPartial(context.Background(), "BTCUSDT", 1.5)
	require.NoError(t, err)

	assert.InDelta(t, full.Balance(), partial.Balance(), 1e-9)
	assert.Len(t, partial.TradeHistory(), 1)

	positions, err := partial.GetPositions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestSimulatedGateway_PartialCloseRoundsToZero(t *testing.T) {
	gw := newSimulated(t)
	gw.SetSymbolPrecision("BTCUSDT", 0)

	openLong(t, gw, "BTCUSDT", 1, 100)

	_, err := gw.ClosePositionPartial(context.Background(), "BTCUSDT", 0.4)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeQuantityTooSmall))
}

func TestSimulatedGateway_CloseWithoutPositionSkips(t *testing.T) {
	gw := newSimulated(t)
	gw.SetPrice("BTCUSDT", 100)

	result, err := gw.ClosePosition(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusSkipped, result.Status)
	assert.Empty(t, gw.TradeHistory())
}

func TestSimulatedGateway_MissingPriceFailsExplicitly(t *testing.T) {
	gw := newSimulated(t)

	_, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:   "BTCUSDT",
		Side:     types.SideBuy,
		Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePriceUnavailable))

	_, err = gw.GetMarkPrice(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePriceUnavailable))

	openLong(t, gw, "ETHUSDT", 1, 100)
	delete(gw.prices, "ETHUSDT")

	_, err = gw.ClosePosition(context.Background(), "ETHUSDT")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePriceUnavailable))
}

func TestSimulatedGateway_ReduceOnlyWithoutPosition(t *testing.T) {
	gw := newSimulated(t)
	gw.SetPrice("BTCUSDT", 100)

	_, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:     "BTCUSDT",
		Side:       types.SideSell,
		Quantity:   1,
		ReduceOnly: true,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoOpenPosition))
}

func TestSimulatedGateway_MonotonicOrderIDs(t *testing.T) {
	gw := newSimulated(t)
	gw.SetPrice("BTCUSDT", 100)

	var previous int64
	for range 5 {
		result, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
			Symbol:   "BTCUSDT",
			Side:     types.SideBuy,
			Quantity: 1,
		})
		require.NoError(t, err)
		assert.Greater(t, result.OrderID, previous)
		previous = result.OrderID
	}

	assert.Len(t, gw.OrderHistory(), 5)
}

func TestSimulatedGateway_AddingKeepsEntryPrice(t *testing.T) {
	gw := newSimulated(t)

	openLong(t, gw, "BTCUSDT", 1, 100)
	gw.SetPrice("BTCUSDT", 120)
	openLong(t, gw, "BTCUSDT", 1, 120)

	positions, err := gw.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 2, positions[0].Quantity, 1e-9)
	// First fill fixes the entry price for the lifecycle.
	assert.InDelta(t, 100, positions[0].EntryPrice, 1e-9)
}

func TestSimulatedGateway_OppositeSideOrderRealizesPnL(t *testing.T) {
	gw := newSimulated(t)

	openLong(t, gw, "BTCUSDT", 2, 100)
	gw.SetPrice("BTCUSDT", 110)

	// A plain SELL against a long closes that much of it.
	result, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:   "BTCUSDT",
		Side:     types.SideSell,
		Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusFilled, result.Status)

	trades := gw.TradeHistory()
	require.Len(t, trades, 1)
	// (110-100)*1 - 110*0.001 = 9.89.
	assert.InDelta(t, 9.89, trades[0].PnL, 1e-9)

	positions, err := gw.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 1, positions[0].Quantity, 1e-9)
	assert.InDelta(t, 100, positions[0].EntryPrice, 1e-9)

	// Selling the remainder flattens and realizes the rest.
	_, err = gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:   "BTCUSDT",
		Side:     types.SideSell,
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Len(t, gw.TradeHistory(), 2)

	positions, err = gw.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Empty(t, positions)

	// 1000 - 0.2 entry commission + 2 * 9.89 realized.
	assert.InDelta(t, 1019.58, gw.Balance(), 1e-9)
}

func TestSimulatedGateway_ReversalThroughZeroRejected(t *testing.T) {
	gw := newSimulated(t)

	openLong(t, gw, "BTCUSDT", 1, 100)
	balanceBefore := gw.Balance()

	_, err := gw.PlaceMarketOrder(context.Background(), types.MarketOrderRequest{
		Symbol:   "BTCUSDT",
		Side:     types.SideSell,
		Quantity: 2,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))

	// The rejected order must not touch the position or the balance.
	positions, err := gw.GetPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 1, positions[0].Quantity, 1e-9)
	assert.InDelta(t, balanceBefore, gw.Balance(), 1e-9)
	assert.Empty(t, gw.TradeHistory())
}

func TestSimulatedGateway_AccountSnapshotIncludesUnrealized(t *testing.T) {
	gw := newSimulated(t)

	openLong(t, gw, "BTCUSDT", 1, 100)
	gw.SetPrice("BTCUSDT", 110)

	snapshot, err := gw.GetAccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 999.9, snapshot.WalletBalance, 1e-9)
	assert.InDelta(t, 1009.9, snapshot.MarginBalance, 1e-9)
}

func TestSimulatedGateway_Reset(t *testing.T) {
	gw := newSimulated(t)

	openLong(t, gw, "BTCUSDT", 1, 100)
	gw.Reset()

	assert.InDelta(t, 1000, gw.Balance(), 1e-9)
	assert.Empty(t, gw.OrderHistory())
	assert.Empty(t, gw.TradeHistory())

	positions, err := gw.GetPositions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestSimulatedGateway_SeededCandles(t *testing.T) {
	gw := newSimulated(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Kline, 0, 10)
	for i := range 10 {
		candles = append(candles, types.Kline{
			Symbol:    "BTCUSDT",
			Interval:  "1m",
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100.5,
			Volume:    10,
		})
	}
	gw.SeedCandles("BTCUSDT", candles)

	recent, err := gw.GetCandles(context.Background(), "BTCUSDT", "1m", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, candles[7].OpenTime, recent[0].OpenTime)

	ranged, err := gw.GetCandlesRange(context.Background(), "BTCUSDT", "1m",
		base.Add(2*time.Minute), base.Add(5*time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, ranged, 4)

	_, err = gw.GetCandles(context.Background(), "ETHUSDT", "1m", 3)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataNotFound))
}
