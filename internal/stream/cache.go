package stream

import (
	"strconv"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// AccountListener is invoked synchronously after every account cache update
// with the freshly swapped-in snapshot and position list.
type AccountListener func(snapshot types.AccountSnapshot, positions []types.Position)

// Cache is the in-memory view of the three stream channels: account and
// positions, per-symbol mark prices, and per-symbol bounded closed-candle
// history. Snapshots are replaced wholesale under the lock, so readers never
// observe old balances mixed with new positions.
type Cache struct {
	mu sync.RWMutex

	account      types.AccountSnapshot
	positions    []types.Position
	accountReady bool

	markPrices map[string]types.MarkPrice
	candles    map[string][]types.Kline
	maxCandles int

	listeners []AccountListener
}

// NewCache creates a cache bounding each symbol's candle history to
// maxCandles entries.
func NewCache(maxCandles int) *Cache {
	//nolint:exhaustruct
	return &Cache{
		markPrices: make(map[string]types.MarkPrice),
		candles:    make(map[string][]types.Kline),
		maxCandles: maxCandles,
	}
}

// RegisterAccountListener adds a listener notified after each account update.
// Register before the stream starts; registration is not synchronized with
// in-flight notifications.
func (c *Cache) RegisterAccountListener(listener AccountListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, listener)
}

// Ready reports whether at least one account update has been applied. Before
// that, Account returns the zero snapshot and callers must treat the cache as
// not ready rather than as an account with zero balance.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accountReady
}

// Account returns the latest account snapshot and position list.
func (c *Cache) Account() (types.AccountSnapshot, []types.Position) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.account, append([]types.Position(nil), c.positions...)
}

// Positions returns the open positions for one symbol (all when empty).
func (c *Cache) Positions(symbol string) []types.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()

	positions := make([]types.Position, 0, len(c.positions))
	for _, pos := range c.positions {
		if symbol == "" || pos.Symbol == symbol {
			positions = append(positions, pos)
		}
	}

	return positions
}

// MarkPrice returns the latest streamed mark price for a symbol.
func (c *Cache) MarkPrice(symbol string) optional.Option[types.MarkPrice] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	price, ok := c.markPrices[symbol]
	if !ok {
		return optional.None[types.MarkPrice]()
	}

	return optional.Some(price)
}

// Candles returns a copy of the closed-candle history for a symbol, oldest
// first.
func (c *Cache) Candles(symbol string) []types.Kline {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]types.Kline(nil), c.candles[symbol]...)
}

// applyAccountUpdate rebuilds the balance snapshot and, when the event
// carries a position array, replaces the whole position list filtered to
// nonzero quantities. A balance-only delta (nil position array) leaves the
// existing positions untouched; an all-zero array clears them.
func (c *Cache) applyAccountUpdate(event accountUpdateEvent) {
	c.mu.Lock()

	assets := make([]types.AssetBalance, 0, len(event.Data.Balances))
	wallet := 0.0
	crossWallet := 0.0

	for _, balance := range event.Data.Balances {
		amount := parseStreamFloat(balance.WalletBalance)
		cross := parseStreamFloat(balance.CrossWallet)
		wallet += amount
		crossWallet += cross

		assets = append(assets, types.AssetBalance{
			Asset:            balance.Asset,
			WalletBalance:    amount,
			AvailableBalance: cross,
		})
	}

	updatedAt := time.UnixMilli(event.EventTime)

	c.account = types.AccountSnapshot{
		WalletBalance:    wallet,
		MarginBalance:    wallet + c.totalUnrealized(event),
		AvailableBalance: crossWallet,
		Assets:           assets,
		UpdatedAt:        updatedAt,
	}
	c.accountReady = true

	if event.Data.Positions != nil {
		positions := make([]types.Position, 0, len(event.Data.Positions))
		for _, delta := range event.Data.Positions {
			quantity := parseStreamFloat(delta.PositionAmount)
			if quantity == 0 {
				continue
			}

			positions = append(positions, types.Position{
				Symbol:        delta.Symbol,
				Quantity:      quantity,
				EntryPrice:    parseStreamFloat(delta.EntryPrice),
				PositionSide:  delta.PositionSide,
				UnrealizedPnL: parseStreamFloat(delta.UnrealizedPnL),
				OpenedAt:      updatedAt,
			})
		}

		c.positions = positions
	}

	snapshot := c.account
	positions := append([]types.Position(nil), c.positions...)
	listeners := c.listeners

	c.mu.Unlock()

	// Listeners run synchronously on the stream goroutine, outside the
	// lock, on a consistent copy.
	for _, listener := range listeners {
		listener(snapshot, positions)
	}
}

func (c *Cache) totalUnrealized(event accountUpdateEvent) float64 {
	total := 0.0
	for _, delta := range event.Data.Positions {
		total += parseStreamFloat(delta.UnrealizedPnL)
	}

	return total
}

// applyMarkPrice stores the latest mark price, last write wins.
func (c *Cache) applyMarkPrice(event markPriceEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markPrices[event.Symbol] = types.MarkPrice{
		Symbol: event.Symbol,
		Price:  parseStreamFloat(event.MarkPrice),
		Time:   time.UnixMilli(event.EventTime),
	}
}

// applyKline appends a closed candle and evicts the oldest once the bound is
// exceeded. In-progress candles are dropped.
func (c *Cache) applyKline(event klineEvent) {
	if !event.Kline.Closed {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	candle := types.Kline{
		Symbol:    event.Kline.Symbol,
		Interval:  event.Kline.Interval,
		OpenTime:  time.UnixMilli(event.Kline.OpenTime),
		CloseTime: time.UnixMilli(event.Kline.CloseTime),
		Open:      parseStreamFloat(event.Kline.Open),
		High:      parseStreamFloat(event.Kline.High),
		Low:       parseStreamFloat(event.Kline.Low),
		Close:     parseStreamFloat(event.Kline.Close),
		Volume:    parseStreamFloat(event.Kline.Volume),
	}

	history := append(c.candles[event.Kline.Symbol], candle)
	if len(history) > c.maxCandles {
		history = history[len(history)-c.maxCandles:]
	}

	c.candles[event.Kline.Symbol] = history
}

func parseStreamFloat(text string) float64 {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}

	return value
}
