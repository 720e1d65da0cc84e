package orderbook

import (
	"math"
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/types"
)

const (
	// wallScanDepth is how many top-of-book levels wall detection inspects.
	wallScanDepth = 20
	// wallMinLevels is the minimum ladder depth required before wall
	// detection produces a signal at all.
	wallMinLevels = 5
	// slippageSentinel is returned when the book cannot absorb the
	// requested quantity, so callers treat the fill as maximally bad.
	slippageSentinel = 1.0
)

// Level is one price level of the depth ladder.
type Level struct {
	Price    float64
	Quantity float64
}

// Book is an in-memory depth ladder for a single symbol, maintained from
// incremental depth updates. Bids are kept descending and asks ascending so
// index zero is always top of book. All methods are safe for concurrent use.
type Book struct {
	mu     sync.RWMutex
	symbol string
	bids   []Level
	asks   []Level
}

// NewBook creates an empty book for symbol.
func NewBook(symbol string) *Book {
	return &Book{
		mu:     sync.RWMutex{},
		symbol: symbol,
		bids:   nil,
		asks:   nil,
	}
}

// Symbol returns the symbol this book tracks.
func (b *Book) Symbol() string {
	return b.symbol
}

// ApplyDepthUpdate merges incremental level updates into the ladder. A level
// with a non-positive quantity removes that price, otherwise the quantity
// replaces whatever was there.
func (b *Book) ApplyDepthUpdate(bids []Level, asks []Level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, level := range bids {
		b.bids = upsert(b.bids, level, descending)
	}

	for _, level := range asks {
		b.asks = upsert(b.asks, level, ascending)
	}
}

// Clear drops every level, e.g. after a stream gap forces a resync.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = nil
	b.asks = nil
}

// BestBid returns the highest bid level, if any.
func (b *Book) BestBid() optional.Option[Level] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.bids) == 0 {
		return optional.None[Level]()
	}

	return optional.Some(b.bids[0])
}

// BestAsk returns the lowest ask level, if any.
func (b *Book) BestAsk() optional.Option[Level] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.asks) == 0 {
		return optional.None[Level]()
	}

	return optional.Some(b.asks[0])
}

// Spread returns the best ask minus best bid, present only when both sides
// have at least one level.
func (b *Book) Spread() optional.Option[float64] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.bids) == 0 || len(b.asks) == 0 {
		return optional.None[float64]()
	}

	return optional.Some(b.asks[0].Price - b.bids[0].Price)
}

// Bids returns a copy of the top depth bid levels, best first. A non-positive
// depth returns the whole side.
func (b *Book) Bids(depth int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return copyLevels(b.bids, depth)
}

// Asks returns a copy of the top depth ask levels, best first. A non-positive
// depth returns the whole side.
func (b *Book) Asks(depth int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return copyLevels(b.asks, depth)
}

// Imbalance returns (bidVolume-askVolume)/(bidVolume+askVolume) over the top
// depth levels of each side. The result is in [-1, 1]; an empty book yields 0.
func (b *Book) Imbalance(depth int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bidVolume := sumQuantity(b.bids, depth)
	askVolume := sumQuantity(b.asks, depth)

	total := bidVolume + askVolume
	if total == 0 {
		return 0
	}

	return (bidVolume - askVolume) / total
}

// DetectBuyWall scans the top bid levels for the first unusually large one.
// A wall is a level whose quantity exceeds mean + factor*stddev of the
// scanned quantities. No signal is produced on ladders thinner than five
// levels.
func (b *Book) DetectBuyWall(factor float64) optional.Option[Level] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return detectWall(b.bids, factor)
}

// DetectSellWall is DetectBuyWall for the ask side.
func (b *Book) DetectSellWall(factor float64) optional.Option[Level] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return detectWall(b.asks, factor)
}

// EstimateSlippage walks the opposing ladder for a hypothetical market order
// of the given notional value, consuming levels from best price outward, and
// returns |avgFillPrice - referencePrice| / referencePrice. The reference
// price is supplied by the caller (typically the mark price), so the estimate
// includes spread and any book-versus-mark deviation. A book too shallow to
// absorb the notional returns 1.0, signaling "do not trade this size."
func (b *Book) EstimateSlippage(side types.Side, notional float64, referencePrice float64) float64 {
	if notional <= 0 {
		return 0
	}
	if referencePrice <= 0 {
		return slippageSentinel
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	ladder := b.asks
	if side == types.SideSell {
		ladder = b.bids
	}

	if len(ladder) == 0 {
		return slippageSentinel
	}

	remaining := notional
	filledQty := 0.0

	for _, level := range ladder {
		levelNotional := level.Quantity * level.Price
		take := math.Min(remaining, levelNotional)
		filledQty += take / level.Price
		remaining -= take

		if remaining <= 0 {
			break
		}
	}

	if remaining > 0 {
		return slippageSentinel
	}

	avgFillPrice := notional / filledQty

	return math.Abs(avgFillPrice-referencePrice) / referencePrice
}

func detectWall(ladder []Level, factor float64) optional.Option[Level] {
	if len(ladder) < wallMinLevels {
		return optional.None[Level]()
	}

	scan := ladder
	if len(scan) > wallScanDepth {
		scan = scan[:wallScanDepth]
	}

	mean := 0.0
	for _, level := range scan {
		mean += level.Quantity
	}
	mean /= float64(len(scan))

	variance := 0.0
	for _, level := range scan {
		diff := level.Quantity - mean
		variance += diff * diff
	}
	variance /= float64(len(scan))

	threshold := mean + factor*math.Sqrt(variance)

	for _, level := range scan {
		if level.Quantity > threshold {
			return optional.Some(level)
		}
	}

	return optional.None[Level]()
}

type ladderOrder int

const (
	descending ladderOrder = iota
	ascending
)

func upsert(ladder []Level, level Level, order ladderOrder) []Level {
	idx := sort.Search(len(ladder), func(i int) bool {
		if order == descending {
			return ladder[i].Price <= level.Price
		}

		return ladder[i].Price >= level.Price
	})

	exists := idx < len(ladder) && ladder[idx].Price == level.Price

	if level.Quantity <= 0 {
		if exists {
			return append(ladder[:idx], ladder[idx+1:]...)
		}

		return ladder
	}

	if exists {
		ladder[idx].Quantity = level.Quantity
		return ladder
	}

	ladder = append(ladder, Level{})
	copy(ladder[idx+1:], ladder[idx:])
	ladder[idx] = level

	return ladder
}

func copyLevels(ladder []Level, depth int) []Level {
	if depth <= 0 || depth > len(ladder) {
		depth = len(ladder)
	}

	out := make([]Level, depth)
	copy(out, ladder[:depth])

	return out
}

func sumQuantity(ladder []Level, depth int) float64 {
	if depth <= 0 || depth > len(ladder) {
		depth = len(ladder)
	}

	total := 0.0
	for _, level := range ladder[:depth] {
		total += level.Quantity
	}

	return total
}
