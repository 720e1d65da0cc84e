package types

import "time"

// AssetBalance is a per-asset sub-balance inside an account snapshot.
type AssetBalance struct {
	Asset            string  `json:"asset" yaml:"asset"`
	WalletBalance    float64 `json:"wallet_balance" yaml:"wallet_balance"`
	AvailableBalance float64 `json:"available_balance" yaml:"available_balance"`
}

// AccountSnapshot is an immutable view of the futures account. Snapshots are
// replaced wholesale, never patched in place, so concurrent readers always see
// a consistent state.
type AccountSnapshot struct {
	// WalletBalance is the total wallet balance in the quote asset.
	WalletBalance float64 `json:"wallet_balance" yaml:"wallet_balance"`
	// MarginBalance is wallet balance plus unrealized P&L.
	MarginBalance float64 `json:"margin_balance" yaml:"margin_balance"`
	// AvailableBalance is the balance free for new positions.
	AvailableBalance float64 `json:"available_balance" yaml:"available_balance"`
	Assets           []AssetBalance `json:"assets" yaml:"assets"`
	UpdatedAt        time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Position is the current holding for one (symbol, position-side) key.
// A position with zero quantity does not exist; it is removed rather than
// zeroed.
type Position struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	// Quantity is signed: positive for long, negative for short.
	Quantity float64 `json:"quantity" yaml:"quantity"`
	// EntryPrice is the volume-weighted entry price fixed at open.
	EntryPrice float64 `json:"entry_price" yaml:"entry_price"`
	// PositionSide is BOTH in one-way mode, LONG or SHORT in hedge mode.
	PositionSide  string    `json:"position_side" yaml:"position_side"`
	UnrealizedPnL float64   `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	OpenedAt      time.Time `json:"opened_at" yaml:"opened_at"`
}

// Side returns the direction implied by the signed quantity.
func (p *Position) Side() PositionType {
	if p.Quantity < 0 {
		return PositionTypeShort
	}

	return PositionTypeLong
}

// AbsQuantity returns the unsigned position size.
func (p *Position) AbsQuantity() float64 {
	if p.Quantity < 0 {
		return -p.Quantity
	}

	return p.Quantity
}

// IsOpen reports whether the position exists at all.
func (p *Position) IsOpen() bool {
	return p.Quantity != 0
}
