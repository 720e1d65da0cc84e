package types

import "time"

// TradeEntry is one completed (or partially completed) round trip. Entries are
// produced only at close or partial close; an open position never appears here.
type TradeEntry struct {
	Symbol     string       `json:"symbol" yaml:"symbol"`
	Side       PositionType `json:"side" yaml:"side"`
	EntryTime  time.Time    `json:"entry_time" yaml:"entry_time"`
	EntryPrice float64      `json:"entry_price" yaml:"entry_price"`
	Quantity   float64      `json:"quantity" yaml:"quantity"`
	ExitTime   time.Time    `json:"exit_time" yaml:"exit_time"`
	ExitPrice  float64      `json:"exit_price" yaml:"exit_price"`
	// PnL is realized profit and loss net of the exit commission.
	PnL        float64 `json:"pnl" yaml:"pnl"`
	PnLPercent float64 `json:"pnl_percent" yaml:"pnl_percent"`
	// Commission is the exit commission charged on this close.
	Commission float64 `json:"commission" yaml:"commission"`
	ExitReason string  `json:"exit_reason" yaml:"exit_reason"`
}

// IncomeEntry is one row of the exchange income history: realized P&L,
// commission, funding fees and similar account-level cash flows.
type IncomeEntry struct {
	Symbol     string    `json:"symbol" yaml:"symbol"`
	IncomeType string    `json:"income_type" yaml:"income_type"`
	Income     float64   `json:"income" yaml:"income"`
	Asset      string    `json:"asset" yaml:"asset"`
	Time       time.Time `json:"time" yaml:"time"`
}
