package types

import "time"

// Kline is one candlestick for a symbol at a fixed interval.
type Kline struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Interval  string    `json:"interval" yaml:"interval"`
	OpenTime  time.Time `json:"open_time" yaml:"open_time"`
	CloseTime time.Time `json:"close_time" yaml:"close_time"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    float64   `json:"volume" yaml:"volume"`
}

// MarkPrice is the exchange-computed reference price used for unrealized P&L
// and liquidation, distinct from the last trade price.
type MarkPrice struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Price  float64   `json:"price" yaml:"price"`
	Time   time.Time `json:"time" yaml:"time"`
}
