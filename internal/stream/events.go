package stream

import "encoding/json"

// Wire formats of the user data and market stream events this cache consumes.
// Numeric fields arrive as JSON strings.

type streamEnvelope struct {
	EventType string `json:"e"`
}

// combinedEnvelope wraps events from the combined multi-symbol market stream.
type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type accountUpdateEvent struct {
	EventType string            `json:"e"`
	EventTime int64             `json:"E"`
	Data      accountUpdateData `json:"a"`
}

type accountUpdateData struct {
	Balances []balanceDelta `json:"B"`
	// Positions is nil when the delta carries only balance changes;
	// callers must distinguish nil from an explicit empty or all-zero
	// array.
	Positions []positionDelta `json:"P"`
}

type balanceDelta struct {
	Asset         string `json:"a"`
	WalletBalance string `json:"wb"`
	CrossWallet   string `json:"cw"`
}

type positionDelta struct {
	Symbol         string `json:"s"`
	PositionAmount string `json:"pa"`
	EntryPrice     string `json:"ep"`
	UnrealizedPnL  string `json:"up"`
	PositionSide   string `json:"ps"`
}

type markPriceEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
}

type klineEvent struct {
	EventType string    `json:"e"`
	Symbol    string    `json:"s"`
	Kline     klineData `json:"k"`
}

type klineData struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	// Closed is true only once the candle has finished; in-progress
	// updates are ignored by the cache.
	Closed bool `json:"x"`
}
