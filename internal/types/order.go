package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

type Side string

type PositionType string

type OrderStatus string

type MarginMode string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	PositionTypeLong  PositionType = "LONG"
	PositionTypeShort PositionType = "SHORT"
)

const (
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
	// OrderStatusSkipped marks a close request that found no open position.
	// Reported, not an error: the desired end state already holds.
	OrderStatusSkipped OrderStatus = "SKIPPED"
)

const (
	MarginModeCrossed  MarginMode = "CROSSED"
	MarginModeIsolated MarginMode = "ISOLATED"
)

// Opposite returns the side that flattens a position opened on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}

	return SideBuy
}

// MarketOrderRequest describes a market order before it is sent to a gateway.
type MarketOrderRequest struct {
	Symbol   string  `json:"symbol" yaml:"symbol" validate:"required"`
	Side     Side    `json:"side" yaml:"side" validate:"required,oneof=BUY SELL"`
	Quantity float64 `json:"quantity" yaml:"quantity" validate:"required,gt=0"`
	// ReduceOnly restricts the order to shrinking an existing position.
	ReduceOnly bool `json:"reduce_only" yaml:"reduce_only"`
	// PositionSide is set in hedge mode so the exchange knows which leg to touch.
	PositionSide string `json:"position_side" yaml:"position_side"`
	// ClientOrderID is an idempotency key attached to the order.
	ClientOrderID string `json:"client_order_id" yaml:"client_order_id"`
}

// Validate validates the MarketOrderRequest struct.
func (r *MarketOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid market order request", err)
	}

	return nil
}

// OrderResult is the gateway's answer to a placed (or skipped) order.
type OrderResult struct {
	OrderID     int64       `json:"order_id" yaml:"order_id"`
	Symbol      string      `json:"symbol" yaml:"symbol"`
	Side        Side        `json:"side" yaml:"side"`
	Status      OrderStatus `json:"status" yaml:"status"`
	ExecutedQty float64     `json:"executed_qty" yaml:"executed_qty"`
	AvgPrice    float64     `json:"avg_price" yaml:"avg_price"`
	// DryRun marks synthetic fills produced without touching the network.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// OrderRecord is one immutable entry in the append-only order log.
type OrderRecord struct {
	OrderID   int64     `json:"order_id" yaml:"order_id"`
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Side      Side      `json:"side" yaml:"side"`
	Quantity  float64   `json:"quantity" yaml:"quantity"`
	Price     float64   `json:"price" yaml:"price"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
