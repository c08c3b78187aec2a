package model

import "github.com/shopspring/decimal"

// OrderStatus is the lifecycle stage of an Order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusExecuted OrderStatus = "EXECUTED"
	OrderStatusClosed   OrderStatus = "CLOSED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// OrderType distinguishes simulated fills from real broker order types.
type OrderType string

const (
	OrderTypePaper  OrderType = "PAPER"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	// OrderTypeStop names a broker-side stop order. No executor in this
	// module creates orders of this type.
	OrderTypeStop OrderType = "STOP"
)

// Order is an immutable fill/attempt record owned transitively by the
// Position that created it.
type Order struct {
	Status OrderStatus
	Type   OrderType
	Price  decimal.Decimal
	Size   decimal.Decimal
	Fee    decimal.Decimal
}
