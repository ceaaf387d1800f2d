package model

import (
	"time"
)

// OrderSide distinguishes the long (Buy) and short (Sell) leg.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderStatus defines the lifecycle status of an order.
// Transitions move forward only: Open -> Filled|Cancelled|Expired,
// Filled -> Settled|Liquidated through the order's contract.
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "open"
	OrderStatusFilled     OrderStatus = "filled"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusExpired    OrderStatus = "expired"
	OrderStatusSettled    OrderStatus = "settled"
	OrderStatusLiquidated OrderStatus = "liquidated"
)

// Terminal reports whether no further transition is possible for the
// order itself. Filled orders are closed by their contract, not here.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusExpired ||
		s == OrderStatusSettled || s == OrderStatusLiquidated
}

// Order is a standing offer to go long or short a fixed
// price/quantity/expiration compute-hour position, backed by locked
// collateral. Price is in the smallest native denomination per
// compute-hour; Quantity is whole compute-hours.
type Order struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Trader   string    `gorm:"index;not null" json:"trader"`
	Side     OrderSide `gorm:"type:varchar(4);not null" json:"side"`
	Price    int64     `gorm:"not null" json:"price"`
	Quantity int64     `gorm:"not null" json:"quantity"`

	// CollateralAmount = Price*Quantity*collateralRequirementPercent/100,
	// fixed at creation. Native currency for Buy, commodity tokens for Sell.
	CollateralAmount int64 `gorm:"not null" json:"collateral_amount"`

	Status         OrderStatus `gorm:"type:varchar(10);index;not null" json:"status"`
	ExpirationDate time.Time   `gorm:"not null" json:"expiration_date"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
