package model

import (
	"time"
)

// ContractStatus defines the lifecycle status of a futures contract.
type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusSettled    ContractStatus = "settled"
	ContractStatusLiquidated ContractStatus = "liquidated"
)

// FuturesContract is the binding obligation created when a buy and a
// sell order match on identical terms. It references exactly one order
// on each side; both stay Filled for the contract's lifetime.
type FuturesContract struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	BuyOrderID  uint64 `gorm:"index;not null" json:"buy_order_id"`
	SellOrderID uint64 `gorm:"index;not null" json:"sell_order_id"`
	Buyer       string `gorm:"index;not null" json:"buyer"`
	Seller      string `gorm:"index;not null" json:"seller"`
	Price       int64  `gorm:"not null" json:"price"`
	Quantity    int64  `gorm:"not null" json:"quantity"`

	// Risk parameters captured at match time. Later administrator
	// changes never touch an existing contract.
	PlatformFeePercent          int64 `gorm:"not null" json:"platform_fee_percent"`
	LiquidationThresholdPercent int64 `gorm:"not null" json:"liquidation_threshold_percent"`

	// Settled flips to true exactly once, on settlement or liquidation.
	Settled        bool           `gorm:"not null;default:false" json:"settled"`
	Status         ContractStatus `gorm:"type:varchar(10);index;not null" json:"status"`
	ExpirationDate time.Time      `gorm:"not null" json:"expiration_date"`
	CreatedAt      time.Time      `json:"created_at"`
	ClosedAt       *time.Time     `json:"closed_at,omitempty"`
}

// Value is the notional trade value, price per hour times hours.
func (c *FuturesContract) Value() int64 {
	return c.Price * c.Quantity
}
