package model

import (
	"time"
)

// Currency identifies which ledger a balance or lock lives on.
type Currency string

const (
	// CurrencyNative is the deposit currency buy-side collateral is
	// posted in.
	CurrencyNative Currency = "native"
	// CurrencyToken is the tokenized compute-hour commodity sell-side
	// collateral is posted in.
	CurrencyToken Currency = "token"
)

// CollateralLock is the vault's record of collateral reserved for one
// order. Remaining shrinks as settlement pays out; ContractID is set
// when the lock is committed to a fill and blocks independent release.
type CollateralLock struct {
	OrderID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	Owner      string    `gorm:"index;not null" json:"owner"`
	Currency   Currency  `gorm:"type:varchar(6);not null" json:"currency"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Remaining  int64     `gorm:"not null" json:"remaining"`
	ContractID *uint64   `gorm:"index" json:"contract_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LedgerAccount is one balance row on either the native escrow or the
// commodity-token ledger.
type LedgerAccount struct {
	Account   string    `gorm:"primaryKey" json:"account"`
	Currency  Currency  `gorm:"primaryKey;type:varchar(6)" json:"currency"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenAllowance mirrors ERC-20 approve semantics on the commodity
// ledger: Owner allows Spender to pull up to Amount tokens.
type TokenAllowance struct {
	Owner     string    `gorm:"primaryKey" json:"owner"`
	Spender   string    `gorm:"primaryKey" json:"spender"`
	Amount    int64     `gorm:"not null;default:0" json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}
