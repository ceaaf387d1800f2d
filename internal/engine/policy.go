package engine

import (
	"gpufutures.com/internal/model"
)

// LiquidationOutcome lists the forfeiture transfers a liquidation
// applies on top of returning whatever remains in each lock to its
// owner.
type LiquidationOutcome struct {
	// TokensToBuyer is taken from the seller's token collateral and
	// paid to the buyer as the non-delivery penalty.
	TokensToBuyer int64
	// NativeToSeller is taken from the buyer's native collateral and
	// paid to the seller.
	NativeToSeller int64
}

// LiquidationPolicy computes the forfeiture for an overdue contract.
// The exact penalty arithmetic is venue policy, not an engine
// invariant, so it stays behind this interface. The threshold frozen
// into the contract at match time is available on c.
type LiquidationPolicy interface {
	Outcome(c *model.FuturesContract, buyerLocked, sellerLocked int64) LiquidationOutcome
}

// DefaultLiquidationPolicy penalizes the delivery side: a contract
// left unsettled past the grace window means the seller never
// delivered, so the liquidation threshold share of the seller's token
// collateral goes to the buyer. The rest of both locks returns to the
// owners and no platform fee is taken.
type DefaultLiquidationPolicy struct{}

func (DefaultLiquidationPolicy) Outcome(c *model.FuturesContract, _, sellerLocked int64) LiquidationOutcome {
	return LiquidationOutcome{
		TokensToBuyer: sellerLocked * c.LiquidationThresholdPercent / 100,
	}
}
