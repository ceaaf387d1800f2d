package engine

import (
	"gpufutures.com/internal/constants"
	"gpufutures.com/internal/model"
)

// tryMatch scans the opposite side's open queue for the first order
// whose price, quantity and expiration exactly equal the new order's
// terms, oldest first. There are no partial fills and no price
// crossing: a match means identical terms, so arrival order is the
// whole priority rule.
//
// Matching runs only here, at order creation; parameter changes and
// the passage of time never re-trigger it. Stale opposite orders are
// skipped, not retired; SweepExpiredOrders owns retirement.
//
// Called with the engine lock held.
func (e *Engine) tryMatch(order *model.Order) *model.FuturesContract {
	opposite := model.SideSell
	if order.Side == model.SideSell {
		opposite = model.SideBuy
	}
	now := e.now()

	for _, id := range e.book.OpenQueue(opposite) {
		candidate, err := e.book.Get(id)
		if err != nil {
			continue
		}
		if !candidate.ExpirationDate.After(now) {
			continue
		}
		if candidate.Price != order.Price ||
			candidate.Quantity != order.Quantity ||
			!candidate.ExpirationDate.Equal(order.ExpirationDate) {
			continue
		}

		buy, sell := order, candidate
		if order.Side == model.SideSell {
			buy, sell = candidate, order
		}

		// Both locks must be bound to the contract before either
		// order is marked Filled.
		if err := e.vault.Commit(buy.ID, sell.ID, e.settlement.nextID); err != nil {
			continue
		}
		e.book.SetStatus(buy, model.OrderStatusFilled)
		e.book.SetStatus(sell, model.OrderStatusFilled)
		contract := e.settlement.CreateContract(buy, sell, e.params.Snapshot(), now)

		e.publish(constants.EventContractCreated, *contract)
		contractCopy := *contract
		return &contractCopy
	}
	return nil
}
