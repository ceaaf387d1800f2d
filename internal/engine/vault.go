package engine

import (
	"fmt"

	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// CollateralVault tracks the collateral locked per order and moves it
// on fill, cancel, settle and liquidate. It is the authoritative
// locked-balance ledger; the order book and settlement engine only
// reference locks by order id.
//
// Buy-side locks are funded by debiting the trader's native escrow
// balance; sell-side locks pull commodity tokens into the vault
// account against the trader's standing allowance. Both funding calls
// are single atomic steps on the external ledgers.
type CollateralVault struct {
	ledger       domain.TokenLedger
	escrow       domain.NativeEscrow
	vaultAccount string

	locks map[uint64]*model.CollateralLock
}

func NewCollateralVault(ledger domain.TokenLedger, escrow domain.NativeEscrow, vaultAccount string) *CollateralVault {
	return &CollateralVault{
		ledger:       ledger,
		escrow:       escrow,
		vaultAccount: vaultAccount,
		locks:        make(map[uint64]*model.CollateralLock),
	}
}

// Lock reserves collateral for a new order. The funding transfer runs
// before any lock state is written, so a failed transfer leaves the
// vault untouched.
func (v *CollateralVault) Lock(order *model.Order, provided int64) error {
	currency := model.CurrencyNative
	if order.Side == model.SideSell {
		currency = model.CurrencyToken
	}

	switch order.Side {
	case model.SideBuy:
		if provided < order.CollateralAmount {
			return domain.ErrInsufficientCollateral
		}
		if err := v.escrow.Debit(order.Trader, order.CollateralAmount); err != nil {
			return domain.ErrInsufficientCollateral
		}
	case model.SideSell:
		allowance, err := v.ledger.Allowance(order.Trader, v.vaultAccount)
		if err != nil {
			return fmt.Errorf("allowance lookup: %w", err)
		}
		if allowance < order.CollateralAmount {
			return domain.ErrInsufficientCollateral
		}
		if err := v.ledger.TransferFrom(v.vaultAccount, order.Trader, v.vaultAccount, order.CollateralAmount); err != nil {
			return domain.ErrInsufficientCollateral
		}
	}

	v.locks[order.ID] = &model.CollateralLock{
		OrderID:   order.ID,
		Owner:     order.Trader,
		Currency:  currency,
		Amount:    order.CollateralAmount,
		Remaining: order.CollateralAmount,
	}
	return nil
}

// Get returns the lock for an order, or ErrUnknownOrder.
func (v *CollateralVault) Get(orderID uint64) (*model.CollateralLock, error) {
	lock, ok := v.locks[orderID]
	if !ok {
		return nil, domain.ErrUnknownOrder
	}
	return lock, nil
}

// Commit marks both sides' locks as committed to a contract. Committed
// locks can no longer be released through cancellation; only the
// settlement engine unwinds them. No collateral moves here.
func (v *CollateralVault) Commit(buyOrderID, sellOrderID, contractID uint64) error {
	buy, ok := v.locks[buyOrderID]
	if !ok {
		return domain.ErrUnknownOrder
	}
	sell, ok := v.locks[sellOrderID]
	if !ok {
		return domain.ErrUnknownOrder
	}
	id := contractID
	buy.ContractID = &id
	sell.ContractID = &id
	return nil
}

// Release returns the remaining locked amount to the original owner
// and drops the lock. Committed locks are refused; they belong to a
// live contract.
func (v *CollateralVault) Release(orderID uint64) (int64, error) {
	lock, ok := v.locks[orderID]
	if !ok {
		return 0, domain.ErrUnknownOrder
	}
	if lock.ContractID != nil {
		return 0, domain.ErrOrderNotOpen
	}
	if lock.Remaining > 0 {
		if err := v.refund(lock, lock.Remaining); err != nil {
			return 0, err
		}
	}
	delete(v.locks, orderID)
	return lock.Remaining, nil
}

// PayFromLock moves amount out of a lock to a recipient, in the lock's
// own currency. The lock's remaining balance is reduced before the
// external transfer is issued.
func (v *CollateralVault) PayFromLock(orderID uint64, to string, amount int64) error {
	lock, ok := v.locks[orderID]
	if !ok {
		return domain.ErrUnknownOrder
	}
	if amount < 0 || amount > lock.Remaining {
		return domain.ErrInvalidInput
	}
	if amount == 0 {
		return nil
	}
	lock.Remaining -= amount
	if err := v.transferOut(lock.Currency, to, amount); err != nil {
		lock.Remaining += amount
		return err
	}
	return nil
}

// reclaim reverses a PayFromLock: it pulls the amount back from the
// recipient into the lock. Used as compensation when a later transfer
// in the same operation fails; under the serialized execution model
// the recipient cannot have spent the funds in between.
func (v *CollateralVault) reclaim(orderID uint64, from string, amount int64) error {
	lock, ok := v.locks[orderID]
	if !ok {
		return domain.ErrUnknownOrder
	}
	if amount == 0 {
		return nil
	}
	var err error
	if lock.Currency == model.CurrencyToken {
		err = v.ledger.Transfer(from, v.vaultAccount, amount)
	} else {
		err = v.escrow.Debit(from, amount)
	}
	if err != nil {
		return err
	}
	lock.Remaining += amount
	return nil
}

// Drop removes a fully paid-out lock.
func (v *CollateralVault) Drop(orderID uint64) {
	delete(v.locks, orderID)
}

// Locks returns a snapshot copy of every live lock, for persistence.
func (v *CollateralVault) Locks() []model.CollateralLock {
	out := make([]model.CollateralLock, 0, len(v.locks))
	for _, lock := range v.locks {
		out = append(out, *lock)
	}
	return out
}

// restore reinstates a lock from persisted state at boot.
func (v *CollateralVault) restore(lock model.CollateralLock) {
	copied := lock
	v.locks[lock.OrderID] = &copied
}

// snapshot captures a lock's current state for operation rollback.
func (v *CollateralVault) snapshot(orderID uint64) *model.CollateralLock {
	lock, ok := v.locks[orderID]
	if !ok {
		return nil
	}
	copied := *lock
	return &copied
}

func (v *CollateralVault) refund(lock *model.CollateralLock, amount int64) error {
	return v.transferOut(lock.Currency, lock.Owner, amount)
}

func (v *CollateralVault) transferOut(currency model.Currency, to string, amount int64) error {
	if currency == model.CurrencyToken {
		return v.ledger.Transfer(v.vaultAccount, to, amount)
	}
	return v.escrow.Credit(to, amount)
}
