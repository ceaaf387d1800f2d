package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

func TestVaultReleaseUnknownOrder(t *testing.T) {
	vault := NewCollateralVault(newMemLedger(), newMemEscrow(), testVault)
	_, err := vault.Release(123)
	assert.ErrorIs(t, err, domain.ErrUnknownOrder)
}

func TestVaultCommittedLockCannotBeReleased(t *testing.T) {
	escrow := newMemEscrow()
	escrow.balances["alice"] = 1_000
	vault := NewCollateralVault(newMemLedger(), escrow, testVault)

	order := &model.Order{ID: 1, Trader: "alice", Side: model.SideBuy, CollateralAmount: 500}
	require.NoError(t, vault.Lock(order, 500))
	require.NoError(t, vault.Commit(1, 1, 7))

	_, err := vault.Release(1)
	assert.ErrorIs(t, err, domain.ErrOrderNotOpen)
	assert.Equal(t, int64(500), escrow.balances["alice"])
}

func TestVaultPayFromLockBounds(t *testing.T) {
	escrow := newMemEscrow()
	escrow.balances["alice"] = 1_000
	vault := NewCollateralVault(newMemLedger(), escrow, testVault)

	order := &model.Order{ID: 1, Trader: "alice", Side: model.SideBuy, CollateralAmount: 500}
	require.NoError(t, vault.Lock(order, 500))

	assert.ErrorIs(t, vault.PayFromLock(1, "bob", 501), domain.ErrInvalidInput)
	assert.ErrorIs(t, vault.PayFromLock(1, "bob", -1), domain.ErrInvalidInput)
	require.NoError(t, vault.PayFromLock(1, "bob", 200))
	assert.Equal(t, int64(200), escrow.balances["bob"])

	lock, err := vault.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(300), lock.Remaining)
}

// flakyEscrow fails credits to one account, simulating an external
// escrow outage mid-settlement.
type flakyEscrow struct {
	*memEscrow
	failFor string
	failing bool
}

func (e *flakyEscrow) Credit(account string, amount int64) error {
	if e.failing && account == e.failFor {
		return errors.New("escrow unavailable")
	}
	return e.memEscrow.Credit(account, amount)
}

func TestSettlementRollsBackOnTransferFailure(t *testing.T) {
	ledger := newMemLedger()
	escrow := &flakyEscrow{memEscrow: newMemEscrow(), failFor: testSeller}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	eng := New(Options{
		Admin:           testAdmin,
		Params:          model.DefaultParameters(),
		Ledger:          ledger,
		Escrow:          escrow,
		VaultAccount:    testVault,
		PlatformAccount: testPlatform,
		Now:             func() time.Time { return now },
	})

	escrow.balances[testBuyer] = 1_000_000
	require.NoError(t, ledger.Mint(testSeller, 1_000_000))
	require.NoError(t, ledger.Approve(testSeller, testVault, 1_000_000))

	expiry := now.Add(24 * time.Hour)
	_, _, err := eng.CreateOrder(domain.CreateOrderInput{
		Trader: testSeller, Side: model.SideSell,
		Price: 10_000, Quantity: 100, ExpirationUnix: expiry.Unix(),
	})
	require.NoError(t, err)
	_, contract, err := eng.CreateOrder(domain.CreateOrderInput{
		Trader: testBuyer, Side: model.SideBuy,
		Price: 10_000, Quantity: 100, ExpirationUnix: expiry.Unix(),
		Collateral: 200_000,
	})
	require.NoError(t, err)
	require.NotNil(t, contract)

	now = expiry
	escrow.failing = true
	_, err = eng.SettleContract(testBuyer, contract.ID)
	require.Error(t, err)

	// The operation must retain nothing: contract still active, both
	// orders still filled, both locks whole.
	got, err := eng.GetContract(contract.ID)
	require.NoError(t, err)
	assert.False(t, got.Settled)
	assert.Equal(t, model.ContractStatusActive, got.Status)

	order, err := eng.GetOrder(contract.BuyOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, order.Status)

	lock, err := eng.GetLock(contract.BuyOrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), lock.Remaining)
	lock, err = eng.GetLock(contract.SellOrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), lock.Remaining)

	// Once the escrow recovers the same call goes through.
	escrow.failing = false
	settled, err := eng.SettleContract(testBuyer, contract.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled)
	assert.Equal(t, int64(198_000), escrow.balances[testSeller])
}

func TestSettlementCompensatesExecutedLegs(t *testing.T) {
	ledger := newMemLedger()
	// The fee leg to the platform fails after the seller was already
	// paid; the seller's credit must be pulled back.
	escrow := &flakyEscrow{memEscrow: newMemEscrow(), failFor: testPlatform, failing: true}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	eng := New(Options{
		Admin:           testAdmin,
		Params:          model.DefaultParameters(),
		Ledger:          ledger,
		Escrow:          escrow,
		VaultAccount:    testVault,
		PlatformAccount: testPlatform,
		Now:             func() time.Time { return now },
	})

	escrow.balances[testBuyer] = 1_000_000
	require.NoError(t, ledger.Mint(testSeller, 1_000_000))
	require.NoError(t, ledger.Approve(testSeller, testVault, 1_000_000))

	expiry := now.Add(24 * time.Hour)
	_, _, err := eng.CreateOrder(domain.CreateOrderInput{
		Trader: testSeller, Side: model.SideSell,
		Price: 10_000, Quantity: 100, ExpirationUnix: expiry.Unix(),
	})
	require.NoError(t, err)
	_, contract, err := eng.CreateOrder(domain.CreateOrderInput{
		Trader: testBuyer, Side: model.SideBuy,
		Price: 10_000, Quantity: 100, ExpirationUnix: expiry.Unix(),
		Collateral: 200_000,
	})
	require.NoError(t, err)
	require.NotNil(t, contract)

	now = expiry
	_, err = eng.SettleContract(testBuyer, contract.ID)
	require.Error(t, err)

	assert.Equal(t, int64(0), escrow.balances[testSeller])
	assert.Equal(t, int64(0), escrow.balances[testPlatform])
	lock, err := eng.GetLock(contract.BuyOrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), lock.Remaining)
}
