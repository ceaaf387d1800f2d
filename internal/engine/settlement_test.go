package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// matchedContract sets up one filled buy/sell pair expiring 24h out.
func matchedContract(t *testing.T, f *fixture) *model.FuturesContract {
	t.Helper()
	_, _, err := f.engine.CreateOrder(f.sellInput(10_000, 100))
	require.NoError(t, err)
	_, contract, err := f.engine.CreateOrder(f.buyInput(10_000, 100))
	require.NoError(t, err)
	require.NotNil(t, contract)
	return contract
}

func TestSettleBeforeExpiryRejected(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	_, err := f.engine.SettleContract(testBuyer, contract.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotExpired)

	// One second short of expiry still rejects.
	f.advance(24*time.Hour - time.Second)
	_, err = f.engine.SettleContract(testBuyer, contract.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotExpired)
}

func TestSettleAtExpiry(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	sellerNativeBefore := f.escrow.balances[testSeller]
	buyerTokensBefore := f.ledger.balances[testBuyer]

	f.advance(24 * time.Hour)
	settled, err := f.engine.SettleContract(testBuyer, contract.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled)
	assert.Equal(t, model.ContractStatusSettled, settled.Status)
	require.NotNil(t, settled.ClosedAt)

	// Both collaterals were 200_000. The buyer's lock caps the
	// payment; fee is 1% of it.
	payment := int64(200_000)
	fee := payment * 1 / 100
	assert.Equal(t, sellerNativeBefore+payment-fee, f.escrow.balances[testSeller])
	assert.Equal(t, fee, f.escrow.balances[testPlatform])
	assert.Equal(t, buyerTokensBefore+200_000, f.ledger.balances[testBuyer])
	assert.Equal(t, int64(0), f.ledger.balances[testVault])

	// Both constituent orders closed with the contract.
	order, err := f.engine.GetOrder(contract.BuyOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSettled, order.Status)
	order, err = f.engine.GetOrder(contract.SellOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusSettled, order.Status)

	// Settlement is terminal.
	_, err = f.engine.SettleContract(testSeller, contract.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	_, err = f.engine.Liquidate(testSeller, contract.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestSettleIsPermissionless(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	f.advance(24 * time.Hour)
	_, err := f.engine.SettleContract("third-party-keeper", contract.ID)
	require.NoError(t, err)
}

func TestSettleUnknownContract(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.SettleContract(testBuyer, 42)
	assert.ErrorIs(t, err, domain.ErrUnknownContract)
}

func TestLiquidateWindows(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	// Before expiry.
	_, err := f.engine.Liquidate("keeper", contract.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotExpired)

	// Expired but inside the grace window (10% of a day = 8640s).
	f.advance(24 * time.Hour)
	_, err = f.engine.Liquidate("keeper", contract.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotOverdue)

	f.advance(8640*time.Second - time.Second)
	_, err = f.engine.Liquidate("keeper", contract.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotOverdue)

	f.advance(time.Second)
	liquidated, err := f.engine.Liquidate("keeper", contract.ID)
	require.NoError(t, err)
	assert.True(t, liquidated.Settled)
	assert.Equal(t, model.ContractStatusLiquidated, liquidated.Status)
}

func TestLiquidationPayouts(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	buyerNativeBefore := f.escrow.balances[testBuyer]
	sellerTokensBefore := f.ledger.balances[testSeller]
	buyerTokensBefore := f.ledger.balances[testBuyer]

	f.advance(24*time.Hour + 8640*time.Second)
	_, err := f.engine.Liquidate("keeper", contract.ID)
	require.NoError(t, err)

	// Default policy: 10% of the seller's 200_000 token collateral is
	// forfeited to the buyer, the rest returns to each owner.
	penalty := int64(20_000)
	assert.Equal(t, buyerTokensBefore+penalty, f.ledger.balances[testBuyer])
	assert.Equal(t, sellerTokensBefore+200_000-penalty, f.ledger.balances[testSeller])
	assert.Equal(t, buyerNativeBefore+200_000, f.escrow.balances[testBuyer])
	assert.Equal(t, int64(0), f.ledger.balances[testVault])

	order, err := f.engine.GetOrder(contract.SellOrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusLiquidated, order.Status)

	// Liquidation is terminal too.
	_, err = f.engine.SettleContract(testBuyer, contract.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestLiquidationThresholdFrozenAtMatch(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	// Raising the threshold after the match must not widen the grace
	// window of the in-flight contract; parameters apply only to
	// contracts created after the change.
	_, err := f.engine.UpdateLiquidationThreshold(testAdmin, 50)
	require.NoError(t, err)

	f.advance(24*time.Hour + 8640*time.Second)
	liquidated, err := f.engine.Liquidate("keeper", contract.ID)
	require.NoError(t, err)

	// The forfeiture also uses the frozen 10%, not the new 50%.
	assert.Equal(t, model.ContractStatusLiquidated, liquidated.Status)
	assert.Equal(t, int64(20_000), f.ledger.balances[testBuyer])
}

func TestSweepExpiredOrders(t *testing.T) {
	f := newFixture(t)

	order, _, err := f.engine.CreateOrder(f.buyInput(10_000, 100))
	require.NoError(t, err)
	balanceAfterLock := f.escrow.balances[testBuyer]

	// Nothing to sweep while the order is live.
	expired, err := f.engine.SweepExpiredOrders()
	require.NoError(t, err)
	assert.Empty(t, expired)

	f.advance(24 * time.Hour)
	expired, err = f.engine.SweepExpiredOrders()
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, order.ID, expired[0].ID)
	assert.Equal(t, model.OrderStatusExpired, expired[0].Status)
	assert.Equal(t, balanceAfterLock+order.CollateralAmount, f.escrow.balances[testBuyer])

	_, err = f.engine.CancelOrder(testBuyer, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotOpen)
}

func TestMatcherSkipsStaleOrders(t *testing.T) {
	f := newFixture(t)

	stale, _, err := f.engine.CreateOrder(f.sellInput(10_000, 100))
	require.NoError(t, err)

	// Let the resting sell expire, then submit a buy with the same
	// terms relative to its own clock.
	f.advance(25 * time.Hour)
	in := domain.CreateOrderInput{
		Trader:         testBuyer,
		Side:           model.SideBuy,
		Price:          10_000,
		Quantity:       100,
		ExpirationUnix: stale.ExpirationDate.Unix(),
		Collateral:     200_000,
	}
	_, _, err = f.engine.CreateOrder(in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput) // expiry is in the past now

	fresh := f.buyInput(10_000, 100)
	_, contract, err := f.engine.CreateOrder(fresh)
	require.NoError(t, err)
	assert.Nil(t, contract)
}
