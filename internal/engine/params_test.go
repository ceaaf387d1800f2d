package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

func TestParameterDefaults(t *testing.T) {
	f := newFixture(t)

	params := f.engine.Parameters()
	assert.Equal(t, int64(20), params.CollateralRequirementPercent)
	assert.Equal(t, int64(10), params.LiquidationThresholdPercent)
	assert.Equal(t, int64(1), params.PlatformFeePercent)
}

func TestParameterUpdatesAdminOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.UpdateCollateralRequirement(testBuyer, 25)
	assert.ErrorIs(t, err, domain.ErrNotAdministrator)
	_, err = f.engine.UpdateLiquidationThreshold(testBuyer, 15)
	assert.ErrorIs(t, err, domain.ErrNotAdministrator)
	_, err = f.engine.UpdatePlatformFee(testBuyer, 2)
	assert.ErrorIs(t, err, domain.ErrNotAdministrator)

	change, err := f.engine.UpdateCollateralRequirement(testAdmin, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(20), change.OldValue)
	assert.Equal(t, int64(25), change.NewValue)
	assert.Equal(t, testAdmin, change.ChangedBy)

	_, err = f.engine.UpdateLiquidationThreshold(testAdmin, 15)
	require.NoError(t, err)
	_, err = f.engine.UpdatePlatformFee(testAdmin, 2)
	require.NoError(t, err)

	params := f.engine.Parameters()
	assert.Equal(t, int64(25), params.CollateralRequirementPercent)
	assert.Equal(t, int64(15), params.LiquidationThresholdPercent)
	assert.Equal(t, int64(2), params.PlatformFeePercent)
}

func TestParameterRangeValidation(t *testing.T) {
	f := newFixture(t)

	for _, pct := range []int64{0, -5, 101} {
		_, err := f.engine.UpdateCollateralRequirement(testAdmin, pct)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.engine.UpdatePlatformFee(testAdmin, pct)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestCollateralRatioAppliesProspectively(t *testing.T) {
	f := newFixture(t)

	before, _, err := f.engine.CreateOrder(f.buyInput(10_000, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), before.CollateralAmount)

	_, err = f.engine.UpdateCollateralRequirement(testAdmin, 50)
	require.NoError(t, err)

	// The open order keeps the collateral computed at creation.
	got, err := f.engine.GetOrder(before.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), got.CollateralAmount)

	// A new order needs the new ratio.
	in := f.buyInput(10_000, 100)
	_, _, err = f.engine.CreateOrder(in)
	assert.ErrorIs(t, err, domain.ErrInsufficientCollateral)

	in.Collateral = 500_000
	after, _, err := f.engine.CreateOrder(in)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), after.CollateralAmount)
}

func TestFeeFrozenAtMatch(t *testing.T) {
	f := newFixture(t)
	contract := matchedContract(t, f)

	_, err := f.engine.UpdatePlatformFee(testAdmin, 10)
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	settled, err := f.engine.SettleContract(testBuyer, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), settled.PlatformFeePercent)

	// 1% of the 200_000 payment, not 10%.
	assert.Equal(t, int64(2_000), f.escrow.balances[testPlatform])
}

func TestParameterUpdateEmitsEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.UpdatePlatformFee(testAdmin, 3)
	require.NoError(t, err)

	require.NotEmpty(t, f.events)
	last := f.events[len(f.events)-1]
	assert.Equal(t, "ParameterUpdated", last.Type)
	change, ok := last.Data.(model.ParameterChange)
	require.True(t, ok)
	assert.Equal(t, "platform_fee_percent", change.Name)
}
