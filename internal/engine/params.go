package engine

import (
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// ParameterStore holds the mutable risk parameters. All mutation is
// gated on the administrator identity and applies prospectively only:
// collateral already computed and contracts already open keep the
// values in effect when they were created.
//
// The store is not safe for concurrent use on its own; the owning
// Engine serializes access.
type ParameterStore struct {
	admin  string
	params model.ParameterSet
}

func NewParameterStore(admin string, params model.ParameterSet) *ParameterStore {
	return &ParameterStore{admin: admin, params: params}
}

// Snapshot returns the parameter values currently in effect.
func (s *ParameterStore) Snapshot() model.ParameterSet {
	return s.params
}

func (s *ParameterStore) checkUpdate(caller string, percent int64) error {
	if caller != s.admin {
		return domain.ErrNotAdministrator
	}
	if percent <= 0 || percent > 100 {
		return domain.ErrInvalidInput
	}
	return nil
}

// UpdateCollateralRequirement sets the collateral ratio, returning the
// previous value.
func (s *ParameterStore) UpdateCollateralRequirement(caller string, percent int64) (int64, error) {
	if err := s.checkUpdate(caller, percent); err != nil {
		return 0, err
	}
	old := s.params.CollateralRequirementPercent
	s.params.CollateralRequirementPercent = percent
	return old, nil
}

// UpdateLiquidationThreshold sets the liquidation threshold, returning
// the previous value.
func (s *ParameterStore) UpdateLiquidationThreshold(caller string, percent int64) (int64, error) {
	if err := s.checkUpdate(caller, percent); err != nil {
		return 0, err
	}
	old := s.params.LiquidationThresholdPercent
	s.params.LiquidationThresholdPercent = percent
	return old, nil
}

// UpdatePlatformFee sets the settlement fee, returning the previous
// value.
func (s *ParameterStore) UpdatePlatformFee(caller string, percent int64) (int64, error) {
	if err := s.checkUpdate(caller, percent); err != nil {
		return 0, err
	}
	old := s.params.PlatformFeePercent
	s.params.PlatformFeePercent = percent
	return old, nil
}
