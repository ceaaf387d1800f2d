package model

import (
	"time"
)

// Default risk parameters applied when no stored value exists.
const (
	DefaultCollateralRequirementPercent = 20
	DefaultLiquidationThresholdPercent  = 10
	DefaultPlatformFeePercent           = 1
)

// ParameterSet holds the mutable risk parameters. Changes apply only
// to orders and contracts created after the change.
type ParameterSet struct {
	CollateralRequirementPercent int64 `json:"collateral_requirement_percent"`
	LiquidationThresholdPercent  int64 `json:"liquidation_threshold_percent"`
	PlatformFeePercent           int64 `json:"platform_fee_percent"`
}

// DefaultParameters returns the parameter set the venue boots with.
func DefaultParameters() ParameterSet {
	return ParameterSet{
		CollateralRequirementPercent: DefaultCollateralRequirementPercent,
		LiquidationThresholdPercent:  DefaultLiquidationThresholdPercent,
		PlatformFeePercent:           DefaultPlatformFeePercent,
	}
}

// ParameterChange is the audit record of an administrator update.
type ParameterChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;not null" json:"name"`
	OldValue  int64     `json:"old_value"`
	NewValue  int64     `json:"new_value"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}
