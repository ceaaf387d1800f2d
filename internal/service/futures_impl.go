package service

import (
	"context"
	"log"

	"gorm.io/gorm"
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/engine"
	"gpufutures.com/internal/model"
)

// FuturesServiceImpl implements domain.FuturesService. The engine is
// authoritative in memory; this layer write-through persists the rows
// each operation touched and leaves event fan-out to the engine's
// sink. Persistence failures are logged, not surfaced: the operation
// already committed in the engine and the store catches up on the
// next write of the same row.
type FuturesServiceImpl struct {
	db  *gorm.DB
	eng *engine.Engine
}

func NewFuturesService(db *gorm.DB, eng *engine.Engine) *FuturesServiceImpl {
	return &FuturesServiceImpl{db: db, eng: eng}
}

// LoadParameters reconstructs the current parameter set from the
// change log, falling back to the given defaults for parameters never
// changed.
func LoadParameters(db *gorm.DB, defaults model.ParameterSet) model.ParameterSet {
	params := defaults
	names := map[string]*int64{
		"collateral_requirement_percent": &params.CollateralRequirementPercent,
		"liquidation_threshold_percent":  &params.LiquidationThresholdPercent,
		"platform_fee_percent":           &params.PlatformFeePercent,
	}
	for name, target := range names {
		var change model.ParameterChange
		err := db.Where("name = ?", name).Order("id DESC").First(&change).Error
		if err == nil {
			*target = change.NewValue
		}
	}
	return params
}

// RestoreEngine replays persisted orders, contracts and locks into the
// engine at boot.
func (s *FuturesServiceImpl) RestoreEngine() error {
	var orders []model.Order
	if err := s.db.Find(&orders).Error; err != nil {
		return err
	}
	var contracts []model.FuturesContract
	if err := s.db.Find(&contracts).Error; err != nil {
		return err
	}
	var locks []model.CollateralLock
	if err := s.db.Find(&locks).Error; err != nil {
		return err
	}
	s.eng.Restore(orders, contracts, locks)
	log.Printf("FuturesService: Restored %d orders, %d contracts, %d locks", len(orders), len(contracts), len(locks))
	return nil
}

// CreateOrder locks collateral, books the order and tries a match.
func (s *FuturesServiceImpl) CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*model.Order, *model.FuturesContract, error) {
	order, contract, err := s.eng.CreateOrder(in)
	if err != nil {
		return nil, nil, err
	}

	s.persist(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if err := s.persistLock(tx, order.ID); err != nil {
			return err
		}
		if contract == nil {
			return nil
		}
		if err := tx.Create(contract).Error; err != nil {
			return err
		}
		// The resting counterparty order changed state too.
		return s.persistFill(tx, contract)
	})

	return order, contract, nil
}

// CancelOrder cancels an Open order and releases its collateral.
func (s *FuturesServiceImpl) CancelOrder(ctx context.Context, caller string, orderID uint64) (*model.Order, error) {
	order, err := s.eng.CancelOrder(caller, orderID)
	if err != nil {
		return nil, err
	}

	s.persist(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		return tx.Delete(&model.CollateralLock{}, "order_id = ?", orderID).Error
	})
	return order, nil
}

// SettleContract settles an expired contract. Permissionless.
func (s *FuturesServiceImpl) SettleContract(ctx context.Context, caller string, contractID uint64) (*model.FuturesContract, error) {
	contract, err := s.eng.SettleContract(caller, contractID)
	if err != nil {
		return nil, err
	}
	s.persistClose(contract)
	return contract, nil
}

// Liquidate force-closes an overdue contract.
func (s *FuturesServiceImpl) Liquidate(ctx context.Context, caller string, contractID uint64) (*model.FuturesContract, error) {
	contract, err := s.eng.Liquidate(caller, contractID)
	if err != nil {
		return nil, err
	}
	s.persistClose(contract)
	return contract, nil
}

// SweepExpiredOrders retires stale Open orders.
func (s *FuturesServiceImpl) SweepExpiredOrders(ctx context.Context) ([]model.Order, error) {
	expired, err := s.eng.SweepExpiredOrders()
	if len(expired) > 0 {
		s.persist(func(tx *gorm.DB) error {
			for i := range expired {
				if err := tx.Save(&expired[i]).Error; err != nil {
					return err
				}
				if err := tx.Delete(&model.CollateralLock{}, "order_id = ?", expired[i].ID).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}
	return expired, err
}

func (s *FuturesServiceImpl) GetOrder(ctx context.Context, orderID uint64) (*model.Order, error) {
	return s.eng.GetOrder(orderID)
}

func (s *FuturesServiceImpl) GetContract(ctx context.Context, contractID uint64) (*model.FuturesContract, error) {
	return s.eng.GetContract(contractID)
}

// GetUserOrders pages through a trader's orders, newest first.
func (s *FuturesServiceImpl) GetUserOrders(ctx context.Context, trader string, page, pageSize int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := s.db.Model(&model.Order{}).Where("trader = ?", trader)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to count orders", err)
	}
	if err := query.Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to fetch orders", err)
	}
	return orders, total, nil
}

// GetUserContracts pages through the contracts a trader is party to.
func (s *FuturesServiceImpl) GetUserContracts(ctx context.Context, trader string, page, pageSize int) ([]model.FuturesContract, int64, error) {
	var contracts []model.FuturesContract
	var total int64

	query := s.db.Model(&model.FuturesContract{}).Where("buyer = ? OR seller = ?", trader, trader)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to count contracts", err)
	}
	if err := query.Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&contracts).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to fetch contracts", err)
	}
	return contracts, total, nil
}

func (s *FuturesServiceImpl) GetOpenOrders(ctx context.Context, side model.OrderSide) ([]model.Order, error) {
	return s.eng.OpenOrders(side), nil
}

func (s *FuturesServiceImpl) GetStats(ctx context.Context) (domain.EngineStats, error) {
	return s.eng.Stats(), nil
}

func (s *FuturesServiceImpl) GetParameters(ctx context.Context) (model.ParameterSet, error) {
	return s.eng.Parameters(), nil
}

func (s *FuturesServiceImpl) UpdateCollateralRequirement(ctx context.Context, caller string, percent int64) error {
	change, err := s.eng.UpdateCollateralRequirement(caller, percent)
	if err != nil {
		return err
	}
	s.persist(func(tx *gorm.DB) error { return tx.Create(&change).Error })
	return nil
}

func (s *FuturesServiceImpl) UpdateLiquidationThreshold(ctx context.Context, caller string, percent int64) error {
	change, err := s.eng.UpdateLiquidationThreshold(caller, percent)
	if err != nil {
		return err
	}
	s.persist(func(tx *gorm.DB) error { return tx.Create(&change).Error })
	return nil
}

func (s *FuturesServiceImpl) UpdatePlatformFee(ctx context.Context, caller string, percent int64) error {
	change, err := s.eng.UpdatePlatformFee(caller, percent)
	if err != nil {
		return err
	}
	s.persist(func(tx *gorm.DB) error { return tx.Create(&change).Error })
	return nil
}

// persistFill updates both filled orders and their committed locks.
func (s *FuturesServiceImpl) persistFill(tx *gorm.DB, contract *model.FuturesContract) error {
	for _, orderID := range []uint64{contract.BuyOrderID, contract.SellOrderID} {
		order, err := s.eng.GetOrder(orderID)
		if err != nil {
			return err
		}
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		if err := s.persistLock(tx, orderID); err != nil {
			return err
		}
	}
	return nil
}

func (s *FuturesServiceImpl) persistLock(tx *gorm.DB, orderID uint64) error {
	lock, err := s.eng.GetLock(orderID)
	if err != nil {
		return err
	}
	return tx.Save(lock).Error
}

// persistClose writes a settled or liquidated contract, its orders and
// the dropped locks.
func (s *FuturesServiceImpl) persistClose(contract *model.FuturesContract) {
	s.persist(func(tx *gorm.DB) error {
		if err := tx.Save(contract).Error; err != nil {
			return err
		}
		for _, orderID := range []uint64{contract.BuyOrderID, contract.SellOrderID} {
			order, err := s.eng.GetOrder(orderID)
			if err != nil {
				return err
			}
			if err := tx.Save(order).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.CollateralLock{}, "order_id = ?", orderID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FuturesServiceImpl) persist(fn func(tx *gorm.DB) error) {
	if err := s.db.Transaction(fn); err != nil {
		log.Printf("FuturesService: Failed to persist state: %v", err)
	}
}

var _ domain.FuturesService = (*FuturesServiceImpl)(nil)
