package engine

import (
	"sort"
	"time"

	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// SettlementEngine owns the futures contracts and the settled flag.
// Contracts are created by the matcher and closed exactly once, by
// settlement or by liquidation.
type SettlementEngine struct {
	contracts map[uint64]*model.FuturesContract
	byParty   map[string][]uint64
	nextID    uint64
	policy    LiquidationPolicy
}

func NewSettlementEngine(policy LiquidationPolicy) *SettlementEngine {
	if policy == nil {
		policy = DefaultLiquidationPolicy{}
	}
	return &SettlementEngine{
		contracts: make(map[uint64]*model.FuturesContract),
		byParty:   make(map[string][]uint64),
		nextID:    1,
		policy:    policy,
	}
}

// CreateContract materializes the contract for two matched orders.
// Terms are copied from the orders; the matcher guarantees they are
// identical on both sides. The fee and liquidation threshold in
// effect now are frozen into the contract.
func (s *SettlementEngine) CreateContract(buy, sell *model.Order, params model.ParameterSet, now time.Time) *model.FuturesContract {
	contract := &model.FuturesContract{
		ID:                          s.nextID,
		BuyOrderID:                  buy.ID,
		SellOrderID:                 sell.ID,
		Buyer:                       buy.Trader,
		Seller:                      sell.Trader,
		Price:                       buy.Price,
		Quantity:                    buy.Quantity,
		PlatformFeePercent:          params.PlatformFeePercent,
		LiquidationThresholdPercent: params.LiquidationThresholdPercent,
		Status:                      model.ContractStatusActive,
		ExpirationDate:              buy.ExpirationDate,
		CreatedAt:                   now,
	}
	s.nextID++

	s.contracts[contract.ID] = contract
	s.byParty[contract.Buyer] = append(s.byParty[contract.Buyer], contract.ID)
	if contract.Seller != contract.Buyer {
		s.byParty[contract.Seller] = append(s.byParty[contract.Seller], contract.ID)
	}
	return contract
}

// Get returns a contract by id, or ErrUnknownContract.
func (s *SettlementEngine) Get(contractID uint64) (*model.FuturesContract, error) {
	contract, ok := s.contracts[contractID]
	if !ok {
		return nil, domain.ErrUnknownContract
	}
	return contract, nil
}

// ContractsByParty returns the contract ids a trader is a party to.
func (s *SettlementEngine) ContractsByParty(trader string) []uint64 {
	ids := s.byParty[trader]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// Contracts returns a snapshot copy of every contract, sorted by id.
func (s *SettlementEngine) Contracts() []model.FuturesContract {
	out := make([]model.FuturesContract, 0, len(s.contracts))
	for _, contract := range s.contracts {
		out = append(out, *contract)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveCount returns the number of unsettled contracts and their open
// interest in compute-hours.
func (s *SettlementEngine) ActiveCount() (int, int64) {
	count := 0
	var hours int64
	for _, contract := range s.contracts {
		if !contract.Settled {
			count++
			hours += contract.Quantity
		}
	}
	return count, hours
}

// restore reinstates a persisted contract at boot.
func (s *SettlementEngine) restore(contract model.FuturesContract) {
	copied := contract
	s.contracts[copied.ID] = &copied
	s.byParty[copied.Buyer] = append(s.byParty[copied.Buyer], copied.ID)
	if copied.Seller != copied.Buyer {
		s.byParty[copied.Seller] = append(s.byParty[copied.Seller], copied.ID)
	}
	if copied.ID >= s.nextID {
		s.nextID = copied.ID + 1
	}
}

// settlementPlan is the set of transfers a regular settlement applies:
// the seller receives the trade value out of the buyer's native
// collateral net of the platform fee, the buyer receives the seller's
// token collateral plus any native remainder.
type settlementPlan struct {
	payment       int64 // native, buyer lock -> seller
	fee           int64 // native, buyer lock -> platform
	buyerRefund   int64 // native, buyer lock -> buyer
	tokensToBuyer int64 // tokens, seller lock -> buyer
}

// planSettlement computes the transfers for a contract given both
// locks and the fee in effect. The payment is capped at the buyer's
// locked amount: collateral is a fraction of notional, so the lock is
// the most the buyer can be made to pay.
func planSettlement(c *model.FuturesContract, buyerLocked, sellerLocked, feePercent int64) settlementPlan {
	payment := c.Value()
	if payment > buyerLocked {
		payment = buyerLocked
	}
	fee := payment * feePercent / 100
	return settlementPlan{
		payment:       payment - fee,
		fee:           fee,
		buyerRefund:   buyerLocked - payment,
		tokensToBuyer: sellerLocked,
	}
}
