package engine

import (
	"math"
	"sync"
	"time"

	"gpufutures.com/internal/constants"
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// Event is an engine fact emitted after an operation commits.
type Event struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// EventSink receives events; the engine calls it while still holding
// the engine lock, so sinks must not call back into the engine.
type EventSink func(Event)

// Engine is the serialized facade over the order book, collateral
// vault, matcher, settlement engine and parameter store.
//
// Every state-changing operation takes the single mutation lock and
// runs to completion: effects of operation N are fully visible before
// operation N+1 begins, and no operation ever observes another one
// half-applied. External ledger calls are single atomic steps; when
// one fails the operation restores any in-memory state it had already
// touched and reports the failure, retaining nothing.
type Engine struct {
	mu sync.Mutex

	params     *ParameterStore
	vault      *CollateralVault
	book       *OrderBook
	settlement *SettlementEngine

	platformAccount string
	now             func() time.Time
	emit            EventSink
}

// Options configures an Engine.
type Options struct {
	Admin           string
	Params          model.ParameterSet
	Ledger          domain.TokenLedger
	Escrow          domain.NativeEscrow
	VaultAccount    string
	PlatformAccount string
	Policy          LiquidationPolicy
	Now             func() time.Time
	Sink            EventSink
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		params:          NewParameterStore(opts.Admin, opts.Params),
		vault:           NewCollateralVault(opts.Ledger, opts.Escrow, opts.VaultAccount),
		book:            NewOrderBook(),
		settlement:      NewSettlementEngine(opts.Policy),
		platformAccount: opts.PlatformAccount,
		now:             opts.Now,
		emit:            opts.Sink,
	}
}

// Restore replays persisted state into a fresh engine at boot. Must be
// called before the engine serves operations.
func (e *Engine) Restore(orders []model.Order, contracts []model.FuturesContract, locks []model.CollateralLock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, order := range orders {
		e.book.restore(order)
	}
	e.book.sortQueues()
	for _, contract := range contracts {
		e.settlement.restore(contract)
	}
	for _, lock := range locks {
		e.vault.restore(lock)
	}
}

// CreateOrder validates the submission, locks collateral, records the
// order as Open and attempts an immediate match. The returned contract
// is non-nil iff the order filled on arrival.
func (e *Engine) CreateOrder(in domain.CreateOrderInput) (*model.Order, *model.FuturesContract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	expiry := time.Unix(in.ExpirationUnix, 0).UTC()

	if in.Side != model.SideBuy && in.Side != model.SideSell {
		return nil, nil, domain.ErrInvalidInput
	}
	if in.Price <= 0 || in.Quantity <= 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	if !expiry.After(now) {
		return nil, nil, domain.ErrInvalidInput
	}
	if in.Price > math.MaxInt64/in.Quantity {
		return nil, nil, domain.ErrInvalidInput
	}

	params := e.params.Snapshot()
	value := in.Price * in.Quantity
	if value > math.MaxInt64/params.CollateralRequirementPercent {
		return nil, nil, domain.ErrInvalidInput
	}
	collateral := value * params.CollateralRequirementPercent / 100

	order := &model.Order{
		ID:               e.book.NextID(),
		Trader:           in.Trader,
		Side:             in.Side,
		Price:            in.Price,
		Quantity:         in.Quantity,
		CollateralAmount: collateral,
		ExpirationDate:   expiry,
		CreatedAt:        now,
	}

	// The funding transfer is the only external step; it runs before
	// any book state exists, so a short balance rejects cleanly.
	if err := e.vault.Lock(order, in.Collateral); err != nil {
		return nil, nil, err
	}
	e.book.Add(order)

	e.publish(constants.EventOrderCreated, *order)

	contract := e.tryMatch(order)

	orderCopy := *order
	return &orderCopy, contract, nil
}

// CancelOrder cancels an Open order owned by caller and releases its
// collateral.
func (e *Engine) CancelOrder(caller string, orderID uint64) (*model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.book.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Trader != caller {
		return nil, domain.ErrNotOrderOwner
	}
	if order.Status != model.OrderStatusOpen {
		return nil, domain.ErrOrderNotOpen
	}

	e.book.SetStatus(order, model.OrderStatusCancelled)
	if _, err := e.vault.Release(orderID); err != nil {
		e.book.Reopen(order)
		return nil, err
	}

	e.publish(constants.EventOrderCancelled, *order)
	orderCopy := *order
	return &orderCopy, nil
}

// SettleContract computes and applies the final transfers for an
// expired contract. Permissionless: either counterparty or any keeper
// may call it.
func (e *Engine) SettleContract(caller string, contractID uint64) (*model.FuturesContract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contract, err := e.settlement.Get(contractID)
	if err != nil {
		return nil, err
	}
	if contract.Settled {
		return nil, domain.ErrAlreadySettled
	}
	now := e.now()
	if now.Before(contract.ExpirationDate) {
		return nil, domain.ErrContractNotExpired
	}

	buyLock, err := e.vault.Get(contract.BuyOrderID)
	if err != nil {
		return nil, err
	}
	sellLock, err := e.vault.Get(contract.SellOrderID)
	if err != nil {
		return nil, err
	}
	plan := planSettlement(contract, buyLock.Remaining, sellLock.Remaining, contract.PlatformFeePercent)

	undo := e.beginClose(contract)
	e.markClosed(contract, model.ContractStatusSettled, now)

	err = e.payAll([]transfer{
		{contract.BuyOrderID, contract.Seller, plan.payment},
		{contract.BuyOrderID, e.platformAccount, plan.fee},
		{contract.BuyOrderID, contract.Buyer, plan.buyerRefund},
		{contract.SellOrderID, contract.Buyer, plan.tokensToBuyer},
	})
	if err != nil {
		undo()
		return nil, err
	}
	e.vault.Drop(contract.BuyOrderID)
	e.vault.Drop(contract.SellOrderID)

	e.publish(constants.EventContractSettled, *contract)
	contractCopy := *contract
	return &contractCopy, nil
}

// Liquidate force-closes a contract left unsettled past the grace
// window, applying the forfeiture the liquidation policy dictates.
func (e *Engine) Liquidate(caller string, contractID uint64) (*model.FuturesContract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contract, err := e.settlement.Get(contractID)
	if err != nil {
		return nil, err
	}
	if contract.Settled {
		return nil, domain.ErrAlreadySettled
	}
	now := e.now()
	if now.Before(contract.ExpirationDate) {
		return nil, domain.ErrContractNotExpired
	}
	if now.Before(contract.ExpirationDate.Add(graceWindow(contract.LiquidationThresholdPercent))) {
		return nil, domain.ErrContractNotOverdue
	}

	buyLock, err := e.vault.Get(contract.BuyOrderID)
	if err != nil {
		return nil, err
	}
	sellLock, err := e.vault.Get(contract.SellOrderID)
	if err != nil {
		return nil, err
	}
	outcome := e.settlement.policy.Outcome(contract, buyLock.Remaining, sellLock.Remaining)
	if outcome.TokensToBuyer > sellLock.Remaining {
		outcome.TokensToBuyer = sellLock.Remaining
	}
	if outcome.NativeToSeller > buyLock.Remaining {
		outcome.NativeToSeller = buyLock.Remaining
	}

	undo := e.beginClose(contract)
	e.markClosed(contract, model.ContractStatusLiquidated, now)

	err = e.payAll([]transfer{
		{contract.SellOrderID, contract.Buyer, outcome.TokensToBuyer},
		{contract.SellOrderID, contract.Seller, sellLock.Remaining - outcome.TokensToBuyer},
		{contract.BuyOrderID, contract.Seller, outcome.NativeToSeller},
		{contract.BuyOrderID, contract.Buyer, buyLock.Remaining - outcome.NativeToSeller},
	})
	if err != nil {
		undo()
		return nil, err
	}
	e.vault.Drop(contract.BuyOrderID)
	e.vault.Drop(contract.SellOrderID)

	e.publish(constants.EventContractLiquidated, *contract)
	contractCopy := *contract
	return &contractCopy, nil
}

// SweepExpiredOrders retires every Open order whose expiration has
// passed, releasing its collateral. Keeper-facing; the matcher also
// skips stale orders so a sweep is hygiene, not correctness.
func (e *Engine) SweepExpiredOrders() ([]model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var stale []uint64
	for _, side := range []model.OrderSide{model.SideBuy, model.SideSell} {
		for _, id := range e.book.OpenQueue(side) {
			order, _ := e.book.Get(id)
			if order != nil && !order.ExpirationDate.After(now) {
				stale = append(stale, id)
			}
		}
	}

	var expired []model.Order
	for _, id := range stale {
		order, _ := e.book.Get(id)
		e.book.SetStatus(order, model.OrderStatusExpired)
		if _, err := e.vault.Release(id); err != nil {
			e.book.Reopen(order)
			return expired, err
		}
		e.publish(constants.EventOrderExpired, *order)
		expired = append(expired, *order)
	}
	return expired, nil
}

// ===========================
// Parameter operations
// ===========================

func (e *Engine) Parameters() model.ParameterSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Snapshot()
}

func (e *Engine) UpdateCollateralRequirement(caller string, percent int64) (model.ParameterChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old, err := e.params.UpdateCollateralRequirement(caller, percent)
	return e.paramChange("collateral_requirement_percent", caller, old, percent, err)
}

func (e *Engine) UpdateLiquidationThreshold(caller string, percent int64) (model.ParameterChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old, err := e.params.UpdateLiquidationThreshold(caller, percent)
	return e.paramChange("liquidation_threshold_percent", caller, old, percent, err)
}

func (e *Engine) UpdatePlatformFee(caller string, percent int64) (model.ParameterChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old, err := e.params.UpdatePlatformFee(caller, percent)
	return e.paramChange("platform_fee_percent", caller, old, percent, err)
}

// ===========================
// Read operations
// ===========================

func (e *Engine) GetOrder(orderID uint64) (*model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, err := e.book.Get(orderID)
	if err != nil {
		return nil, err
	}
	copied := *order
	return &copied, nil
}

func (e *Engine) GetContract(contractID uint64) (*model.FuturesContract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	contract, err := e.settlement.Get(contractID)
	if err != nil {
		return nil, err
	}
	copied := *contract
	return &copied, nil
}

func (e *Engine) GetLock(orderID uint64) (*model.CollateralLock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, err := e.vault.Get(orderID)
	if err != nil {
		return nil, err
	}
	copied := *lock
	return &copied, nil
}

func (e *Engine) UserOrders(trader string) []model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.Order
	for _, id := range e.book.OrdersByTrader(trader) {
		if order, err := e.book.Get(id); err == nil {
			out = append(out, *order)
		}
	}
	return out
}

func (e *Engine) UserContracts(trader string) []model.FuturesContract {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.FuturesContract
	for _, id := range e.settlement.ContractsByParty(trader) {
		if contract, err := e.settlement.Get(id); err == nil {
			out = append(out, *contract)
		}
	}
	return out
}

func (e *Engine) OpenOrders(side model.OrderSide) []model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.Order
	for _, id := range e.book.OpenQueue(side) {
		if order, err := e.book.Get(id); err == nil {
			out = append(out, *order)
		}
	}
	return out
}

func (e *Engine) Stats() domain.EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	active, hours := e.settlement.ActiveCount()
	return domain.EngineStats{
		OrderCount:        e.book.NextID() - 1,
		ContractCount:     e.settlement.nextID - 1,
		OpenBuyOrders:     len(e.book.OpenQueue(model.SideBuy)),
		OpenSellOrders:    len(e.book.OpenQueue(model.SideSell)),
		ActiveContracts:   active,
		OpenInterestHours: hours,
	}
}

// Snapshot returns copies of all engine state, for persistence.
func (e *Engine) Snapshot() ([]model.Order, []model.FuturesContract, []model.CollateralLock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Orders(), e.settlement.Contracts(), e.vault.Locks()
}

// ===========================
// Internals
// ===========================

// beginClose snapshots everything a contract close touches so a failed
// external transfer can restore it.
func (e *Engine) beginClose(contract *model.FuturesContract) func() {
	contractCopy := *contract
	buyOrder, _ := e.book.Get(contract.BuyOrderID)
	sellOrder, _ := e.book.Get(contract.SellOrderID)
	buyStatus := buyOrder.Status
	sellStatus := sellOrder.Status
	buyLock := e.vault.snapshot(contract.BuyOrderID)
	sellLock := e.vault.snapshot(contract.SellOrderID)

	return func() {
		*contract = contractCopy
		buyOrder.Status = buyStatus
		sellOrder.Status = sellStatus
		if buyLock != nil {
			e.vault.restore(*buyLock)
		}
		if sellLock != nil {
			e.vault.restore(*sellLock)
		}
	}
}

// markClosed flips the contract and both constituent orders to their
// terminal states. Runs before any payout transfer is issued.
func (e *Engine) markClosed(contract *model.FuturesContract, status model.ContractStatus, now time.Time) {
	contract.Settled = true
	contract.Status = status
	closedAt := now
	contract.ClosedAt = &closedAt

	orderStatus := model.OrderStatusSettled
	if status == model.ContractStatusLiquidated {
		orderStatus = model.OrderStatusLiquidated
	}
	if order, err := e.book.Get(contract.BuyOrderID); err == nil {
		e.book.SetStatus(order, orderStatus)
	}
	if order, err := e.book.Get(contract.SellOrderID); err == nil {
		e.book.SetStatus(order, orderStatus)
	}
}

func (e *Engine) paramChange(name, caller string, old, val int64, err error) (model.ParameterChange, error) {
	if err != nil {
		return model.ParameterChange{}, err
	}
	change := model.ParameterChange{
		Name:      name,
		OldValue:  old,
		NewValue:  val,
		ChangedBy: caller,
		CreatedAt: e.now(),
	}
	e.publish(constants.EventParameterUpdated, change)
	return change, nil
}

// transfer is one payout leg: amount moves from an order's lock to a
// recipient, in the lock's currency.
type transfer struct {
	orderID uint64
	to      string
	amount  int64
}

// payAll executes the payout legs in order. If one fails, the legs
// already executed are compensated by pulling the funds back into
// their locks, so the caller's in-memory rollback leaves the external
// ledgers consistent as well.
func (e *Engine) payAll(transfers []transfer) error {
	for i, tr := range transfers {
		if err := e.vault.PayFromLock(tr.orderID, tr.to, tr.amount); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = e.vault.reclaim(transfers[j].orderID, transfers[j].to, transfers[j].amount)
			}
			return err
		}
	}
	return nil
}

func (e *Engine) publish(eventType string, data interface{}) {
	if e.emit == nil {
		return
	}
	e.emit(Event{Type: eventType, At: e.now(), Data: data})
}
