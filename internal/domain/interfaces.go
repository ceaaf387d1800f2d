package domain

import (
	"context"

	"gpufutures.com/internal/model"
)

// ===========================
// Futures trading interface
// ===========================

// CreateOrderInput carries everything a trader submits with an order.
// For buy orders Collateral is the native value attached to the call;
// for sell orders it is ignored and the vault pulls tokens against the
// trader's standing allowance.
type CreateOrderInput struct {
	Trader         string
	Side           model.OrderSide
	Price          int64
	Quantity       int64
	ExpirationUnix int64
	Collateral     int64
}

// FuturesService defines the trading operations exposed to the API.
type FuturesService interface {
	// CreateOrder locks collateral, records the order and attempts an
	// immediate match. The returned contract is non-nil iff the order
	// filled on arrival.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, *model.FuturesContract, error)
	// CancelOrder releases collateral and cancels an Open order.
	CancelOrder(ctx context.Context, caller string, orderID uint64) (*model.Order, error)
	// SettleContract pays out an expired contract. Permissionless.
	SettleContract(ctx context.Context, caller string, contractID uint64) (*model.FuturesContract, error)
	// Liquidate force-closes a contract overdue past the grace window.
	Liquidate(ctx context.Context, caller string, contractID uint64) (*model.FuturesContract, error)
	// SweepExpiredOrders retires Open orders whose expiry has passed.
	SweepExpiredOrders(ctx context.Context) ([]model.Order, error)

	GetOrder(ctx context.Context, orderID uint64) (*model.Order, error)
	GetContract(ctx context.Context, contractID uint64) (*model.FuturesContract, error)
	GetUserOrders(ctx context.Context, trader string, page, pageSize int) ([]model.Order, int64, error)
	GetUserContracts(ctx context.Context, trader string, page, pageSize int) ([]model.FuturesContract, int64, error)
	GetOpenOrders(ctx context.Context, side model.OrderSide) ([]model.Order, error)
	GetStats(ctx context.Context) (EngineStats, error)

	// Parameter updates, administrator only, prospective only.
	GetParameters(ctx context.Context) (model.ParameterSet, error)
	UpdateCollateralRequirement(ctx context.Context, caller string, percent int64) error
	UpdateLiquidationThreshold(ctx context.Context, caller string, percent int64) error
	UpdatePlatformFee(ctx context.Context, caller string, percent int64) error
}

// EngineStats is the read-only counters surface.
type EngineStats struct {
	OrderCount        uint64 `json:"order_count"`
	ContractCount     uint64 `json:"contract_count"`
	OpenBuyOrders     int    `json:"open_buy_orders"`
	OpenSellOrders    int    `json:"open_sell_orders"`
	ActiveContracts   int    `json:"active_contracts"`
	OpenInterestHours int64  `json:"open_interest_hours"`
}

// ===========================
// Ledger collaborators
// ===========================

// TokenLedger is the external tokenized compute-hour commodity ledger.
// The engine debits and credits it but does not implement token
// mechanics. Every call is a single atomic step: it either fully
// succeeds or returns an error having changed nothing.
type TokenLedger interface {
	BalanceOf(account string) (int64, error)
	Transfer(from, to string, amount int64) error
	TransferFrom(spender, from, to string, amount int64) error
	Approve(owner, spender string, amount int64) error
	Allowance(owner, spender string) (int64, error)
	Mint(to string, amount int64) error
}

// NativeEscrow is the native-currency escrow the runtime holds trader
// deposits in. Debit fails without side effects when the balance is
// short.
type NativeEscrow interface {
	BalanceOf(account string) (int64, error)
	Debit(account string, amount int64) error
	Credit(account string, amount int64) error
}

// LedgerService is the deposit/withdraw/approve glue around the two
// collaborators.
type LedgerService interface {
	Deposit(ctx context.Context, account string, amount int64) error
	Withdraw(ctx context.Context, account string, amount int64) error
	ApproveVault(ctx context.Context, owner string, amount int64) error
	MintTokens(ctx context.Context, caller, to string, amount int64) error
	Balances(ctx context.Context, account string) (native int64, tokens int64, err error)
}

// ===========================
// Event push
// ===========================

// Notifier pushes engine events to connected clients.
type Notifier interface {
	BroadcastToAll(data interface{})
}
