package service

import (
	"context"

	"gpufutures.com/internal/domain"
)

// LedgerServiceImpl is the deposit/withdraw/approve glue around the
// native escrow and the commodity-token ledger. Token pricing and the
// spot purchase flow live outside this service.
type LedgerServiceImpl struct {
	ledger       domain.TokenLedger
	escrow       domain.NativeEscrow
	vaultAccount string
	admin        string
}

func NewLedgerService(ledger domain.TokenLedger, escrow domain.NativeEscrow, vaultAccount, admin string) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledger:       ledger,
		escrow:       escrow,
		vaultAccount: vaultAccount,
		admin:        admin,
	}
}

// Deposit credits a trader's native escrow balance. The transport in
// front of this call is responsible for having actually collected the
// funds.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	return s.escrow.Credit(account, amount)
}

// Withdraw debits a trader's free native escrow balance. Locked
// collateral is held by the vault and is not reachable here.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	if err := s.escrow.Debit(account, amount); err != nil {
		return domain.ErrInsufficientCollateral
	}
	return nil
}

// ApproveVault sets the vault's allowance on the caller's tokens, the
// standing approval sell orders draw on.
func (s *LedgerServiceImpl) ApproveVault(ctx context.Context, owner string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	return s.ledger.Approve(owner, s.vaultAccount, amount)
}

// MintTokens issues compute-hour tokens. Administrator only; this is
// the hook the external token issuance flow calls into.
func (s *LedgerServiceImpl) MintTokens(ctx context.Context, caller, to string, amount int64) error {
	if caller != s.admin {
		return domain.ErrNotAdministrator
	}
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	return s.ledger.Mint(to, amount)
}

// Balances returns an account's free native and token balances.
func (s *LedgerServiceImpl) Balances(ctx context.Context, account string) (int64, int64, error) {
	native, err := s.escrow.BalanceOf(account)
	if err != nil {
		return 0, 0, err
	}
	tokens, err := s.ledger.BalanceOf(account)
	if err != nil {
		return 0, 0, err
	}
	return native, tokens, nil
}

var _ domain.LedgerService = (*LedgerServiceImpl)(nil)
