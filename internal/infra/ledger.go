package infra

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

var errBalanceTooLow = errors.New("balance too low")

// GormTokenLedger is the commodity compute-hour ledger backed by
// Postgres. Each call is one transaction, which gives the engine the
// atomic-step semantics it assumes of its collaborators.
type GormTokenLedger struct {
	db *gorm.DB
}

func NewGormTokenLedger(db *gorm.DB) *GormTokenLedger {
	return &GormTokenLedger{db: db}
}

func (l *GormTokenLedger) BalanceOf(account string) (int64, error) {
	return balanceOf(l.db, account, model.CurrencyToken)
}

func (l *GormTokenLedger) Transfer(from, to string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, from, model.CurrencyToken, amount); err != nil {
			return err
		}
		return credit(tx, to, model.CurrencyToken, amount)
	})
}

func (l *GormTokenLedger) TransferFrom(spender, from, to string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	return l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TokenAllowance{}).
			Where("owner = ? AND spender = ? AND amount >= ?", from, spender, amount).
			Update("amount", gorm.Expr("amount - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("allowance %s->%s: %w", from, spender, errBalanceTooLow)
		}
		if err := debit(tx, from, model.CurrencyToken, amount); err != nil {
			return err
		}
		return credit(tx, to, model.CurrencyToken, amount)
	})
}

func (l *GormTokenLedger) Approve(owner, spender string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	allowance := model.TokenAllowance{Owner: owner, Spender: spender, Amount: amount}
	return l.db.Save(&allowance).Error
}

func (l *GormTokenLedger) Allowance(owner, spender string) (int64, error) {
	var allowance model.TokenAllowance
	err := l.db.Where("owner = ? AND spender = ?", owner, spender).First(&allowance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return allowance.Amount, nil
}

func (l *GormTokenLedger) Mint(to string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	return credit(l.db, to, model.CurrencyToken, amount)
}

var _ domain.TokenLedger = (*GormTokenLedger)(nil)

// GormNativeEscrow holds trader deposits of the native currency.
type GormNativeEscrow struct {
	db *gorm.DB
}

func NewGormNativeEscrow(db *gorm.DB) *GormNativeEscrow {
	return &GormNativeEscrow{db: db}
}

func (e *GormNativeEscrow) BalanceOf(account string) (int64, error) {
	return balanceOf(e.db, account, model.CurrencyNative)
}

func (e *GormNativeEscrow) Debit(account string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	return debit(e.db, account, model.CurrencyNative, amount)
}

func (e *GormNativeEscrow) Credit(account string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidInput
	}
	return credit(e.db, account, model.CurrencyNative, amount)
}

var _ domain.NativeEscrow = (*GormNativeEscrow)(nil)

func balanceOf(db *gorm.DB, account string, currency model.Currency) (int64, error) {
	var acct model.LedgerAccount
	err := db.Where("account = ? AND currency = ?", account, currency).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// debit only succeeds when the row exists with a sufficient balance.
func debit(db *gorm.DB, account string, currency model.Currency, amount int64) error {
	res := db.Model(&model.LedgerAccount{}).
		Where("account = ? AND currency = ? AND balance >= ?", account, currency, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %s (%s): %w", account, currency, errBalanceTooLow)
	}
	return nil
}

func credit(db *gorm.DB, account string, currency model.Currency, amount int64) error {
	res := db.Model(&model.LedgerAccount{}).
		Where("account = ? AND currency = ?", account, currency).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.Create(&model.LedgerAccount{
			Account:  account,
			Currency: currency,
			Balance:  amount,
		}).Error
	}
	return nil
}
