package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const openingCreditReference = "opening-credit"

// Service exposes wallet balances and debits.
type Service interface {
	// Balance returns the user's balance, granting the opening credit on first read.
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	// DebitTx removes amount inside tx. Repeating a reference is a no-op.
	DebitTx(ctx context.Context, tx *gorm.DB, userID, reference string, amount decimal.Decimal) (decimal.Decimal, error)
	History(ctx context.Context, userID string, limit int) ([]models.WalletEntry, error)
}

type service struct {
	repo           Repository
	openingBalance decimal.Decimal
	logg           *logger.Logger
}

// NewService wires the wallet ledger.
func NewService(repo Repository, openingBalance decimal.Decimal, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("opening balance must not be negative")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, openingBalance: openingBalance, logg: logg}, nil
}

func (s *service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if strings.TrimSpace(userID) == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	balance, err := s.balance(ctx, s.repo, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}
	return balance, nil
}

func (s *service) balance(ctx context.Context, repo Repository, userID string) (decimal.Decimal, error) {
	summary, err := repo.Summarize(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if summary.Entries > 0 || s.openingBalance.IsZero() {
		return summary.Balance, nil
	}

	granted, err := repo.InsertOnce(ctx, &models.WalletEntry{
		UserID:    userID,
		Type:      enums.WalletEntryCredit,
		Amount:    s.openingBalance,
		Reference: openingCreditReference,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if granted {
		s.logg.Info(s.logg.WithUserID(ctx, userID), "wallet opening credit granted")
	}
	summary, err = repo.Summarize(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.Balance, nil
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, userID, reference string, amount decimal.Decimal) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, fmt.Errorf("transaction required")
	}
	if strings.TrimSpace(reference) == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "debit reference is required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.LockUser(ctx, userID); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	balance, err := s.balance(ctx, repo, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}

	// A debit already on the ledger is settled whatever balance it left.
	prior, err := repo.FindByReference(ctx, userID, reference)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet entry")
	}
	if prior != nil {
		return repeatedDebit(prior, balance, amount)
	}
	if balance.LessThan(amount) {
		return balance, pkgerrors.New(pkgerrors.CodeIneligible, "insufficient wallet balance").
			WithDetails(map[string]any{"balance": balance.String(), "required": amount.String()})
	}

	entry := &models.WalletEntry{
		UserID:    userID,
		Type:      enums.WalletEntryDebit,
		Amount:    amount,
		Reference: reference,
	}
	inserted, err := repo.InsertOnce(ctx, entry)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
	}
	if !inserted {
		prior, err := repo.FindByReference(ctx, userID, reference)
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet entry")
		}
		if prior == nil {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "wallet debit was neither written nor found")
		}
		return repeatedDebit(prior, balance, amount)
	}
	return balance.Sub(amount), nil
}

// repeatedDebit resolves a debit whose reference is already on the ledger.
func repeatedDebit(prior *models.WalletEntry, balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if prior.Type != enums.WalletEntryDebit || !prior.Amount.Equal(amount) {
		return balance, pkgerrors.New(pkgerrors.CodeConflict, "wallet reference already used for a different entry").
			WithDetails(map[string]any{"reference": prior.Reference})
	}
	return balance, nil
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]models.WalletEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	entries, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet entries")
	}
	return entries, nil
}
