// Package collateral models the fungible collateral asset as a capability
// the engine calls: debit on buy, credit on claim. The engine never owns the
// asset; the shipped implementation keeps per-principal accounts funded
// through deposit/withdraw.
package collateral

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"predictionmarket/internal/models"
	"predictionmarket/internal/repository"
)

// Vault is the interface the market engine depends on. DebitTx and CreditTx
// run inside the engine's transaction so a failed buy or claim rolls the
// collateral movement back with everything else.
type Vault interface {
	DebitTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error
	CreditTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error
	Balance(ctx context.Context, principal string) (uint64, error)
}

type AccountVault struct {
	Repo   repository.VaultStore
	Logger *zap.Logger
}

var _ Vault = (*AccountVault)(nil)

func (v *AccountVault) DebitTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error {
	ok, err := v.Repo.SubCollateralTx(ctx, tx, principal, amount)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrInsufficientFunds
	}
	return nil
}

func (v *AccountVault) CreditTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error {
	return v.Repo.AddCollateralTx(ctx, tx, principal, amount)
}

func (v *AccountVault) Balance(ctx context.Context, principal string) (uint64, error) {
	account, err := v.Repo.GetCollateralAccount(ctx, principal)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Available, nil
}

// Deposit funds a principal's account. Stand-in for an on-chain transfer in.
func (v *AccountVault) Deposit(ctx context.Context, principal string, amount uint64) error {
	if principal == "" {
		return models.ErrUnauthorized
	}
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	return v.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return v.Repo.AddCollateralTx(ctx, tx, principal, amount)
	})
}

// Withdraw releases free collateral back to the principal.
func (v *AccountVault) Withdraw(ctx context.Context, principal string, amount uint64) error {
	if principal == "" {
		return models.ErrUnauthorized
	}
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	return v.Repo.InTx(ctx, func(tx *gorm.DB) error {
		ok, err := v.Repo.SubCollateralTx(ctx, tx, principal, amount)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrInsufficientFunds
		}
		return nil
	})
}
