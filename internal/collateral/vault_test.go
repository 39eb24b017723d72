package collateral

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"predictionmarket/internal/models"
)

type stubStore struct {
	accounts map[string]uint64
}

func newStubStore() *stubStore {
	return &stubStore{accounts: map[string]uint64{}}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubStore) GetCollateralAccount(ctx context.Context, principal string) (*models.CollateralAccount, error) {
	if amount, ok := s.accounts[principal]; ok {
		return &models.CollateralAccount{Principal: principal, Available: amount}, nil
	}
	return nil, nil
}

func (s *stubStore) AddCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error {
	s.accounts[principal] += amount
	return nil
}

func (s *stubStore) SubCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) (bool, error) {
	if s.accounts[principal] < amount {
		return false, nil
	}
	s.accounts[principal] -= amount
	return true, nil
}

func TestDepositWithdraw(t *testing.T) {
	v := &AccountVault{Repo: newStubStore()}
	ctx := context.Background()

	if err := v.Deposit(ctx, "alice", 1_000_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	balance, _ := v.Balance(ctx, "alice")
	if balance != 1_000_000 {
		t.Fatalf("balance=%d want=1000000", balance)
	}

	if err := v.Withdraw(ctx, "alice", 400_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	balance, _ = v.Balance(ctx, "alice")
	if balance != 600_000 {
		t.Fatalf("balance=%d want=600000", balance)
	}

	if err := v.Withdraw(ctx, "alice", 700_000); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("overdraw err=%v want ErrInsufficientFunds", err)
	}
	if err := v.Deposit(ctx, "alice", 0); !errors.Is(err, models.ErrInvalidAmount) {
		t.Fatalf("zero deposit err=%v want ErrInvalidAmount", err)
	}
	if err := v.Deposit(ctx, "", 10); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("anonymous deposit err=%v want ErrUnauthorized", err)
	}
}

func TestDebitCredit(t *testing.T) {
	store := newStubStore()
	v := &AccountVault{Repo: store}
	ctx := context.Background()
	store.accounts["bob"] = 500

	if err := v.DebitTx(ctx, nil, "bob", 200); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := v.DebitTx(ctx, nil, "bob", 400); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("over-debit err=%v want ErrInsufficientFunds", err)
	}
	if err := v.CreditTx(ctx, nil, "bob", 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if store.accounts["bob"] != 400 {
		t.Fatalf("balance=%d want=400", store.accounts["bob"])
	}

	// Balance read for an account that never deposited.
	balance, err := v.Balance(ctx, "nobody")
	if err != nil || balance != 0 {
		t.Fatalf("balance=%d err=%v", balance, err)
	}
}
