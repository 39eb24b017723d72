package ledger

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"predictionmarket/internal/models"
)

// stubStore is an in-memory repository.LedgerStore for tests.
type stubStore struct {
	balances map[uint64]map[string]uint64
	supplies map[uint64]uint64
	metas    map[uint64]models.TokenMeta
}

func newStubStore() *stubStore {
	return &stubStore{
		balances: map[uint64]map[string]uint64{},
		supplies: map[uint64]uint64{},
		metas:    map[uint64]models.TokenMeta{},
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubStore) InsertTokenMetasTx(ctx context.Context, tx *gorm.DB, items []models.TokenMeta) error {
	for _, item := range items {
		s.metas[item.ID] = item
	}
	return nil
}

func (s *stubStore) GetTokenMeta(ctx context.Context, tokenID uint64) (*models.TokenMeta, error) {
	if meta, ok := s.metas[tokenID]; ok {
		return &meta, nil
	}
	return nil, nil
}

func (s *stubStore) ListTokenMetasByMarket(ctx context.Context, marketID uint64) ([]models.TokenMeta, error) {
	var out []models.TokenMeta
	for _, meta := range s.metas {
		if meta.MarketID == marketID {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (s *stubStore) GetBalance(ctx context.Context, tokenID uint64, owner string) (uint64, error) {
	return s.balances[tokenID][owner], nil
}

func (s *stubStore) ListBalances(ctx context.Context, tokenID uint64) ([]models.TokenBalance, error) {
	var out []models.TokenBalance
	for owner, amount := range s.balances[tokenID] {
		out = append(out, models.TokenBalance{TokenID: tokenID, Owner: owner, Amount: amount})
	}
	return out, nil
}

func (s *stubStore) AddBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) error {
	if s.balances[tokenID] == nil {
		s.balances[tokenID] = map[string]uint64{}
	}
	s.balances[tokenID][owner] += delta
	return nil
}

func (s *stubStore) SubBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) (bool, error) {
	if s.balances[tokenID][owner] < delta {
		return false, nil
	}
	s.balances[tokenID][owner] -= delta
	return true, nil
}

func (s *stubStore) GetSupply(ctx context.Context, tokenID uint64) (uint64, error) {
	return s.supplies[tokenID], nil
}

func (s *stubStore) AddSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) error {
	s.supplies[tokenID] += delta
	return nil
}

func (s *stubStore) SubSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) (bool, error) {
	if s.supplies[tokenID] < delta {
		return false, nil
	}
	s.supplies[tokenID] -= delta
	return true, nil
}

func (s *stubStore) checkConservation(t *testing.T, tokenID uint64) {
	t.Helper()
	var sum uint64
	for _, amount := range s.balances[tokenID] {
		sum += amount
	}
	if sum != s.supplies[tokenID] {
		t.Fatalf("token %d: supply=%d sum(balances)=%d", tokenID, s.supplies[tokenID], sum)
	}
}

func TestTokenID_Derivation(t *testing.T) {
	if got := TokenID(1, models.OutcomeYes); got != 101 {
		t.Fatalf("yes token=%d want=101", got)
	}
	if got := TokenID(1, models.OutcomeNo); got != 102 {
		t.Fatalf("no token=%d want=102", got)
	}
	marketID, outcome, ok := MarketOf(4201)
	if !ok || marketID != 42 || outcome != models.OutcomeYes {
		t.Fatalf("MarketOf(4201)=%d,%s,%v", marketID, outcome, ok)
	}
	if _, _, ok := MarketOf(4203); ok {
		t.Fatalf("slot 3 must not resolve to a market")
	}
}

func TestMetasFor(t *testing.T) {
	metas := MetasFor(7)
	if len(metas) != 2 {
		t.Fatalf("len=%d want=2", len(metas))
	}
	if metas[0].Name != "Market 7 YES" || metas[0].Symbol != "M7Y" || metas[0].ID != 701 {
		t.Fatalf("yes meta=%+v", metas[0])
	}
	if metas[1].Name != "Market 7 NO" || metas[1].Symbol != "M7N" || metas[1].ID != 702 {
		t.Fatalf("no meta=%+v", metas[1])
	}
}

func TestMintBurn_Conservation(t *testing.T) {
	store := newStubStore()
	l := &Ledger{Repo: store}
	ctx := context.Background()
	const token = 101

	if err := l.MintTx(ctx, nil, token, "alice", 1_000_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	store.checkConservation(t, token)

	balance, _ := l.Balance(ctx, token, "alice")
	if balance != 1_000_000 {
		t.Fatalf("balance=%d want=1000000", balance)
	}
	supply, _ := l.TotalSupply(ctx, token)
	if supply != 1_000_000 {
		t.Fatalf("supply=%d want=1000000", supply)
	}

	if err := l.BurnTx(ctx, nil, token, "alice", 400_000); err != nil {
		t.Fatalf("burn: %v", err)
	}
	store.checkConservation(t, token)

	if err := l.BurnTx(ctx, nil, token, "alice", 700_000); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("over-burn err=%v want ErrInsufficientBalance", err)
	}
	store.checkConservation(t, token)
}

func TestTransfer(t *testing.T) {
	store := newStubStore()
	l := &Ledger{Repo: store}
	ctx := context.Background()
	const token = 101

	if err := l.MintTx(ctx, nil, token, "alice", 1_000_000); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.TransferTx(ctx, nil, "alice", token, 400_000, "alice", "bob"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	store.checkConservation(t, token)

	aliceBal, _ := l.Balance(ctx, token, "alice")
	bobBal, _ := l.Balance(ctx, token, "bob")
	if aliceBal != 600_000 || bobBal != 400_000 {
		t.Fatalf("alice=%d bob=%d", aliceBal, bobBal)
	}

	// Only the source owner may move funds.
	if err := l.TransferTx(ctx, nil, "mallory", token, 1, "alice", "mallory"); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("err=%v want ErrUnauthorized", err)
	}

	// Overdraw fails and leaves balances untouched.
	if err := l.TransferTx(ctx, nil, "alice", token, 900_000, "alice", "bob"); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("err=%v want ErrInsufficientBalance", err)
	}
	aliceBal, _ = l.Balance(ctx, token, "alice")
	bobBal, _ = l.Balance(ctx, token, "bob")
	if aliceBal != 600_000 || bobBal != 400_000 {
		t.Fatalf("balances changed after failed transfer: alice=%d bob=%d", aliceBal, bobBal)
	}
}

func TestMetadata_Unknown(t *testing.T) {
	l := &Ledger{Repo: newStubStore()}
	if _, err := l.Metadata(context.Background(), 999); !errors.Is(err, models.ErrTokenNotFound) {
		t.Fatalf("err=%v want ErrTokenNotFound", err)
	}
}
