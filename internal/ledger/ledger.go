// Package ledger is the multi-outcome token store: per-owner balances and a
// total supply per token id, with supply == sum of balances after every
// mutation. Mutators take the engine's transaction; the engine is the only
// privileged minter/burner.
package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"predictionmarket/internal/models"
	"predictionmarket/internal/repository"
)

// Outcome token ids are derived from the market id and never reused:
// market 1 owns tokens 101 (YES) and 102 (NO).
const (
	tokenIDStride = 100
	yesTokenSlot  = 1
	noTokenSlot   = 2
)

func TokenID(marketID uint64, outcome string) uint64 {
	if outcome == models.OutcomeYes {
		return marketID*tokenIDStride + yesTokenSlot
	}
	return marketID*tokenIDStride + noTokenSlot
}

// MarketOf inverts TokenID. ok is false for ids outside the derivation.
func MarketOf(tokenID uint64) (marketID uint64, outcome string, ok bool) {
	slot := tokenID % tokenIDStride
	switch slot {
	case yesTokenSlot:
		return tokenID / tokenIDStride, models.OutcomeYes, true
	case noTokenSlot:
		return tokenID / tokenIDStride, models.OutcomeNo, true
	default:
		return 0, "", false
	}
}

// MetasFor builds the immutable name/symbol records for a market's pair of
// outcome tokens.
func MetasFor(marketID uint64) []models.TokenMeta {
	return []models.TokenMeta{
		{
			ID:       TokenID(marketID, models.OutcomeYes),
			MarketID: marketID,
			Outcome:  models.OutcomeYes,
			Name:     fmt.Sprintf("Market %d YES", marketID),
			Symbol:   fmt.Sprintf("M%dY", marketID),
		},
		{
			ID:       TokenID(marketID, models.OutcomeNo),
			MarketID: marketID,
			Outcome:  models.OutcomeNo,
			Name:     fmt.Sprintf("Market %d NO", marketID),
			Symbol:   fmt.Sprintf("M%dN", marketID),
		},
	}
}

type Ledger struct {
	Repo   repository.LedgerStore
	Logger *zap.Logger
}

// MintTx credits amount to `to` and grows the supply. Engine-only.
func (l *Ledger) MintTx(ctx context.Context, tx *gorm.DB, tokenID uint64, to string, amount uint64) error {
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	if err := l.Repo.AddBalanceTx(ctx, tx, tokenID, to, amount); err != nil {
		return err
	}
	return l.Repo.AddSupplyTx(ctx, tx, tokenID, amount)
}

// BurnTx removes amount from `from` and shrinks the supply. Engine-only.
func (l *Ledger) BurnTx(ctx context.Context, tx *gorm.DB, tokenID uint64, from string, amount uint64) error {
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	ok, err := l.Repo.SubBalanceTx(ctx, tx, tokenID, from, amount)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrInsufficientBalance
	}
	ok, err = l.Repo.SubSupplyTx(ctx, tx, tokenID, amount)
	if err != nil {
		return err
	}
	if !ok {
		// Supply smaller than a live balance means the books are broken.
		return models.ErrInvariantViolation
	}
	return nil
}

// TransferTx moves amount between owners; supply is untouched. The caller
// must be the source owner.
func (l *Ledger) TransferTx(ctx context.Context, tx *gorm.DB, caller string, tokenID uint64, amount uint64, from, to string) error {
	if caller == "" || caller != from {
		return models.ErrUnauthorized
	}
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	ok, err := l.Repo.SubBalanceTx(ctx, tx, tokenID, from, amount)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrInsufficientBalance
	}
	return l.Repo.AddBalanceTx(ctx, tx, tokenID, to, amount)
}

func (l *Ledger) Balance(ctx context.Context, tokenID uint64, owner string) (uint64, error) {
	return l.Repo.GetBalance(ctx, tokenID, owner)
}

func (l *Ledger) TotalSupply(ctx context.Context, tokenID uint64) (uint64, error) {
	return l.Repo.GetSupply(ctx, tokenID)
}

// Metadata returns the immutable token record, or ErrTokenNotFound.
func (l *Ledger) Metadata(ctx context.Context, tokenID uint64) (*models.TokenMeta, error) {
	meta, err := l.Repo.GetTokenMeta(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, models.ErrTokenNotFound
	}
	return meta, nil
}
