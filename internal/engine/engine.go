// Package engine is the orchestrator: every mutating entry point lives here,
// serialized per market and wrapped in one database transaction, so each
// operation fully applies or fully rolls back.
package engine

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"predictionmarket/internal/access"
	"predictionmarket/internal/collateral"
	"predictionmarket/internal/ledger"
	"predictionmarket/internal/models"
	"predictionmarket/internal/pricing"
	"predictionmarket/internal/repository"
)

// Publisher receives committed events for live fan-out. Publishing happens
// after commit only; a rolled-back operation is never announced.
type Publisher interface {
	Publish(kind string, payload any)
}

const lockStripes = 64

type Engine struct {
	Repo   repository.Repository
	Access *access.Controller
	Ledger *ledger.Ledger
	Vault  collateral.Vault
	Logger *zap.Logger
	Stream Publisher

	// Clock is injected so lifecycle gating is testable; nil means wall clock.
	Clock func() time.Time

	MaxQuestionLen  int
	ExpirySweepSize int
	EventRetention  time.Duration

	initMu sync.Mutex
	locks  [lockStripes]sync.Mutex

	sweepMu   sync.Mutex
	announced map[uint64]struct{}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

// Operations on the same market serialize on one stripe; different markets
// usually proceed independently.
func (e *Engine) lockMarket(id uint64) func() {
	mu := &e.locks[id%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) maxQuestionLen() int {
	if e.MaxQuestionLen > 0 {
		return e.MaxQuestionLen
	}
	return 256
}

// event builds the journal row; payload marshalling cannot fail for the maps
// the engine writes.
func event(kind string, marketID *uint64, principal string, payload map[string]any) *models.EngineEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	item := &models.EngineEvent{Kind: kind, MarketID: marketID, Payload: datatypes.JSON(raw)}
	if principal != "" {
		item.Principal = &principal
	}
	return item
}

func (e *Engine) publish(kind string, payload map[string]any) {
	if e.Stream != nil {
		e.Stream.Publish(kind, payload)
	}
}

// Initialize performs one-shot setup: owner principal, collateral token
// identifier, market counter at zero. Every later call fails
// ErrAlreadyInitialized.
func (e *Engine) Initialize(ctx context.Context, owner, collateralToken string) error {
	owner = strings.TrimSpace(owner)
	collateralToken = strings.TrimSpace(collateralToken)
	if owner == "" || collateralToken == "" {
		return models.ErrInvalidAmount
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()

	payload := map[string]any{"owner": owner, "collateral_token": collateralToken}
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		state, err := e.Repo.GetEngineStateTx(ctx, tx)
		if err != nil {
			return err
		}
		if state != nil {
			return models.ErrAlreadyInitialized
		}
		now := e.now()
		if err := e.Repo.InsertEngineStateTx(ctx, tx, &models.EngineState{
			ID:              1,
			Owner:           owner,
			CollateralToken: collateralToken,
			MarketCount:     0,
			InitializedAt:   now,
		}); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventEngineInitialized, nil, owner, payload))
	})
	if err != nil {
		return err
	}
	e.Logger.Info("engine initialized", zap.String("owner", owner), zap.String("collateral_token", collateralToken))
	e.publish(models.EventEngineInitialized, payload)
	return nil
}

// SetAdminRole grants or revokes the admin flag. Owner only, idempotent.
func (e *Engine) SetAdminRole(ctx context.Context, caller, principal string, enabled bool) error {
	return e.setRole(ctx, caller, principal, "admin", enabled)
}

// SetModeratorRole grants or revokes the moderator flag. Owner only,
// idempotent.
func (e *Engine) SetModeratorRole(ctx context.Context, caller, principal string, enabled bool) error {
	return e.setRole(ctx, caller, principal, "moderator", enabled)
}

func (e *Engine) setRole(ctx context.Context, caller, principal, flag string, enabled bool) error {
	if err := e.Access.Authorize(ctx, caller, access.CapOwner); err != nil {
		return err
	}
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return models.ErrInvalidAmount
	}

	payload := map[string]any{"principal": principal, "role": flag, "enabled": enabled}
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		role, err := e.Repo.GetRole(ctx, principal)
		if err != nil {
			return err
		}
		if role == nil {
			role = &models.Role{Principal: principal}
		}
		if flag == "admin" {
			role.Admin = enabled
		} else {
			role.Moderator = enabled
		}
		if err := e.Repo.UpsertRoleTx(ctx, tx, role); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventRoleChanged, nil, caller, payload))
	})
	if err != nil {
		return err
	}
	e.Logger.Info("role changed",
		zap.String("principal", principal), zap.String("role", flag), zap.Bool("enabled", enabled))
	e.publish(models.EventRoleChanged, payload)
	return nil
}

type CreateMarketParams struct {
	Liquidity   uint64
	StartTime   time.Time
	EndTime     time.Time
	Question    string
	MetadataRef string
}

// CreateMarket allocates the next sequential market id, persists the market
// and both outcome token records, and bumps the counter, all in one
// transaction. Admin only.
func (e *Engine) CreateMarket(ctx context.Context, caller string, params CreateMarketParams) (uint64, error) {
	if err := e.Access.Authorize(ctx, caller, access.CapAdmin); err != nil {
		return 0, err
	}
	if params.Liquidity == 0 {
		return 0, models.ErrInvalidLiquidity
	}
	question := strings.TrimSpace(params.Question)
	if question == "" || len(question) > e.maxQuestionLen() {
		return 0, models.ErrInvalidQuestion
	}
	now := e.now()
	if !params.EndTime.After(params.StartTime) || params.StartTime.Before(now) {
		return 0, models.ErrInvalidTimeRange
	}

	var marketID uint64
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		state, err := e.Repo.GetEngineStateTx(ctx, tx)
		if err != nil {
			return err
		}
		if state == nil {
			return models.ErrNotInitialized
		}
		state.MarketCount++
		marketID = state.MarketCount

		market := &models.Market{
			ID:             marketID,
			Question:       question,
			MetadataRef:    params.MetadataRef,
			LiquidityParam: params.Liquidity,
			StartTime:      params.StartTime.UTC(),
			EndTime:        params.EndTime.UTC(),
			CreatedBy:      caller,
		}
		if err := e.Repo.InsertMarketTx(ctx, tx, market); err != nil {
			return err
		}
		if err := e.Repo.InsertTokenMetasTx(ctx, tx, ledger.MetasFor(marketID)); err != nil {
			return err
		}
		if err := e.Repo.UpdateEngineStateTx(ctx, tx, state); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventMarketCreated, &marketID, caller, map[string]any{
			"market_id":  marketID,
			"question":   question,
			"liquidity":  params.Liquidity,
			"start_time": market.StartTime,
			"end_time":   market.EndTime,
		}))
	})
	if err != nil {
		return 0, err
	}
	e.Logger.Info("market created", zap.Uint64("market_id", marketID), zap.String("created_by", caller))
	e.publish(models.EventMarketCreated, map[string]any{"market_id": marketID, "question": question})
	return marketID, nil
}

// Buy debits collateral from the caller, mints outcome shares priced by the
// curve, and advances the market's accumulators. Open markets only.
func (e *Engine) Buy(ctx context.Context, caller string, marketID uint64, rawOutcome string, amount uint64) (*models.Trade, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, models.ErrUnauthorized
	}
	outcome, err := models.ParseOutcome(rawOutcome)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, models.ErrInvalidAmount
	}

	defer e.lockMarket(marketID)()

	var trade *models.Trade
	err = e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := e.Repo.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return models.ErrMarketNotFound
		}
		now := e.now()
		if market.Status(now) != models.MarketStatusOpen {
			return models.ErrMarketNotOpen
		}

		shares, err := pricing.SharesOut(market.QYes, market.QNo, market.LiquidityParam, outcome, amount)
		if err != nil {
			return err
		}
		if shares == 0 {
			return models.ErrInvalidAmount
		}

		if err := e.Vault.DebitTx(ctx, tx, caller, amount); err != nil {
			return err
		}
		tokenID := ledger.TokenID(marketID, outcome)
		if err := e.Ledger.MintTx(ctx, tx, tokenID, caller, shares); err != nil {
			return err
		}

		if outcome == models.OutcomeYes {
			market.QYes, err = pricing.CheckedAdd(market.QYes, shares)
		} else {
			market.QNo, err = pricing.CheckedAdd(market.QNo, shares)
		}
		if err != nil {
			return err
		}
		market.CollateralCollected, err = pricing.CheckedAdd(market.CollateralCollected, amount)
		if err != nil {
			return err
		}
		if err := e.Repo.SaveMarketTx(ctx, tx, market); err != nil {
			return err
		}

		trade = &models.Trade{
			MarketID:     marketID,
			TokenID:      tokenID,
			Buyer:        caller,
			Outcome:      outcome,
			CollateralIn: amount,
			SharesOut:    shares,
			QYesAfter:    market.QYes,
			QNoAfter:     market.QNo,
			YesPrice:     pricing.Probability(market.QYes, market.QNo),
		}
		if err := e.Repo.InsertTradeTx(ctx, tx, trade); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventTrade, &marketID, caller, map[string]any{
			"market_id":     marketID,
			"outcome":       outcome,
			"collateral_in": amount,
			"shares_out":    shares,
			"q_yes":         market.QYes,
			"q_no":          market.QNo,
		}))
	})
	if err != nil {
		return nil, err
	}
	e.Logger.Info("buy",
		zap.Uint64("market_id", marketID), zap.String("buyer", caller),
		zap.String("outcome", outcome), zap.Uint64("collateral_in", amount),
		zap.Uint64("shares_out", trade.SharesOut))
	e.publish(models.EventTrade, map[string]any{
		"market_id": marketID, "buyer": caller, "outcome": outcome,
		"collateral_in": amount, "shares_out": trade.SharesOut,
		"yes_price": trade.YesPrice,
	})
	return trade, nil
}

// ResolveMarket records the winning outcome. Admin or owner, expired markets
// only, irreversible.
func (e *Engine) ResolveMarket(ctx context.Context, caller string, marketID uint64, yesWon bool) error {
	if err := e.Access.Authorize(ctx, caller, access.CapAdmin); err != nil {
		return err
	}

	defer e.lockMarket(marketID)()

	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := e.Repo.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return models.ErrMarketNotFound
		}
		if market.Resolved {
			return models.ErrAlreadyResolved
		}
		now := e.now()
		if now.Before(market.EndTime) {
			return models.ErrMarketNotExpired
		}

		market.Resolved = true
		market.YesWon = yesWon
		market.ResolvedAt = &now
		market.ResolvedBy = &caller
		if err := e.Repo.SaveMarketTx(ctx, tx, market); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventMarketResolved, &marketID, caller, map[string]any{
			"market_id": marketID,
			"yes_won":   yesWon,
		}))
	})
	if err != nil {
		return err
	}
	e.Logger.Info("market resolved",
		zap.Uint64("market_id", marketID), zap.Bool("yes_won", yesWon), zap.String("resolved_by", caller))
	e.publish(models.EventMarketResolved, map[string]any{"market_id": marketID, "yes_won": yesWon})
	return nil
}

// Claim burns the caller's full winning balance and releases an equal amount
// of collateral. A repeat call finds a zero balance and fails
// ErrNoWinningShares; the operation consumes what it pays against.
func (e *Engine) Claim(ctx context.Context, caller string, marketID uint64) (uint64, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return 0, models.ErrUnauthorized
	}

	defer e.lockMarket(marketID)()

	var payout uint64
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := e.Repo.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return models.ErrMarketNotFound
		}
		if !market.Resolved {
			return models.ErrMarketNotResolved
		}

		winning := models.OutcomeNo
		if market.YesWon {
			winning = models.OutcomeYes
		}
		tokenID := ledger.TokenID(marketID, winning)
		balance, err := e.Ledger.Balance(ctx, tokenID, caller)
		if err != nil {
			return err
		}
		if balance == 0 {
			return models.ErrNoWinningShares
		}

		// Floor rounding on every buy keeps total winning shares within the
		// collateral collected; a shortfall here means the books are broken.
		released, err := pricing.CheckedAdd(market.CollateralReleased, balance)
		if err != nil || released > market.CollateralCollected {
			return models.ErrInvariantViolation
		}

		if err := e.Ledger.BurnTx(ctx, tx, tokenID, caller, balance); err != nil {
			return err
		}
		if err := e.Vault.CreditTx(ctx, tx, caller, balance); err != nil {
			return err
		}
		market.CollateralReleased = released
		if err := e.Repo.SaveMarketTx(ctx, tx, market); err != nil {
			return err
		}

		payout = balance
		if err := e.Repo.InsertClaimTx(ctx, tx, &models.Claim{
			MarketID:      marketID,
			TokenID:       tokenID,
			Claimant:      caller,
			SharesBurned:  balance,
			CollateralOut: balance,
		}); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventClaimed, &marketID, caller, map[string]any{
			"market_id":      marketID,
			"shares_burned":  balance,
			"collateral_out": balance,
		}))
	})
	if err != nil {
		return 0, err
	}
	e.Logger.Info("claim",
		zap.Uint64("market_id", marketID), zap.String("claimant", caller), zap.Uint64("collateral_out", payout))
	e.publish(models.EventClaimed, map[string]any{"market_id": marketID, "claimant": caller, "collateral_out": payout})
	return payout, nil
}

// Transfer moves outcome shares between principals; the caller must own the
// source balance. Supply is untouched.
func (e *Engine) Transfer(ctx context.Context, caller string, tokenID, amount uint64, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" || to == from {
		return models.ErrInvalidAmount
	}
	if _, err := e.Ledger.Metadata(ctx, tokenID); err != nil {
		return err
	}

	marketID, _, _ := ledger.MarketOf(tokenID)
	defer e.lockMarket(marketID)()

	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := e.Ledger.TransferTx(ctx, tx, caller, tokenID, amount, from, to); err != nil {
			return err
		}
		return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventTransfer, &marketID, caller, map[string]any{
			"token_id": tokenID,
			"amount":   amount,
			"from":     from,
			"to":       to,
		}))
	})
	if err != nil {
		return err
	}
	e.publish(models.EventTransfer, map[string]any{"token_id": tokenID, "amount": amount, "from": from, "to": to})
	return nil
}
