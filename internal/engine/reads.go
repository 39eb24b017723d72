package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"predictionmarket/internal/ledger"
	"predictionmarket/internal/models"
	"predictionmarket/internal/pricing"
	"predictionmarket/internal/repository"
)

// MarketView is the read model: the persisted row plus clock-derived status
// and the display-grade probability snapshot.
type MarketView struct {
	models.Market
	Status     string          `json:"status"`
	YesTokenID uint64          `json:"yes_token_id"`
	NoTokenID  uint64          `json:"no_token_id"`
	YesPrice   decimal.Decimal `json:"yes_price"`
	NoPrice    decimal.Decimal `json:"no_price"`
}

func (e *Engine) view(market models.Market) MarketView {
	yes, no := pricing.Prices(market.QYes, market.QNo)
	return MarketView{
		Market:     market,
		Status:     market.Status(e.now()),
		YesTokenID: ledger.TokenID(market.ID, models.OutcomeYes),
		NoTokenID:  ledger.TokenID(market.ID, models.OutcomeNo),
		YesPrice:   yes,
		NoPrice:    no,
	}
}

// State returns the singleton engine row, or ErrNotInitialized.
func (e *Engine) State(ctx context.Context) (*models.EngineState, error) {
	state, err := e.Repo.GetEngineState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, models.ErrNotInitialized
	}
	return state, nil
}

// MarketCount reads the monotonic counter; zero before initialization.
func (e *Engine) MarketCount(ctx context.Context) (uint64, error) {
	state, err := e.Repo.GetEngineState(ctx)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, nil
	}
	return state.MarketCount, nil
}

// GetMarket returns the read model or ErrMarketNotFound.
func (e *Engine) GetMarket(ctx context.Context, id uint64) (*MarketView, error) {
	market, err := e.Repo.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, models.ErrMarketNotFound
	}
	v := e.view(*market)
	return &v, nil
}

// ListMarkets pages through markets newest-first with an optional resolved
// filter; total is the unpaged count for the same filter.
func (e *Engine) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]MarketView, int64, error) {
	markets, err := e.Repo.ListMarkets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.Repo.CountMarkets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	views := make([]MarketView, 0, len(markets))
	for _, market := range markets {
		views = append(views, e.view(market))
	}
	return views, total, nil
}

// MarketTokens returns the two outcome token records for a market.
func (e *Engine) MarketTokens(ctx context.Context, marketID uint64) ([]models.TokenMeta, error) {
	market, err := e.Repo.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, models.ErrMarketNotFound
	}
	return e.Repo.ListTokenMetasByMarket(ctx, marketID)
}

func (e *Engine) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, int64, error) {
	trades, err := e.Repo.ListTrades(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.Repo.CountTrades(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

func (e *Engine) ListClaims(ctx context.Context, params repository.ListClaimsParams) ([]models.Claim, error) {
	return e.Repo.ListClaims(ctx, params)
}

func (e *Engine) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.EngineEvent, error) {
	return e.Repo.ListEngineEvents(ctx, params)
}

// Role returns the explicit flags for a principal; the zero value for
// principals with no row.
func (e *Engine) Role(ctx context.Context, principal string) (models.Role, error) {
	role, err := e.Repo.GetRole(ctx, principal)
	if err != nil {
		return models.Role{}, err
	}
	if role == nil {
		return models.Role{Principal: principal}, nil
	}
	return *role, nil
}
