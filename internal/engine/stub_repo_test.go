package engine

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"predictionmarket/internal/models"
	"predictionmarket/internal/repository"
)

// stubRepo is an in-memory repository.Repository. Guarded decrements mirror
// the SQL store: they refuse without mutating, so failed operations leave no
// partial state even though there is no real transaction underneath.
type stubRepo struct {
	state    *models.EngineState
	roles    map[string]models.Role
	markets  map[uint64]*models.Market
	metas    map[uint64]models.TokenMeta
	balances map[uint64]map[string]uint64
	supplies map[uint64]uint64
	accounts map[string]uint64
	trades   []models.Trade
	claims   []models.Claim
	events   []models.EngineEvent
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{
		roles:    map[string]models.Role{},
		markets:  map[uint64]*models.Market{},
		metas:    map[uint64]models.TokenMeta{},
		balances: map[uint64]map[string]uint64{},
		supplies: map[uint64]uint64{},
		accounts: map[string]uint64{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) GetEngineState(ctx context.Context) (*models.EngineState, error) {
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *stubRepo) GetEngineStateTx(ctx context.Context, tx *gorm.DB) (*models.EngineState, error) {
	return s.GetEngineState(ctx)
}

func (s *stubRepo) InsertEngineStateTx(ctx context.Context, tx *gorm.DB, item *models.EngineState) error {
	cp := *item
	s.state = &cp
	return nil
}

func (s *stubRepo) UpdateEngineStateTx(ctx context.Context, tx *gorm.DB, item *models.EngineState) error {
	cp := *item
	s.state = &cp
	return nil
}

func (s *stubRepo) GetRole(ctx context.Context, principal string) (*models.Role, error) {
	if role, ok := s.roles[principal]; ok {
		return &role, nil
	}
	return nil, nil
}

func (s *stubRepo) UpsertRoleTx(ctx context.Context, tx *gorm.DB, item *models.Role) error {
	s.roles[item.Principal] = *item
	return nil
}

func (s *stubRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	for _, role := range s.roles {
		out = append(out, role)
	}
	return out, nil
}

func (s *stubRepo) GetMarket(ctx context.Context, id uint64) (*models.Market, error) {
	if market, ok := s.markets[id]; ok {
		cp := *market
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) listFiltered(params repository.ListMarketsParams) []models.Market {
	var out []models.Market
	for _, market := range s.markets {
		if params.Resolved != nil && market.Resolved != *params.Resolved {
			continue
		}
		out = append(out, *market)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *stubRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	out := s.listFiltered(params)
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	return int64(len(s.listFiltered(params))), nil
}

func (s *stubRepo) InsertMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	cp := *item
	s.markets[item.ID] = &cp
	return nil
}

func (s *stubRepo) SaveMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	cp := *item
	s.markets[item.ID] = &cp
	return nil
}

func (s *stubRepo) ListExpiredUnresolved(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	var out []models.Market
	for _, market := range s.markets {
		if !market.Resolved && !now.Before(market.EndTime) {
			out = append(out, *market)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) InsertTokenMetasTx(ctx context.Context, tx *gorm.DB, items []models.TokenMeta) error {
	for _, item := range items {
		s.metas[item.ID] = item
	}
	return nil
}

func (s *stubRepo) GetTokenMeta(ctx context.Context, tokenID uint64) (*models.TokenMeta, error) {
	if meta, ok := s.metas[tokenID]; ok {
		return &meta, nil
	}
	return nil, nil
}

func (s *stubRepo) ListTokenMetasByMarket(ctx context.Context, marketID uint64) ([]models.TokenMeta, error) {
	var out []models.TokenMeta
	for _, meta := range s.metas {
		if meta.MarketID == marketID {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) GetBalance(ctx context.Context, tokenID uint64, owner string) (uint64, error) {
	return s.balances[tokenID][owner], nil
}

func (s *stubRepo) ListBalances(ctx context.Context, tokenID uint64) ([]models.TokenBalance, error) {
	var out []models.TokenBalance
	for owner, amount := range s.balances[tokenID] {
		out = append(out, models.TokenBalance{TokenID: tokenID, Owner: owner, Amount: amount})
	}
	return out, nil
}

func (s *stubRepo) AddBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) error {
	if s.balances[tokenID] == nil {
		s.balances[tokenID] = map[string]uint64{}
	}
	s.balances[tokenID][owner] += delta
	return nil
}

func (s *stubRepo) SubBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) (bool, error) {
	if s.balances[tokenID][owner] < delta {
		return false, nil
	}
	s.balances[tokenID][owner] -= delta
	return true, nil
}

func (s *stubRepo) GetSupply(ctx context.Context, tokenID uint64) (uint64, error) {
	return s.supplies[tokenID], nil
}

func (s *stubRepo) AddSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) error {
	s.supplies[tokenID] += delta
	return nil
}

func (s *stubRepo) SubSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) (bool, error) {
	if s.supplies[tokenID] < delta {
		return false, nil
	}
	s.supplies[tokenID] -= delta
	return true, nil
}

func (s *stubRepo) GetCollateralAccount(ctx context.Context, principal string) (*models.CollateralAccount, error) {
	if amount, ok := s.accounts[principal]; ok {
		return &models.CollateralAccount{Principal: principal, Available: amount}, nil
	}
	return nil, nil
}

func (s *stubRepo) AddCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error {
	s.accounts[principal] += amount
	return nil
}

func (s *stubRepo) SubCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) (bool, error) {
	if s.accounts[principal] < amount {
		return false, nil
	}
	s.accounts[principal] -= amount
	return true, nil
}

func (s *stubRepo) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	item.ID = uint64(len(s.trades) + 1)
	s.trades = append(s.trades, *item)
	return nil
}

func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	var out []models.Trade
	for _, trade := range s.trades {
		if params.MarketID != nil && trade.MarketID != *params.MarketID {
			continue
		}
		if params.Buyer != nil && trade.Buyer != *params.Buyer {
			continue
		}
		out = append(out, trade)
	}
	return out, nil
}

func (s *stubRepo) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	out, _ := s.ListTrades(ctx, params)
	return int64(len(out)), nil
}

func (s *stubRepo) InsertClaimTx(ctx context.Context, tx *gorm.DB, item *models.Claim) error {
	item.ID = uint64(len(s.claims) + 1)
	s.claims = append(s.claims, *item)
	return nil
}

func (s *stubRepo) ListClaims(ctx context.Context, params repository.ListClaimsParams) ([]models.Claim, error) {
	var out []models.Claim
	for _, claim := range s.claims {
		if params.MarketID != nil && claim.MarketID != *params.MarketID {
			continue
		}
		if params.Claimant != nil && claim.Claimant != *params.Claimant {
			continue
		}
		out = append(out, claim)
	}
	return out, nil
}

func (s *stubRepo) InsertEngineEventTx(ctx context.Context, tx *gorm.DB, item *models.EngineEvent) error {
	item.ID = uint64(len(s.events) + 1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, *item)
	return nil
}

func (s *stubRepo) ListEngineEvents(ctx context.Context, params repository.ListEventsParams) ([]models.EngineEvent, error) {
	var out []models.EngineEvent
	for _, ev := range s.events {
		if params.Kind != nil && ev.Kind != *params.Kind {
			continue
		}
		if params.MarketID != nil && (ev.MarketID == nil || *ev.MarketID != *params.MarketID) {
			continue
		}
		if params.Since != nil && ev.CreatedAt.Before(*params.Since) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *stubRepo) DeleteEngineEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []models.EngineEvent
	var deleted int64
	for _, ev := range s.events {
		if ev.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

func (s *stubRepo) countEvents(kind string) int {
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
