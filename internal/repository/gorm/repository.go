package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"predictionmarket/internal/models"
	"predictionmarket/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- engine state -----------------------------------------------------------

func (s *Store) GetEngineState(ctx context.Context) (*models.EngineState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getEngineState(s.db.WithContext(ctx))
}

func (s *Store) GetEngineStateTx(ctx context.Context, tx *gorm.DB) (*models.EngineState, error) {
	return getEngineState(tx.WithContext(ctx))
}

func getEngineState(db *gorm.DB) (*models.EngineState, error) {
	var item models.EngineState
	if err := db.First(&item, "id = 1").Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertEngineStateTx(ctx context.Context, tx *gorm.DB, item *models.EngineState) error {
	if item == nil {
		return nil
	}
	item.ID = 1
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateEngineStateTx(ctx context.Context, tx *gorm.DB, item *models.EngineState) error {
	if item == nil {
		return nil
	}
	item.ID = 1
	return tx.WithContext(ctx).Save(item).Error
}

// --- roles ------------------------------------------------------------------

func (s *Store) GetRole(ctx context.Context, principal string) (*models.Role, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Role
	err := s.db.WithContext(ctx).First(&item, "principal = ?", principal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertRoleTx(ctx context.Context, tx *gorm.DB, item *models.Role) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		DoUpdates: clause.AssignmentColumns([]string{"admin", "moderator", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Role
	if err := s.db.WithContext(ctx).Order("principal asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- markets ----------------------------------------------------------------

func (s *Store) GetMarket(ctx context.Context, id uint64) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func marketQuery(db *gorm.DB, params repository.ListMarketsParams) *gorm.DB {
	query := db.Model(&models.Market{})
	if params.Resolved != nil {
		query = query.Where("resolved = ?", *params.Resolved)
	}
	return query
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	err := marketQuery(s.db.WithContext(ctx), params).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := marketQuery(s.db.WithContext(ctx), params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) InsertMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) SaveMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) ListExpiredUnresolved(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Market
	err := s.db.WithContext(ctx).
		Where("resolved = false").
		Where("end_time <= ?", now).
		Order("end_time asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- outcome tokens ---------------------------------------------------------

func (s *Store) InsertTokenMetasTx(ctx context.Context, tx *gorm.DB, items []models.TokenMeta) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) GetTokenMeta(ctx context.Context, tokenID uint64) (*models.TokenMeta, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TokenMeta
	err := s.db.WithContext(ctx).First(&item, "id = ?", tokenID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTokenMetasByMarket(ctx context.Context, marketID uint64) ([]models.TokenMeta, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TokenMeta
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetBalance(ctx context.Context, tokenID uint64, owner string) (uint64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var item models.TokenBalance
	err := s.db.WithContext(ctx).
		First(&item, "token_id = ? AND owner = ?", tokenID, owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.Amount, nil
}

func (s *Store) ListBalances(ctx context.Context, tokenID uint64) ([]models.TokenBalance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TokenBalance
	err := s.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("owner asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AddBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) error {
	now := time.Now().UTC()
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}, {Name: "owner"}},
		DoUpdates: clause.Assignments(map[string]any{
			"amount":     gorm.Expr("token_balances.amount + ?", delta),
			"updated_at": now,
		}),
	}).Create(&models.TokenBalance{
		TokenID:   tokenID,
		Owner:     owner,
		Amount:    delta,
		UpdatedAt: now,
	}).Error
}

func (s *Store) SubBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.TokenBalance{}).
		Where("token_id = ? AND owner = ? AND amount >= ?", tokenID, owner, delta).
		Updates(map[string]any{
			"amount":     gorm.Expr("amount - ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) GetSupply(ctx context.Context, tokenID uint64) (uint64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var item models.TokenSupply
	err := s.db.WithContext(ctx).First(&item, "token_id = ?", tokenID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.Total, nil
}

func (s *Store) AddSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) error {
	now := time.Now().UTC()
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total":      gorm.Expr("token_supplies.total + ?", delta),
			"updated_at": now,
		}),
	}).Create(&models.TokenSupply{
		TokenID:   tokenID,
		Total:     delta,
		UpdatedAt: now,
	}).Error
}

func (s *Store) SubSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.TokenSupply{}).
		Where("token_id = ? AND total >= ?", tokenID, delta).
		Updates(map[string]any{
			"total":      gorm.Expr("total - ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// --- collateral accounts ----------------------------------------------------

func (s *Store) GetCollateralAccount(ctx context.Context, principal string) (*models.CollateralAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CollateralAccount
	err := s.db.WithContext(ctx).First(&item, "principal = ?", principal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) AddCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error {
	now := time.Now().UTC()
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "principal"}},
		DoUpdates: clause.Assignments(map[string]any{
			"available":  gorm.Expr("collateral_accounts.available + ?", amount),
			"updated_at": now,
		}),
	}).Create(&models.CollateralAccount{
		Principal: principal,
		Available: amount,
		UpdatedAt: now,
	}).Error
}

func (s *Store) SubCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.CollateralAccount{}).
		Where("principal = ? AND available >= ?", principal, amount).
		Updates(map[string]any{
			"available":  gorm.Expr("available - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// --- history ----------------------------------------------------------------

func (s *Store) InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func tradeQuery(db *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	query := db.Model(&models.Trade{})
	if params.MarketID != nil {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	if params.Buyer != nil && *params.Buyer != "" {
		query = query.Where("buyer = ?", *params.Buyer)
	}
	return query
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trade
	err := tradeQuery(s.db.WithContext(ctx), params).
		Order("id desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := tradeQuery(s.db.WithContext(ctx), params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) InsertClaimTx(ctx context.Context, tx *gorm.DB, item *models.Claim) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListClaims(ctx context.Context, params repository.ListClaimsParams) ([]models.Claim, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Claim{})
	if params.MarketID != nil {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	if params.Claimant != nil && *params.Claimant != "" {
		query = query.Where("claimant = ?", *params.Claimant)
	}
	var items []models.Claim
	err := query.
		Order("id desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertEngineEventTx(ctx context.Context, tx *gorm.DB, item *models.EngineEvent) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListEngineEvents(ctx context.Context, params repository.ListEventsParams) ([]models.EngineEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.EngineEvent{})
	if params.Kind != nil && *params.Kind != "" {
		query = query.Where("kind = ?", *params.Kind)
	}
	if params.MarketID != nil {
		query = query.Where("market_id = ?", *params.MarketID)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	var items []models.EngineEvent
	err := query.
		Order("id desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteEngineEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.EngineEvent{})
	return res.RowsAffected, res.Error
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
