package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"predictionmarket/internal/models"
)

// TxRunner wraps one mutating operation in a database transaction. The fn
// either fully commits or fully rolls back; callers never see partial writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type StateStore interface {
	GetEngineState(ctx context.Context) (*models.EngineState, error)
	GetEngineStateTx(ctx context.Context, tx *gorm.DB) (*models.EngineState, error)
	InsertEngineStateTx(ctx context.Context, tx *gorm.DB, item *models.EngineState) error
	UpdateEngineStateTx(ctx context.Context, tx *gorm.DB, item *models.EngineState) error
}

type RoleStore interface {
	GetRole(ctx context.Context, principal string) (*models.Role, error)
	UpsertRoleTx(ctx context.Context, tx *gorm.DB, item *models.Role) error
	ListRoles(ctx context.Context) ([]models.Role, error)
}

type ListMarketsParams struct {
	Limit  int
	Offset int
	// Resolved filters on the persisted flag; time-derived states are
	// filtered by the caller, which owns the clock.
	Resolved *bool
}

type MarketStore interface {
	GetMarket(ctx context.Context, id uint64) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context, params ListMarketsParams) (int64, error)
	InsertMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error
	SaveMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error
	ListExpiredUnresolved(ctx context.Context, now time.Time, limit int) ([]models.Market, error)
}

type TokenStore interface {
	InsertTokenMetasTx(ctx context.Context, tx *gorm.DB, items []models.TokenMeta) error
	GetTokenMeta(ctx context.Context, tokenID uint64) (*models.TokenMeta, error)
	ListTokenMetasByMarket(ctx context.Context, marketID uint64) ([]models.TokenMeta, error)

	GetBalance(ctx context.Context, tokenID uint64, owner string) (uint64, error)
	ListBalances(ctx context.Context, tokenID uint64) ([]models.TokenBalance, error)
	// AddBalanceTx upserts, incrementing any existing row.
	AddBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) error
	// SubBalanceTx decrements only when the current amount covers delta;
	// returns false without mutating otherwise.
	SubBalanceTx(ctx context.Context, tx *gorm.DB, tokenID uint64, owner string, delta uint64) (bool, error)

	GetSupply(ctx context.Context, tokenID uint64) (uint64, error)
	AddSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) error
	SubSupplyTx(ctx context.Context, tx *gorm.DB, tokenID uint64, delta uint64) (bool, error)
}

type CollateralStore interface {
	GetCollateralAccount(ctx context.Context, principal string) (*models.CollateralAccount, error)
	AddCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) error
	SubCollateralTx(ctx context.Context, tx *gorm.DB, principal string, amount uint64) (bool, error)
}

type ListTradesParams struct {
	Limit    int
	Offset   int
	MarketID *uint64
	Buyer    *string
}

type ListClaimsParams struct {
	Limit    int
	Offset   int
	MarketID *uint64
	Claimant *string
}

type ListEventsParams struct {
	Limit    int
	Offset   int
	Kind     *string
	MarketID *uint64
	Since    *time.Time
}

type HistoryStore interface {
	InsertTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
	InsertClaimTx(ctx context.Context, tx *gorm.DB, item *models.Claim) error
	ListClaims(ctx context.Context, params ListClaimsParams) ([]models.Claim, error)
	InsertEngineEventTx(ctx context.Context, tx *gorm.DB, item *models.EngineEvent) error
	ListEngineEvents(ctx context.Context, params ListEventsParams) ([]models.EngineEvent, error)
	DeleteEngineEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// AccessStore is what the access controller needs.
type AccessStore interface {
	TxRunner
	StateStore
	RoleStore
}

// LedgerStore is what the outcome-token ledger needs.
type LedgerStore interface {
	TxRunner
	TokenStore
}

// VaultStore backs the collateral account vault.
type VaultStore interface {
	TxRunner
	CollateralStore
}

// Repository is the full store the market engine orchestrates.
type Repository interface {
	TxRunner
	StateStore
	RoleStore
	MarketStore
	TokenStore
	CollateralStore
	HistoryStore
}
