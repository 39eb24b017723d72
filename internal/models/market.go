package models

import "time"

// Market is one binary question. Amount columns are integer micro units
// (6 decimals) of the collateral token.
type Market struct {
	ID          uint64 `gorm:"primaryKey"`
	Question    string `gorm:"type:text;not null"`
	MetadataRef string `gorm:"type:text;not null"`

	// LiquidityParam is the curve constant b, immutable after creation.
	LiquidityParam uint64 `gorm:"not null"`

	QYes uint64 `gorm:"not null;default:0"`
	QNo  uint64 `gorm:"not null;default:0"`

	CollateralCollected uint64 `gorm:"not null;default:0"`
	CollateralReleased  uint64 `gorm:"not null;default:0"`

	StartTime time.Time `gorm:"type:timestamptz;not null"`
	EndTime   time.Time `gorm:"type:timestamptz;not null;index"`

	Resolved   bool       `gorm:"not null;default:false;index"`
	YesWon     bool       `gorm:"not null;default:false"`
	ResolvedAt *time.Time `gorm:"type:timestamptz"`
	ResolvedBy *string    `gorm:"type:text"`

	CreatedBy string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}

// Market lifecycle states, derived from the clock and the resolved flag.
const (
	MarketStatusPending  = "pending"
	MarketStatusOpen     = "open"
	MarketStatusExpired  = "expired"
	MarketStatusResolved = "resolved"
)

// Status derives the lifecycle state at the supplied instant.
func (m Market) Status(now time.Time) string {
	if m.Resolved {
		return MarketStatusResolved
	}
	if now.Before(m.StartTime) {
		return MarketStatusPending
	}
	if now.Before(m.EndTime) {
		return MarketStatusOpen
	}
	return MarketStatusExpired
}
