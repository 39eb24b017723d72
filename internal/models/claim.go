package models

import "time"

// Claim records one settlement payout: the full winning balance burned and
// an equal amount of collateral released.
type Claim struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	MarketID      uint64    `gorm:"not null;index"`
	TokenID       uint64    `gorm:"not null"`
	Claimant      string    `gorm:"type:text;not null;index"`
	SharesBurned  uint64    `gorm:"not null"`
	CollateralOut uint64    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Claim) TableName() string {
	return "claims"
}
