package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the append-only record of one successful buy. QYesAfter/QNoAfter
// snapshot the accumulators so the history can be replayed for charting.
type Trade struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	MarketID     uint64          `gorm:"not null;index"`
	TokenID      uint64          `gorm:"not null;index"`
	Buyer        string          `gorm:"type:text;not null;index"`
	Outcome      string          `gorm:"type:text;not null"`
	CollateralIn uint64          `gorm:"not null"`
	SharesOut    uint64          `gorm:"not null"`
	QYesAfter    uint64          `gorm:"not null"`
	QNoAfter     uint64          `gorm:"not null"`
	YesPrice     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	CreatedAt    time.Time       `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Trade) TableName() string {
	return "trades"
}
