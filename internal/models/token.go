package models

import "time"

// TokenMeta is the immutable name/symbol record for one outcome token,
// written once when its market is created.
type TokenMeta struct {
	ID        uint64    `gorm:"primaryKey"`
	MarketID  uint64    `gorm:"not null;index"`
	Outcome   string    `gorm:"type:text;not null"`
	Name      string    `gorm:"type:text;not null"`
	Symbol    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TokenMeta) TableName() string {
	return "token_metas"
}

type TokenBalance struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TokenID   uint64    `gorm:"not null;uniqueIndex:idx_token_owner"`
	Owner     string    `gorm:"type:text;not null;uniqueIndex:idx_token_owner"`
	Amount    uint64    `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TokenBalance) TableName() string {
	return "token_balances"
}

type TokenSupply struct {
	TokenID   uint64    `gorm:"primaryKey"`
	Total     uint64    `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TokenSupply) TableName() string {
	return "token_supplies"
}
