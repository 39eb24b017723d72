package models

import "time"

// CollateralAccount is the engine-side balance of the fungible collateral
// asset, in micro units. Buys debit it, claims credit it back.
type CollateralAccount struct {
	Principal string    `gorm:"primaryKey;type:text"`
	Available uint64    `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CollateralAccount) TableName() string {
	return "collateral_accounts"
}
