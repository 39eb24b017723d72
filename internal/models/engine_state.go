package models

import "time"

// EngineState is the singleton row holding one-shot initialization data and
// the monotonic market counter. ID is always 1.
type EngineState struct {
	ID              uint      `gorm:"primaryKey"`
	Owner           string    `gorm:"type:text;not null"`
	CollateralToken string    `gorm:"type:text;not null"`
	MarketCount     uint64    `gorm:"not null;default:0"`
	InitializedAt   time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (EngineState) TableName() string {
	return "engine_state"
}
