package models

import (
	"time"

	"gorm.io/datatypes"
)

// EngineEvent is the replayable journal row written alongside every state
// mutation; external indexers consume it through the stream or this table.
type EngineEvent struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Kind      string         `gorm:"type:text;not null;index"`
	MarketID  *uint64        `gorm:"index"`
	Principal *string        `gorm:"type:text"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (EngineEvent) TableName() string {
	return "engine_events"
}

const (
	EventEngineInitialized = "engine_initialized"
	EventRoleChanged       = "role_changed"
	EventMarketCreated     = "market_created"
	EventTrade             = "trade"
	EventMarketResolved    = "market_resolved"
	EventClaimed           = "claimed"
	EventTransfer          = "transfer"
	EventMarketExpired     = "market_expired"
)
