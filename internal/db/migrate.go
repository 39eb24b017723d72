package db

import (
	"predictionmarket/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.EngineState{},
		&models.Role{},
		&models.Market{},
		&models.TokenMeta{},
		&models.TokenBalance{},
		&models.TokenSupply{},
		&models.CollateralAccount{},
		&models.Trade{},
		&models.Claim{},
		&models.EngineEvent{},
	)
}
