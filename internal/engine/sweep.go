package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"predictionmarket/internal/models"
)

// SweepExpired journals a market_expired event for each unresolved market
// past its end time so resolvers and subscribers notice without polling.
// Already-announced ids are tracked in memory; after a restart a market may
// be announced once more, consumers dedupe on market id.
func (e *Engine) SweepExpired(ctx context.Context) error {
	limit := e.ExpirySweepSize
	if limit <= 0 {
		limit = 200
	}
	now := e.now()
	markets, err := e.Repo.ListExpiredUnresolved(ctx, now, limit)
	if err != nil {
		return err
	}

	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	if e.announced == nil {
		e.announced = make(map[uint64]struct{})
	}

	for _, market := range markets {
		if _, seen := e.announced[market.ID]; seen {
			continue
		}
		marketID := market.ID
		payload := map[string]any{"market_id": marketID, "end_time": market.EndTime}
		err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
			return e.Repo.InsertEngineEventTx(ctx, tx, event(models.EventMarketExpired, &marketID, "", payload))
		})
		if err != nil {
			return err
		}
		e.announced[marketID] = struct{}{}
		e.Logger.Info("market expired awaiting resolution",
			zap.Uint64("market_id", marketID), zap.Time("end_time", market.EndTime))
		e.publish(models.EventMarketExpired, payload)
	}
	return nil
}

// PruneEvents deletes journal rows older than the retention window.
func (e *Engine) PruneEvents(ctx context.Context) error {
	retention := e.EventRetention
	if retention <= 0 {
		retention = 720 * time.Hour
	}
	cutoff := e.now().Add(-retention)
	deleted, err := e.Repo.DeleteEngineEventsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		e.Logger.Info("pruned engine events", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return nil
}
