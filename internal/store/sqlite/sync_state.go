package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// SyncState returns the singleton sync checkpoint row.
func (q *queries) SyncState(ctx context.Context) (state *model.SyncState, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("sync_state", err, started)
	}()

	var row model.SyncState
	if err := q.db.WithContext(ctx).Where("id = ?", model.SyncStateID).First(&row).Error; err != nil {
		return nil, wrapErr("sync state", err)
	}
	return &row, nil
}

// UpdateSyncState checkpoints the local best height and hash.
func (q *queries) UpdateSyncState(ctx context.Context, height uint64, hash string) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("update_sync_state", err, started)
	}()

	res := q.db.WithContext(ctx).
		Model(&model.SyncState{}).
		Where("id = ?", model.SyncStateID).
		Updates(map[string]interface{}{
			"best_height":    height,
			"best_hash":      hash,
			"last_synced_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return wrapErr("update sync state", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update sync state: %w", store.ErrNotFound)
	}
	return nil
}
