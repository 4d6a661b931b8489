package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// InsertBlock stores one block row.
func (q *queries) InsertBlock(ctx context.Context, block *model.Block) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("insert_block", err, started)
	}()

	if err := q.db.WithContext(ctx).Create(block).Error; err != nil {
		return wrapErr(fmt.Sprintf("insert block %s", block.Hash), err)
	}
	return nil
}

// DeleteBlock removes the block row with the given hash.
func (q *queries) DeleteBlock(ctx context.Context, hash string) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("delete_block", err, started)
	}()

	res := q.db.WithContext(ctx).Where("hash = ?", hash).Delete(&model.Block{})
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("delete block %s", hash), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete block %s: %w", hash, store.ErrNotFound)
	}
	return nil
}

// SetNextHash records or clears the child pointer of the block with the
// given hash.
func (q *queries) SetNextHash(ctx context.Context, hash string, next *string) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("set_next_hash", err, started)
	}()

	res := q.db.WithContext(ctx).
		Model(&model.Block{}).
		Where("hash = ?", hash).
		Update("next_hash", next)
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("set next hash of %s", hash), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set next hash of %s: %w", hash, store.ErrNotFound)
	}
	return nil
}

// BlockByHash returns the block with the given hash.
func (q *queries) BlockByHash(ctx context.Context, hash string) (block *model.Block, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("block_by_hash", err, started)
	}()

	var row model.Block
	if err := q.db.WithContext(ctx).Where("hash = ?", hash).First(&row).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("block %s", hash), err)
	}
	return &row, nil
}

// BlockByHeight returns the current block at the given height.
func (q *queries) BlockByHeight(ctx context.Context, height uint64) (block *model.Block, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("block_by_height", err, started)
	}()

	var row model.Block
	if err := q.db.WithContext(ctx).Where("height = ?", height).First(&row).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("block at height %d", height), err)
	}
	return &row, nil
}

// BestBlock returns the highest indexed block.
func (q *queries) BestBlock(ctx context.Context) (block *model.Block, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("best_block", err, started)
	}()

	var row model.Block
	if err := q.db.WithContext(ctx).Order("height DESC").First(&row).Error; err != nil {
		return nil, wrapErr("best block", err)
	}
	return &row, nil
}

// LatestBlocks returns blocks in descending height order.
func (q *queries) LatestBlocks(ctx context.Context, limit, offset int) (blocks []model.Block, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("latest_blocks", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Order("height DESC").
		Limit(limit).
		Offset(offset).
		Find(&blocks).Error; err != nil {
		return nil, wrapErr("latest blocks", err)
	}
	return blocks, nil
}

// BlocksInRange returns blocks with fromHeight <= height <= toHeight in
// ascending height order.
func (q *queries) BlocksInRange(ctx context.Context, fromHeight, toHeight uint64) (blocks []model.Block, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("blocks_in_range", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("height BETWEEN ? AND ?", fromHeight, toHeight).
		Order("height ASC").
		Find(&blocks).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("blocks %d..%d", fromHeight, toHeight), err)
	}
	return blocks, nil
}

// BlockCount returns the number of indexed blocks.
func (q *queries) BlockCount(ctx context.Context) (count int64, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("block_count", err, started)
	}()

	if err := q.db.WithContext(ctx).Model(&model.Block{}).Count(&count).Error; err != nil {
		return 0, wrapErr("block count", err)
	}
	return count, nil
}
