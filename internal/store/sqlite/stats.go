package sqlite

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
)

// Stats returns row counts across the index.
func (q *queries) Stats(ctx context.Context) (stats *model.IndexStats, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("stats", err, started)
	}()

	db := q.db.WithContext(ctx)
	out := model.IndexStats{}

	if err := db.Model(&model.Block{}).Count(&out.Blocks).Error; err != nil {
		return nil, wrapErr("count blocks", err)
	}
	if err := db.Model(&model.Transaction{}).Count(&out.Transactions).Error; err != nil {
		return nil, wrapErr("count transactions", err)
	}
	if err := db.Model(&model.TransactionOutput{}).Count(&out.Outputs).Error; err != nil {
		return nil, wrapErr("count outputs", err)
	}
	if err := db.Model(&model.Address{}).Count(&out.Addresses).Error; err != nil {
		return nil, wrapErr("count addresses", err)
	}
	if err := db.Model(&model.Transaction{}).Where("block_hash IS NULL").Count(&out.Unconfirmed).Error; err != nil {
		return nil, wrapErr("count unconfirmed", err)
	}
	return &out, nil
}
