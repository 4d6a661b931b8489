package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// InsertTransaction stores one transaction row, confirmed or unconfirmed.
func (q *queries) InsertTransaction(ctx context.Context, tx *model.Transaction) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("insert_transaction", err, started)
	}()

	if err := q.db.WithContext(ctx).Create(tx).Error; err != nil {
		return wrapErr(fmt.Sprintf("insert transaction %s", tx.TxID), err)
	}
	return nil
}

// PromoteTransaction fills the block reference of a row inserted from the
// mempool, keeping its identity instead of duplicating it.
func (q *queries) PromoteTransaction(ctx context.Context, txid string, blockHash string, blockHeight uint64, fee *uint64) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("promote_transaction", err, started)
	}()

	res := q.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("txid = ? AND block_hash IS NULL", txid).
		Updates(map[string]interface{}{
			"block_hash":   blockHash,
			"block_height": blockHeight,
			"fee":          fee,
		})
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("promote transaction %s", txid), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("promote transaction %s: not unconfirmed: %w", txid, store.ErrConflict)
	}
	return nil
}

// DeleteTransaction removes one transaction row by primary key.
func (q *queries) DeleteTransaction(ctx context.Context, transactionID uint) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("delete_transaction", err, started)
	}()

	res := q.db.WithContext(ctx).Delete(&model.Transaction{}, transactionID)
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("delete transaction %d", transactionID), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete transaction %d: %w", transactionID, store.ErrNotFound)
	}
	return nil
}

// DeleteUnconfirmedTransaction removes a mempool-only row by txid.
func (q *queries) DeleteUnconfirmedTransaction(ctx context.Context, txid string) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("delete_unconfirmed_transaction", err, started)
	}()

	res := q.db.WithContext(ctx).
		Where("txid = ? AND block_hash IS NULL", txid).
		Delete(&model.Transaction{})
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("delete unconfirmed transaction %s", txid), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete unconfirmed transaction %s: %w", txid, store.ErrNotFound)
	}
	return nil
}

// TransactionByTxID returns the transaction with the given txid.
func (q *queries) TransactionByTxID(ctx context.Context, txid string) (tx *model.Transaction, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("transaction_by_txid", err, started)
	}()

	var row model.Transaction
	if err := q.db.WithContext(ctx).Where("txid = ?", txid).First(&row).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("transaction %s", txid), err)
	}
	return &row, nil
}

// TransactionsByBlockHash returns a block's transactions in the order they
// were applied.
func (q *queries) TransactionsByBlockHash(ctx context.Context, hash string) (txs []model.Transaction, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("transactions_by_block_hash", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("block_hash = ?", hash).
		Order("id ASC").
		Find(&txs).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("transactions of block %s", hash), err)
	}
	return txs, nil
}

// LatestTransactions returns the most recently indexed transactions.
func (q *queries) LatestTransactions(ctx context.Context, limit, offset int) (txs []model.Transaction, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("latest_transactions", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error; err != nil {
		return nil, wrapErr("latest transactions", err)
	}
	return txs, nil
}

// TransactionCount returns the number of indexed transactions.
func (q *queries) TransactionCount(ctx context.Context) (count int64, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("transaction_count", err, started)
	}()

	if err := q.db.WithContext(ctx).Model(&model.Transaction{}).Count(&count).Error; err != nil {
		return 0, wrapErr("transaction count", err)
	}
	return count, nil
}

// UnconfirmedTxIDs returns the txids of rows without a block reference.
func (q *queries) UnconfirmedTxIDs(ctx context.Context) (txids []string, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("unconfirmed_txids", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("block_hash IS NULL").
		Order("id ASC").
		Pluck("txid", &txids).Error; err != nil {
		return nil, wrapErr("unconfirmed txids", err)
	}
	return txids, nil
}
