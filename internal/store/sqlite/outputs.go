package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// InsertInputs stores the input rows of one transaction.
func (q *queries) InsertInputs(ctx context.Context, inputs []model.TransactionInput) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("insert_inputs", err, started)
	}()

	if len(inputs) == 0 {
		return nil
	}
	if err := q.db.WithContext(ctx).Create(&inputs).Error; err != nil {
		return wrapErr("insert inputs", err)
	}
	return nil
}

// InsertOutputs stores the output rows of one transaction.
func (q *queries) InsertOutputs(ctx context.Context, outputs []model.TransactionOutput) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("insert_outputs", err, started)
	}()

	if len(outputs) == 0 {
		return nil
	}
	if err := q.db.WithContext(ctx).Create(&outputs).Error; err != nil {
		return wrapErr("insert outputs", err)
	}
	return nil
}

// DeleteInputs removes all input rows of one transaction.
func (q *queries) DeleteInputs(ctx context.Context, transactionID uint) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("delete_inputs", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&model.TransactionInput{}).Error; err != nil {
		return wrapErr(fmt.Sprintf("delete inputs of transaction %d", transactionID), err)
	}
	return nil
}

// DeleteOutputs removes all output rows of one transaction.
func (q *queries) DeleteOutputs(ctx context.Context, transactionID uint) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("delete_outputs", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&model.TransactionOutput{}).Error; err != nil {
		return wrapErr(fmt.Sprintf("delete outputs of transaction %d", transactionID), err)
	}
	return nil
}

// outputByRef resolves an output by its creating txid and index.
func (q *queries) outputByRef(ctx context.Context, txid string, n uint32) (*model.TransactionOutput, error) {
	var row model.TransactionOutput
	err := q.db.WithContext(ctx).
		Select("transaction_outputs.*").
		Joins("JOIN transactions ON transactions.id = transaction_outputs.transaction_id").
		Where("transactions.txid = ? AND transaction_outputs.n = ?", txid, n).
		First(&row).Error
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("output %s:%d", txid, n), err)
	}
	return &row, nil
}

// OutputByRef returns the output created by txid at index n.
func (q *queries) OutputByRef(ctx context.Context, txid string, n uint32) (output *model.TransactionOutput, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("output_by_ref", err, started)
	}()

	return q.outputByRef(ctx, txid, n)
}

// OutputsByTransactionID returns a transaction's outputs ordered by index.
func (q *queries) OutputsByTransactionID(ctx context.Context, transactionID uint) (outputs []model.TransactionOutput, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("outputs_by_transaction_id", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("n ASC").
		Find(&outputs).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("outputs of transaction %d", transactionID), err)
	}
	return outputs, nil
}

// InputsByTransactionID returns a transaction's inputs in applied order.
func (q *queries) InputsByTransactionID(ctx context.Context, transactionID uint) (inputs []model.TransactionInput, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("inputs_by_transaction_id", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&inputs).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("inputs of transaction %d", transactionID), err)
	}
	return inputs, nil
}

// OutputsByAddress returns outputs owned by an address, newest first.
func (q *queries) OutputsByAddress(ctx context.Context, address string, limit, offset int) (outputs []model.TransactionOutput, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("outputs_by_address", err, started)
	}()

	if err := q.db.WithContext(ctx).
		Where("address = ?", address).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&outputs).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("outputs of address %s", address), err)
	}
	return outputs, nil
}

// SpendOutput marks the referenced output spent. The update is conditioned
// on the row still being unspent, so a double spend surfaces as a conflict
// no matter how the callers interleaved.
func (q *queries) SpendOutput(ctx context.Context, txid string, n uint32, spenderTxID string, spenderVin uint32) (output *model.TransactionOutput, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("spend_output", err, started)
	}()

	row, err := q.outputByRef(ctx, txid, n)
	if err != nil {
		return nil, err
	}
	if row.Spent {
		return nil, fmt.Errorf("output %s:%d already spent by %s: %w", txid, n, derefString(row.SpentByTxID), store.ErrConflict)
	}

	res := q.db.WithContext(ctx).
		Model(&model.TransactionOutput{}).
		Where("id = ? AND spent = ?", row.ID, false).
		Updates(map[string]interface{}{
			"spent":         true,
			"spent_by_txid": spenderTxID,
			"spent_by_vin":  spenderVin,
		})
	if res.Error != nil {
		return nil, wrapErr(fmt.Sprintf("spend output %s:%d", txid, n), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("spend output %s:%d: %w", txid, n, store.ErrConflict)
	}

	row.Spent = true
	row.SpentByTxID = &spenderTxID
	row.SpentByVin = &spenderVin
	return row, nil
}

// UnspendOutput clears the spent mark and spender reference of the
// referenced output.
func (q *queries) UnspendOutput(ctx context.Context, txid string, n uint32) (output *model.TransactionOutput, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("unspend_output", err, started)
	}()

	row, err := q.outputByRef(ctx, txid, n)
	if err != nil {
		return nil, err
	}
	if !row.Spent {
		return nil, fmt.Errorf("output %s:%d is not spent: %w", txid, n, store.ErrConflict)
	}

	res := q.db.WithContext(ctx).
		Model(&model.TransactionOutput{}).
		Where("id = ? AND spent = ?", row.ID, true).
		Updates(map[string]interface{}{
			"spent":         false,
			"spent_by_txid": nil,
			"spent_by_vin":  nil,
		})
	if res.Error != nil {
		return nil, wrapErr(fmt.Sprintf("unspend output %s:%d", txid, n), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("unspend output %s:%d: %w", txid, n, store.ErrConflict)
	}

	row.Spent = false
	row.SpentByTxID = nil
	row.SpentByVin = nil
	return row, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
