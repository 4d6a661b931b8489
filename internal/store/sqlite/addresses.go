package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
	"github.com/goodnatureofminers/blockinsight7000-indexer/pkg/safe"
)

// CreditAddress adds a newly indexed output's value to the owner aggregate,
// creating the row on first appearance.
func (q *queries) CreditAddress(ctx context.Context, address string, value uint64, height uint64) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("credit_address", err, started)
	}()

	amount, err := safe.Int64(value)
	if err != nil {
		return fmt.Errorf("credit %s: %w", address, err)
	}

	res := q.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", amount),
			"tx_count":        gorm.Expr("tx_count + 1"),
			"last_seen_block": height,
		})
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("credit address %s", address), res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	row := model.Address{
		Address:        address,
		Balance:        amount,
		TxCount:        1,
		FirstSeenBlock: height,
		LastSeenBlock:  height,
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapErr(fmt.Sprintf("create address %s", address), err)
	}
	return nil
}

// DebitAddress subtracts a spent output's value from the owner aggregate.
func (q *queries) DebitAddress(ctx context.Context, address string, value uint64) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("debit_address", err, started)
	}()

	amount, err := safe.Int64(value)
	if err != nil {
		return fmt.Errorf("debit %s: %w", address, err)
	}

	res := q.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("address = ?", address).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("debit address %s", address), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("debit address %s: %w", address, store.ErrNotFound)
	}
	return nil
}

// UncreditAddress reverses CreditAddress for a revoked output.
func (q *queries) UncreditAddress(ctx context.Context, address string, value uint64) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("uncredit_address", err, started)
	}()

	amount, err := safe.Int64(value)
	if err != nil {
		return fmt.Errorf("uncredit %s: %w", address, err)
	}

	res := q.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"balance":  gorm.Expr("balance - ?", amount),
			"tx_count": gorm.Expr("tx_count - 1"),
		})
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("uncredit address %s", address), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("uncredit address %s: %w", address, store.ErrNotFound)
	}
	return nil
}

// UndebitAddress reverses DebitAddress for a revoked spend.
func (q *queries) UndebitAddress(ctx context.Context, address string, value uint64) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("undebit_address", err, started)
	}()

	amount, err := safe.Int64(value)
	if err != nil {
		return fmt.Errorf("undebit %s: %w", address, err)
	}

	res := q.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("address = ?", address).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("undebit address %s", address), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("undebit address %s: %w", address, store.ErrNotFound)
	}
	return nil
}

// RefreshAddressActivity recomputes last_seen_block from the outputs still
// indexed for the address. Revoking a block can leave the stored value
// pointing at a height that no longer exists.
func (q *queries) RefreshAddressActivity(ctx context.Context, address string) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("refresh_address_activity", err, started)
	}()

	const query = `
UPDATE addresses
SET last_seen_block = COALESCE((
	SELECT MAX(transactions.block_height)
	FROM transaction_outputs
	JOIN transactions ON transactions.id = transaction_outputs.transaction_id
	WHERE transaction_outputs.address = addresses.address
	  AND transactions.block_height IS NOT NULL
), first_seen_block)
WHERE address = ?`

	res := q.db.WithContext(ctx).Exec(query, address)
	if res.Error != nil {
		return wrapErr(fmt.Sprintf("refresh address %s", address), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("refresh address %s: %w", address, store.ErrNotFound)
	}
	return nil
}

// AddressByAddr returns the aggregate row for an address.
func (q *queries) AddressByAddr(ctx context.Context, address string) (row *model.Address, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("address_by_addr", err, started)
	}()

	var found model.Address
	if err := q.db.WithContext(ctx).Where("address = ?", address).First(&found).Error; err != nil {
		return nil, wrapErr(fmt.Sprintf("address %s", address), err)
	}
	return &found, nil
}

// AddressBalanceDrift reports addresses whose stored balance disagrees with
// the sum of their unspent outputs.
func (q *queries) AddressBalanceDrift(ctx context.Context, limit int) (drifts []model.BalanceDrift, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("address_balance_drift", err, started)
	}()

	const query = `
SELECT addresses.address AS address,
       addresses.balance AS balance,
       COALESCE(SUM(CASE WHEN transaction_outputs.spent = 0 THEN transaction_outputs.value ELSE 0 END), 0) AS unspent_sum
FROM addresses
LEFT JOIN transaction_outputs ON transaction_outputs.address = addresses.address
GROUP BY addresses.address, addresses.balance
HAVING balance != unspent_sum
LIMIT ?`

	if err := q.db.WithContext(ctx).Raw(query, limit).Scan(&drifts).Error; err != nil {
		return nil, wrapErr("address balance drift", err)
	}
	return drifts, nil
}
