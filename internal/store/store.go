// Package store defines the transactional contract of the local chain index.
package store

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
)

// Reader is the query surface available both directly on a Store and inside
// an open transaction. Reads outside a transaction observe only committed
// state.
type Reader interface {
	BlockByHash(ctx context.Context, hash string) (*model.Block, error)
	BlockByHeight(ctx context.Context, height uint64) (*model.Block, error)
	BestBlock(ctx context.Context) (*model.Block, error)
	LatestBlocks(ctx context.Context, limit, offset int) ([]model.Block, error)
	BlocksInRange(ctx context.Context, fromHeight, toHeight uint64) ([]model.Block, error)
	BlockCount(ctx context.Context) (int64, error)

	TransactionByTxID(ctx context.Context, txid string) (*model.Transaction, error)
	TransactionsByBlockHash(ctx context.Context, hash string) ([]model.Transaction, error)
	LatestTransactions(ctx context.Context, limit, offset int) ([]model.Transaction, error)
	TransactionCount(ctx context.Context) (int64, error)
	UnconfirmedTxIDs(ctx context.Context) ([]string, error)

	InputsByTransactionID(ctx context.Context, transactionID uint) ([]model.TransactionInput, error)
	OutputsByTransactionID(ctx context.Context, transactionID uint) ([]model.TransactionOutput, error)
	OutputByRef(ctx context.Context, txid string, n uint32) (*model.TransactionOutput, error)
	OutputsByAddress(ctx context.Context, address string, limit, offset int) ([]model.TransactionOutput, error)

	AddressByAddr(ctx context.Context, address string) (*model.Address, error)
	AddressBalanceDrift(ctx context.Context, limit int) ([]model.BalanceDrift, error)

	SyncState(ctx context.Context) (*model.SyncState, error)
	Stats(ctx context.Context) (*model.IndexStats, error)
}

// Writer mutates index rows. Only transactions expose it, so every write
// happens inside an explicit begin/commit scope and readers never observe a
// half-applied block.
type Writer interface {
	InsertBlock(ctx context.Context, block *model.Block) error
	DeleteBlock(ctx context.Context, hash string) error
	SetNextHash(ctx context.Context, hash string, next *string) error

	InsertTransaction(ctx context.Context, tx *model.Transaction) error
	PromoteTransaction(ctx context.Context, txid string, blockHash string, blockHeight uint64, fee *uint64) error
	DeleteTransaction(ctx context.Context, transactionID uint) error
	DeleteUnconfirmedTransaction(ctx context.Context, txid string) error

	InsertInputs(ctx context.Context, inputs []model.TransactionInput) error
	InsertOutputs(ctx context.Context, outputs []model.TransactionOutput) error
	DeleteInputs(ctx context.Context, transactionID uint) error
	DeleteOutputs(ctx context.Context, transactionID uint) error

	// SpendOutput marks the referenced output spent and returns it for
	// aggregate bookkeeping. It fails with ErrConflict if the output is
	// already spent.
	SpendOutput(ctx context.Context, txid string, n uint32, spenderTxID string, spenderVin uint32) (*model.TransactionOutput, error)
	// UnspendOutput clears the spent mark and spender reference, returning
	// the output for aggregate bookkeeping.
	UnspendOutput(ctx context.Context, txid string, n uint32) (*model.TransactionOutput, error)

	// Address rows are insert-or-update only; nothing deletes them. A row
	// whose crediting blocks have all been revoked stays at zero.
	CreditAddress(ctx context.Context, address string, value uint64, height uint64) error
	DebitAddress(ctx context.Context, address string, value uint64) error
	UncreditAddress(ctx context.Context, address string, value uint64) error
	UndebitAddress(ctx context.Context, address string, value uint64) error
	RefreshAddressActivity(ctx context.Context, address string) error

	UpdateSyncState(ctx context.Context, height uint64, hash string) error
}

// Tx is one atomic unit of index work. Either Commit or Rollback must be
// called exactly once.
type Tx interface {
	Reader
	Writer
	Commit() error
	Rollback() error
}

// Store is the index database handle.
type Store interface {
	Reader

	Begin(ctx context.Context) (Tx, error)

	// AcquireSync atomically claims the single-writer flag on the sync
	// state row. It returns false without error when another cycle holds
	// the flag.
	AcquireSync(ctx context.Context) (bool, error)
	// ReleaseSync clears the single-writer flag.
	ReleaseSync(ctx context.Context) error

	Close() error
}
