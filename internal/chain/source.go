// Package chain defines the read contract against the remote node and the
// decoded shapes the rest of the indexer works with.
package chain

import "context"

// Source is the remote chain oracle. Implementations must return fully
// decoded values or an error from this package's taxonomy, never partially
// decoded results.
type Source interface {
	// Tip returns the height and hash of the remote best block.
	Tip(ctx context.Context) (Tip, error)

	// BlockByHash returns the block with full transaction detail.
	BlockByHash(ctx context.Context, hash string) (*Block, error)

	// HashAtHeight returns the hash of the block at the given height on the
	// remote's current best chain.
	HashAtHeight(ctx context.Context, height uint64) (string, error)

	// RawTransaction returns a single decoded transaction.
	RawTransaction(ctx context.Context, txid string) (*Transaction, error)

	// MempoolTxIDs returns the txids currently in the remote mempool.
	MempoolTxIDs(ctx context.Context) ([]string, error)
}
