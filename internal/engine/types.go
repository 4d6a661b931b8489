package engine

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// ChainSource is the remote node view the engine syncs from.
	ChainSource interface {
		Tip(ctx context.Context) (chain.Tip, error)
		BlockByHash(ctx context.Context, hash string) (*chain.Block, error)
		HashAtHeight(ctx context.Context, height uint64) (string, error)
		RawTransaction(ctx context.Context, txid string) (*chain.Transaction, error)
		MempoolTxIDs(ctx context.Context) ([]string, error)
	}

	// Metrics receives the engine's per-block and per-cycle observations.
	Metrics interface {
		ObserveApply(err error, started time.Time)
		ObserveRevoke(err error, started time.Time)
		ObserveReorg(depth int)
		ObserveMempoolReconcile(err error, size int, started time.Time)
		SetBestHeight(height uint64)
	}
)

// State is the engine's externally visible phase.
type State string

const (
	StateIdle               State = "idle"
	StateCatchingUp         State = "catching_up"
	StateReconcilingMempool State = "reconciling_mempool"
	StateError              State = "error"
)

// Status is a point-in-time snapshot of the engine and the index checkpoint.
// RemoteHeight is the tip height seen by the most recent cycle, so the
// derived fields lag the remote by at most one sync interval.
type Status struct {
	State        State     `json:"state"`
	BestHeight   uint64    `json:"best_height"`
	BestHash     string    `json:"best_hash"`
	RemoteHeight uint64    `json:"remote_height"`
	BlocksBehind uint64    `json:"blocks_behind"`
	Progress     float64   `json:"sync_progress"`
	Synced       bool      `json:"synced"`
	InProgress   bool      `json:"in_progress"`
	LastError    string    `json:"last_error,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}
