package transport

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/engine"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Syncer drives the sync pipeline and reports on its progress.
	Syncer interface {
		SyncOnce(ctx context.Context, maxBlocks uint64) error
		SyncFull(ctx context.Context, batchSize uint64) error
		ReconcileMempool(ctx context.Context) error
		Status(ctx context.Context) (*engine.Status, error)
		Stats(ctx context.Context) (*engine.Stats, error)
		ValidateIntegrity(ctx context.Context) (*engine.IntegrityReport, error)
	}
)
