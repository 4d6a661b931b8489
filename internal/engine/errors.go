package engine

import (
	"errors"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

var (
	// ErrAlreadyRunning signals that another cycle holds the writer flag.
	// Callers treat it as a skipped turn, not a failure.
	ErrAlreadyRunning = errors.New("sync already running")

	// ErrReorgTooDeep marks a divergence deeper than the configured walk
	// limit. The engine halts until an operator triggers a resync.
	ErrReorgTooDeep = errors.New("reorg exceeds maximum depth")
)

// isFatal reports whether a cycle error must halt the engine instead of
// being retried. Write conflicts mean the index no longer matches what the
// apply path expects, so retrying would only repeat the damage.
func isFatal(err error) bool {
	return errors.Is(err, ErrReorgTooDeep) || errors.Is(err, store.ErrConflict)
}
