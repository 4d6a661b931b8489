// Package engine keeps the local index consistent with the remote chain: it
// applies new blocks, resolves reorganizations, and reconciles the mempool,
// one writer at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/clock"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// Config tunes the engine. Zero values fall back to package defaults, and a
// BlocksPerCycle of zero means a cycle runs all the way to the remote tip.
type Config struct {
	SyncInterval    time.Duration
	MempoolInterval time.Duration
	MaxReorgDepth   uint64
	BlocksPerCycle  uint64
	FetchWorkers    int
}

// Engine drives the index towards the remote chain. All writes flow through
// it, gated by the store's single-writer flag.
type Engine struct {
	source   ChainSource
	store    store.Store
	applier  *BlockApplier
	revoker  *BlockRevoker
	resolver *ReorgResolver
	metrics  Metrics
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error

	syncInterval   time.Duration
	blocksPerCycle uint64
	fetchWorkers   int
	mempoolEvery   *clock.Interval

	mu             sync.Mutex
	state          State
	halted         bool
	lastError      string
	remoteHeight   uint64
	blocksApplied  uint64
	blocksRevoked  uint64
	reorgsResolved uint64
	mempoolAdded   uint64
	mempoolRemoved uint64
	cycleErrors    uint64
}

func New(source ChainSource, st store.Store, m Metrics, logger *zap.Logger, cfg Config) (*Engine, error) {
	if source == nil {
		return nil, errors.New("chain source is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if m == nil {
		return nil, errors.New("engine metrics is required")
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.MempoolInterval <= 0 {
		cfg.MempoolInterval = defaultMempoolInterval
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = defaultFetchWorkers
	}

	return &Engine{
		source:         source,
		store:          st,
		applier:        NewBlockApplier(logger.Named("applier")),
		revoker:        NewBlockRevoker(logger.Named("revoker")),
		resolver:       NewReorgResolver(source, st, cfg.MaxReorgDepth, logger.Named("reorg")),
		metrics:        m,
		logger:         logger,
		sleep:          clock.SleepWithContext,
		syncInterval:   cfg.SyncInterval,
		blocksPerCycle: cfg.BlocksPerCycle,
		fetchWorkers:   cfg.FetchWorkers,
		mempoolEvery:   clock.NewInterval(cfg.MempoolInterval),
		state:          StateIdle,
	}, nil
}

// Run drives periodic sync cycles until the context ends. Mempool
// reconciliation shares the loop, so the two phases never interleave. A
// fatal cycle error parks the loop; only SyncOnce resumes it.
func (e *Engine) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.isHalted() {
			if err := e.sleep(ctx, e.syncInterval); err != nil {
				return err
			}
			continue
		}

		err := e.syncOnce(ctx, e.blocksPerCycle)
		switch {
		case err == nil:
			bo.Reset()
			e.maybeReconcileMempool(ctx)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, ErrAlreadyRunning):
			e.logger.Debug("writer flag held elsewhere; skipping cycle")
		case isFatal(err):
			e.logger.Error("sync halted until manual resync", zap.Error(err))
			continue
		case errors.Is(err, chain.ErrUnavailable):
			d := bo.NextBackOff()
			e.logger.Warn("source unavailable; backing off", zap.Error(err), zap.Duration("backoff", d))
			if sleepErr := e.sleep(ctx, d); sleepErr != nil {
				return sleepErr
			}
			continue
		default:
			e.logger.Error("sync cycle failed; retrying next tick", zap.Error(err))
		}

		if err := e.sleep(ctx, e.syncInterval); err != nil {
			return err
		}
	}
}

// SyncOnce runs one manually triggered sync cycle. It clears a fatal halt
// first: an operator asking for a resync is the recovery path.
func (e *Engine) SyncOnce(ctx context.Context, maxBlocks uint64) error {
	e.clearHalt()
	return e.syncOnce(ctx, maxBlocks)
}

// SyncFull runs catch-up cycles of batchSize blocks each until the index
// reaches the remote tip. The writer flag is released between batches, so
// reads and other triggers interleave at batch boundaries.
func (e *Engine) SyncFull(ctx context.Context, batchSize uint64) error {
	e.clearHalt()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.syncOnce(ctx, batchSize); err != nil {
			return err
		}
		state, err := e.store.SyncState(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		remote := e.remoteHeight
		e.mu.Unlock()
		if state.BestHash != "" && state.BestHeight >= remote {
			return nil
		}
	}
}

func (e *Engine) clearHalt() {
	e.mu.Lock()
	e.halted = false
	e.lastError = ""
	e.mu.Unlock()
}

func (e *Engine) syncOnce(ctx context.Context, maxBlocks uint64) error {
	ok, err := e.store.AcquireSync(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer e.releaseSync(ctx)

	e.setState(StateCatchingUp)
	err = e.syncCycle(ctx, maxBlocks)
	e.finishCycle(err)
	return err
}

// syncCycle brings the index as close to the remote tip as the block budget
// allows. Every applied or revoked block commits on its own, so an aborted
// cycle resumes from its last checkpoint.
func (e *Engine) syncCycle(ctx context.Context, maxBlocks uint64) error {
	tip, err := e.source.Tip(ctx)
	if err != nil {
		return fmt.Errorf("remote tip: %w", err)
	}
	e.setRemoteHeight(tip.Height)

	state, err := e.store.SyncState(ctx)
	if err != nil {
		return err
	}

	from := uint64(0)
	if state.BestHash != "" {
		if state.BestHeight == tip.Height && state.BestHash == tip.Hash {
			return nil
		}

		fork := ForkPoint{Height: state.BestHeight, Hash: state.BestHash}
		extends, err := e.isForwardExtension(ctx, state, tip)
		if err != nil {
			return err
		}
		if !extends {
			fork, err = e.resolver.Resolve(ctx, state.BestHeight, tip)
			if err != nil {
				return err
			}
			if fork.Depth > 0 {
				e.metrics.ObserveReorg(int(fork.Depth))
				e.logger.Warn("chain reorganization detected",
					zap.Uint64("fork_height", fork.Height),
					zap.Uint64("depth", fork.Depth))
				if err := e.revokeAbove(ctx, fork); err != nil {
					return err
				}
				e.mu.Lock()
				e.reorgsResolved++
				e.mu.Unlock()
			}
		}
		from = fork.Height + 1
	}

	return e.applyForward(ctx, from, tip.Height, maxBlocks)
}

// isForwardExtension reports whether the remote chain still contains the
// local best block at its recorded height, meaning new blocks only extend
// the local chain.
func (e *Engine) isForwardExtension(ctx context.Context, state *model.SyncState, tip chain.Tip) (bool, error) {
	if tip.Height < state.BestHeight {
		return false, nil
	}
	remoteHash, err := e.source.HashAtHeight(ctx, state.BestHeight)
	if err != nil {
		return false, fmt.Errorf("remote hash at height %d: %w", state.BestHeight, err)
	}
	return remoteHash == state.BestHash, nil
}

// revokeAbove removes local blocks from the best height down to, but not
// including, the fork point. Newest first, one transaction per block.
func (e *Engine) revokeAbove(ctx context.Context, fork ForkPoint) error {
	state, err := e.store.SyncState(ctx)
	if err != nil {
		return err
	}
	for height := state.BestHeight; height > fork.Height; height-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		blk, err := e.store.BlockByHeight(ctx, height)
		if err != nil {
			return fmt.Errorf("local block at height %d: %w", height, err)
		}
		if err := e.revokeOne(ctx, blk); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) revokeOne(ctx context.Context, blk *model.Block) error {
	started := time.Now()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		e.metrics.ObserveRevoke(err, started)
		return err
	}
	if err := e.revoker.Revoke(ctx, tx, blk); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		e.metrics.ObserveRevoke(err, started)
		return fmt.Errorf("revoke block %d %s: %w", blk.Height, blk.Hash, err)
	}
	if err := tx.Commit(); err != nil {
		e.metrics.ObserveRevoke(err, started)
		return fmt.Errorf("commit revoke of block %d: %w", blk.Height, err)
	}
	e.metrics.ObserveRevoke(nil, started)
	if blk.Height > 0 {
		e.metrics.SetBestHeight(blk.Height - 1)
	}
	e.mu.Lock()
	e.blocksRevoked++
	e.mu.Unlock()
	return nil
}

// applyForward fetches and applies remote blocks from height from through
// to, stopping early when the cycle budget runs out.
func (e *Engine) applyForward(ctx context.Context, from, to, maxBlocks uint64) error {
	applied := uint64(0)
	for height := from; height <= to; height++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxBlocks > 0 && applied >= maxBlocks {
			e.logger.Info("cycle block budget reached",
				zap.Uint64("applied", applied),
				zap.Uint64("next_height", height),
				zap.Uint64("remote_height", to))
			return nil
		}
		hash, err := e.source.HashAtHeight(ctx, height)
		if err != nil {
			return fmt.Errorf("remote hash at height %d: %w", height, err)
		}
		blk, err := e.source.BlockByHash(ctx, hash)
		if err != nil {
			return fmt.Errorf("remote block %s: %w", hash, err)
		}
		if err := e.applyOne(ctx, blk); err != nil {
			return err
		}
		applied++
	}
	return nil
}

func (e *Engine) applyOne(ctx context.Context, blk *chain.Block) error {
	started := time.Now()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		e.metrics.ObserveApply(err, started)
		return err
	}
	if err := e.applier.Apply(ctx, tx, blk); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		e.metrics.ObserveApply(err, started)
		return fmt.Errorf("apply block %d %s: %w", blk.Height, blk.Hash, err)
	}
	if err := tx.Commit(); err != nil {
		e.metrics.ObserveApply(err, started)
		return fmt.Errorf("commit block %d: %w", blk.Height, err)
	}
	e.metrics.ObserveApply(nil, started)
	e.metrics.SetBestHeight(blk.Height)
	e.mu.Lock()
	e.blocksApplied++
	e.mu.Unlock()
	return nil
}

// Status reports the engine phase next to the committed index checkpoint.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	state, err := e.store.SyncState(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := &Status{
		State:        e.state,
		BestHeight:   state.BestHeight,
		BestHash:     state.BestHash,
		RemoteHeight: e.remoteHeight,
		InProgress:   state.InProgress,
		LastError:    e.lastError,
		LastSyncedAt: state.LastSyncedAt,
	}
	if e.remoteHeight > state.BestHeight {
		s.BlocksBehind = e.remoteHeight - state.BestHeight
	}
	s.Synced = state.BestHash != "" && s.BlocksBehind <= 1
	if e.remoteHeight > 0 {
		s.Progress = math.Round(float64(state.BestHeight)/float64(e.remoteHeight)*10000) / 100
		if s.Progress > 100 {
			s.Progress = 100
		}
	} else if s.Synced {
		s.Progress = 100
	}
	return s, nil
}

// Stats combines index row counts with the engine's own lifetime counters.
type Stats struct {
	model.IndexStats
	BlocksApplied  uint64    `json:"blocks_applied"`
	BlocksRevoked  uint64    `json:"blocks_revoked"`
	ReorgsResolved uint64    `json:"reorgs_resolved"`
	MempoolAdded   uint64    `json:"mempool_added"`
	MempoolRemoved uint64    `json:"mempool_removed"`
	Errors         uint64    `json:"errors"`
	LastSyncedAt   time.Time `json:"last_synced_at"`
}

func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	idx, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	state, err := e.store.SyncState(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return &Stats{
		IndexStats:     *idx,
		BlocksApplied:  e.blocksApplied,
		BlocksRevoked:  e.blocksRevoked,
		ReorgsResolved: e.reorgsResolved,
		MempoolAdded:   e.mempoolAdded,
		MempoolRemoved: e.mempoolRemoved,
		Errors:         e.cycleErrors,
		LastSyncedAt:   state.LastSyncedAt,
	}, nil
}

func (e *Engine) releaseSync(ctx context.Context) {
	if err := e.store.ReleaseSync(context.WithoutCancel(ctx)); err != nil {
		e.logger.Error("release writer flag failed", zap.Error(err))
	}
}

// finishCycle folds a cycle result into the visible state. Fatal errors park
// the engine; transient ones surface as an error state that the next
// successful cycle clears.
func (e *Engine) finishCycle(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case err == nil:
		e.state = StateIdle
		e.lastError = ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.state = StateIdle
	case isFatal(err):
		e.state = StateError
		e.halted = true
		e.lastError = err.Error()
		e.cycleErrors++
	default:
		e.state = StateError
		e.lastError = err.Error()
		e.cycleErrors++
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) setRemoteHeight(height uint64) {
	e.mu.Lock()
	e.remoteHeight = height
	e.mu.Unlock()
}

func (e *Engine) isHalted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}
