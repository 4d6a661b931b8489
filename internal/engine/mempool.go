package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
	"github.com/goodnatureofminers/blockinsight7000-indexer/pkg/workerpool"
)

// ReconcileMempool aligns the locally indexed unconfirmed transactions with
// the remote mempool: transactions the remote dropped are removed,
// transactions it gained are fetched and inserted. The whole diff commits
// atomically, so the local set always equals some remote snapshot.
func (e *Engine) ReconcileMempool(ctx context.Context) error {
	ok, err := e.store.AcquireSync(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer e.releaseSync(ctx)

	e.setState(StateReconcilingMempool)
	err = e.reconcileMempool(ctx)
	e.finishCycle(err)
	return err
}

func (e *Engine) maybeReconcileMempool(ctx context.Context) {
	if !e.mempoolEvery.Due(time.Now()) {
		return
	}
	if err := e.ReconcileMempool(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		e.logger.Warn("mempool reconciliation failed", zap.Error(err))
		return
	}
	e.mempoolEvery.Mark(time.Now())
}

func (e *Engine) reconcileMempool(ctx context.Context) error {
	started := time.Now()

	remote, err := e.source.MempoolTxIDs(ctx)
	if err != nil {
		e.metrics.ObserveMempoolReconcile(err, 0, started)
		return fmt.Errorf("list remote mempool: %w", err)
	}
	local, err := e.store.UnconfirmedTxIDs(ctx)
	if err != nil {
		e.metrics.ObserveMempoolReconcile(err, len(remote), started)
		return fmt.Errorf("list local unconfirmed: %w", err)
	}

	stale, missing := diffTxIDs(local, remote)
	if len(stale) == 0 && len(missing) == 0 {
		e.metrics.ObserveMempoolReconcile(nil, len(remote), started)
		return nil
	}

	fetched, err := workerpool.Map(ctx, e.fetchWorkers, missing, e.fetchMempoolTransaction)
	if err != nil {
		e.metrics.ObserveMempoolReconcile(err, len(remote), started)
		return fmt.Errorf("fetch mempool transactions: %w", err)
	}

	added, removed, err := e.applyMempoolDiff(ctx, stale, fetched)
	e.metrics.ObserveMempoolReconcile(err, len(remote), started)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.mempoolAdded += uint64(added)
	e.mempoolRemoved += uint64(removed)
	e.mu.Unlock()
	e.logger.Info("mempool reconciled",
		zap.Int("added", added),
		zap.Int("removed", removed),
		zap.Int("mempool_size", len(remote)))
	return nil
}

// diffTxIDs splits the two sets into local-only (stale) and remote-only
// (missing) txids, preserving input order.
func diffTxIDs(local, remote []string) (stale, missing []string) {
	remoteSet := make(map[string]struct{}, len(remote))
	for _, txid := range remote {
		remoteSet[txid] = struct{}{}
	}
	localSet := make(map[string]struct{}, len(local))
	for _, txid := range local {
		localSet[txid] = struct{}{}
	}

	for _, txid := range local {
		if _, ok := remoteSet[txid]; !ok {
			stale = append(stale, txid)
		}
	}
	for _, txid := range remote {
		if _, ok := localSet[txid]; !ok {
			missing = append(missing, txid)
		}
	}
	return stale, missing
}

// fetchMempoolTransaction returns nil without error for a txid the remote
// no longer knows; it was evicted or mined between the listing and this
// fetch and the next reconciliation settles it.
func (e *Engine) fetchMempoolTransaction(ctx context.Context, txid string) (*chain.Transaction, error) {
	tx, err := e.source.RawTransaction(ctx, txid)
	if errors.Is(err, chain.ErrNotFound) {
		return nil, nil
	}
	return tx, err
}

func (e *Engine) applyMempoolDiff(ctx context.Context, stale []string, fetched []*chain.Transaction) (added, removed int, err error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	for _, txid := range stale {
		delErr := tx.DeleteUnconfirmedTransaction(ctx, txid)
		if errors.Is(delErr, store.ErrNotFound) {
			continue
		}
		if delErr != nil {
			err = fmt.Errorf("drop unconfirmed %s: %w", txid, delErr)
			return 0, 0, err
		}
		removed++
	}

	for _, raw := range fetched {
		if raw == nil {
			continue
		}
		insErr := tx.InsertTransaction(ctx, buildUnconfirmedRow(raw))
		if errors.Is(insErr, store.ErrConflict) {
			// confirmed between the listing and this write
			continue
		}
		if insErr != nil {
			err = fmt.Errorf("insert unconfirmed %s: %w", raw.TxID, insErr)
			return 0, 0, err
		}
		added++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return added, removed, nil
}

// buildUnconfirmedRow keeps block references and fee unset; a later apply
// promotes the row in place once the transaction confirms.
func buildUnconfirmedRow(src *chain.Transaction) *model.Transaction {
	return &model.Transaction{
		TxID:     src.TxID,
		Version:  src.Version,
		LockTime: src.LockTime,
		Size:     src.Size,
		VSize:    src.VSize,
		Weight:   src.Weight,
	}
}
