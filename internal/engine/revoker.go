package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// BlockRevoker removes a block and inverts every effect its apply had, in
// reverse order: later transactions first, spends unwound before the rows
// they reference disappear. Only the current best block may be revoked;
// anything older still has descendants referencing its rows.
type BlockRevoker struct {
	log *zap.Logger
}

func NewBlockRevoker(log *zap.Logger) *BlockRevoker {
	return &BlockRevoker{log: log}
}

// Revoke undoes the block inside tx. It fails with a wrapped
// store.ErrConflict when the block is not the chain head or when one of its
// outputs is still spent, which means a descendant has not been revoked
// first.
func (r *BlockRevoker) Revoke(ctx context.Context, tx store.Tx, blk *model.Block) error {
	state, err := tx.SyncState(ctx)
	if err != nil {
		return err
	}
	if state.BestHash != blk.Hash {
		return fmt.Errorf("block %s is not the chain head %s: %w", blk.Hash, state.BestHash, store.ErrConflict)
	}

	rows, err := tx.TransactionsByBlockHash(ctx, blk.Hash)
	if err != nil {
		return err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if err := r.revokeTransaction(ctx, tx, &rows[i]); err != nil {
			return fmt.Errorf("tx %s: %w", rows[i].TxID, err)
		}
	}

	if err := tx.DeleteBlock(ctx, blk.Hash); err != nil {
		return err
	}

	if _, err := tx.BlockByHash(ctx, blk.PreviousHash); err == nil {
		if err := tx.SetNextHash(ctx, blk.PreviousHash, nil); err != nil {
			return err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	prevHeight, prevHash := uint64(0), ""
	if blk.Height > 0 {
		prevHeight, prevHash = blk.Height-1, blk.PreviousHash
	}
	if err := tx.UpdateSyncState(ctx, prevHeight, prevHash); err != nil {
		return err
	}

	r.log.Debug("block revoked",
		zap.Uint64("height", blk.Height),
		zap.String("hash", blk.Hash),
		zap.Int("transactions", len(rows)))
	return nil
}

func (r *BlockRevoker) revokeTransaction(ctx context.Context, tx store.Tx, row *model.Transaction) error {
	outputs, err := tx.OutputsByTransactionID(ctx, row.ID)
	if err != nil {
		return err
	}
	for _, out := range outputs {
		if out.Spent {
			spender := ""
			if out.SpentByTxID != nil {
				spender = *out.SpentByTxID
			}
			return fmt.Errorf("output %d still spent by %s: %w", out.N, spender, store.ErrConflict)
		}
	}

	touched := make(map[string]struct{})
	for _, out := range outputs {
		if out.Address == nil {
			continue
		}
		if err := tx.UncreditAddress(ctx, *out.Address, out.Value); err != nil {
			return fmt.Errorf("uncredit %s: %w", *out.Address, err)
		}
		touched[*out.Address] = struct{}{}
	}

	inputs, err := tx.InputsByTransactionID(ctx, row.ID)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		if in.PrevTxID == nil {
			continue
		}
		funding, err := tx.UnspendOutput(ctx, *in.PrevTxID, *in.Vout)
		if err != nil {
			return fmt.Errorf("unspend %s:%d: %w", *in.PrevTxID, *in.Vout, err)
		}
		if funding.Address != nil {
			if err := tx.UndebitAddress(ctx, *funding.Address, funding.Value); err != nil {
				return fmt.Errorf("undebit %s: %w", *funding.Address, err)
			}
		}
	}

	if err := tx.DeleteOutputs(ctx, row.ID); err != nil {
		return err
	}
	if err := tx.DeleteInputs(ctx, row.ID); err != nil {
		return err
	}
	if err := tx.DeleteTransaction(ctx, row.ID); err != nil {
		return err
	}

	// Activity recomputes only see rows that survived the deletes above.
	// Address rows themselves stay, even at zero balance and zero credits.
	for addr := range touched {
		if err := tx.RefreshAddressActivity(ctx, addr); err != nil {
			return fmt.Errorf("refresh %s: %w", addr, err)
		}
	}
	return nil
}
