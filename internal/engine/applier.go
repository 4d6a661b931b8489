package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// BlockApplier writes one block and all of its derived effects into an open
// index transaction: spend marks on consumed outputs, new output rows,
// address aggregates, the block row itself, the parent link, and the sync
// checkpoint. The caller owns commit and rollback, so a block lands either
// completely or not at all.
type BlockApplier struct {
	log *zap.Logger
}

func NewBlockApplier(log *zap.Logger) *BlockApplier {
	return &BlockApplier{log: log}
}

// Apply records the block inside tx. Applying a block that is already
// indexed, that does not extend the current best block, or that double
// spends an output fails with a wrapped store.ErrConflict and leaves the
// transaction dirty for the caller to roll back.
func (a *BlockApplier) Apply(ctx context.Context, tx store.Tx, blk *chain.Block) error {
	if _, err := tx.BlockByHash(ctx, blk.Hash); err == nil {
		return fmt.Errorf("block %s at height %d already applied: %w", blk.Hash, blk.Height, store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	state, err := tx.SyncState(ctx)
	if err != nil {
		return err
	}
	if state.BestHash != "" && blk.PreviousHash != state.BestHash {
		return fmt.Errorf("block %s does not extend best block %s: %w", blk.Hash, state.BestHash, store.ErrConflict)
	}

	for i := range blk.Transactions {
		src := &blk.Transactions[i]
		if err := a.applyTransaction(ctx, tx, blk, src); err != nil {
			return fmt.Errorf("tx %s: %w", src.TxID, err)
		}
	}

	if err := tx.InsertBlock(ctx, buildBlockRow(blk)); err != nil {
		return err
	}

	if _, err := tx.BlockByHash(ctx, blk.PreviousHash); err == nil {
		next := blk.Hash
		if err := tx.SetNextHash(ctx, blk.PreviousHash, &next); err != nil {
			return err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := tx.UpdateSyncState(ctx, blk.Height, blk.Hash); err != nil {
		return err
	}

	a.log.Debug("block applied",
		zap.Uint64("height", blk.Height),
		zap.String("hash", blk.Hash),
		zap.Int("transactions", len(blk.Transactions)))
	return nil
}

// applyTransaction spends the inputs, inserts the rows, and credits the
// outputs of one transaction. A row already known from the mempool is
// promoted in place; a row already confirmed is a conflict.
func (a *BlockApplier) applyTransaction(ctx context.Context, tx store.Tx, blk *chain.Block, src *chain.Transaction) error {
	existing, err := tx.TransactionByTxID(ctx, src.TxID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if existing != nil && existing.BlockHash != nil {
		return fmt.Errorf("already confirmed in block %s: %w", *existing.BlockHash, store.ErrConflict)
	}

	var spentSum uint64
	for i, in := range src.Inputs {
		if in.Coinbase {
			continue
		}
		funding, err := tx.SpendOutput(ctx, in.PrevTxID, in.PrevVout, src.TxID, uint32(i))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("input %d: output %s:%d is not indexed: %w", i, in.PrevTxID, in.PrevVout, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		spentSum += funding.Value
		if funding.Address != nil {
			if err := tx.DebitAddress(ctx, *funding.Address, funding.Value); err != nil {
				return fmt.Errorf("debit %s: %w", *funding.Address, err)
			}
		}
	}

	var outputSum uint64
	for _, out := range src.Outputs {
		outputSum += out.Value
	}

	fee := uint64(0)
	if !isCoinbase(src) {
		if spentSum < outputSum {
			return fmt.Errorf("outputs %d exceed inputs %d: %w", outputSum, spentSum, store.ErrConflict)
		}
		fee = spentSum - outputSum
	}

	var rowID uint
	if existing != nil {
		if err := tx.PromoteTransaction(ctx, src.TxID, blk.Hash, blk.Height, &fee); err != nil {
			return err
		}
		rowID = existing.ID
	} else {
		row := buildTransactionRow(src, blk, fee)
		if err := tx.InsertTransaction(ctx, row); err != nil {
			return err
		}
		rowID = row.ID
	}

	if err := tx.InsertInputs(ctx, buildInputRows(rowID, src.Inputs)); err != nil {
		return err
	}
	if err := tx.InsertOutputs(ctx, buildOutputRows(rowID, src.Outputs)); err != nil {
		return err
	}

	for _, out := range src.Outputs {
		if out.Address == "" {
			continue
		}
		if err := tx.CreditAddress(ctx, out.Address, out.Value, blk.Height); err != nil {
			return fmt.Errorf("credit %s: %w", out.Address, err)
		}
	}
	return nil
}

func isCoinbase(tx *chain.Transaction) bool {
	return len(tx.Inputs) > 0 && tx.Inputs[0].Coinbase
}

func buildBlockRow(blk *chain.Block) *model.Block {
	return &model.Block{
		Hash:         blk.Hash,
		Height:       blk.Height,
		PreviousHash: blk.PreviousHash,
		Version:      blk.Version,
		MerkleRoot:   blk.MerkleRoot,
		Time:         blk.Time,
		Nonce:        blk.Nonce,
		Bits:         blk.Bits,
		Difficulty:   blk.Difficulty,
		ChainWork:    blk.ChainWork,
		TxCount:      uint32(len(blk.Transactions)),
		Size:         blk.Size,
		Weight:       blk.Weight,
	}
}

func buildTransactionRow(src *chain.Transaction, blk *chain.Block, fee uint64) *model.Transaction {
	hash := blk.Hash
	height := blk.Height
	return &model.Transaction{
		TxID:        src.TxID,
		BlockHash:   &hash,
		BlockHeight: &height,
		Version:     src.Version,
		LockTime:    src.LockTime,
		Size:        src.Size,
		VSize:       src.VSize,
		Weight:      src.Weight,
		Fee:         &fee,
	}
}

func buildInputRows(transactionID uint, inputs []chain.TxIn) []model.TransactionInput {
	rows := make([]model.TransactionInput, 0, len(inputs))
	for _, in := range inputs {
		row := model.TransactionInput{
			TransactionID: transactionID,
			ScriptSig:     in.ScriptSig,
			Sequence:      in.Sequence,
		}
		if !in.Coinbase {
			prevTxID, vout := in.PrevTxID, in.PrevVout
			row.PrevTxID = &prevTxID
			row.Vout = &vout
		}
		rows = append(rows, row)
	}
	return rows
}

func buildOutputRows(transactionID uint, outputs []chain.TxOut) []model.TransactionOutput {
	rows := make([]model.TransactionOutput, 0, len(outputs))
	for _, out := range outputs {
		row := model.TransactionOutput{
			TransactionID: transactionID,
			N:             out.N,
			Value:         out.Value,
			ScriptPubKey:  out.ScriptPubKey,
		}
		if out.Address != "" {
			addr := out.Address
			row.Address = &addr
		}
		rows = append(rows, row)
	}
	return rows
}
