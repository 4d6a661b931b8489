package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// scenarioAddrs covers every address the fixture chains touch, so snapshots
// also prove which addresses carry no aggregate activity.
var scenarioAddrs = []string{"addr-g", "addr-a", "addr-b", "addr-b2", "addr-c", "addr-c2"}

type addressState struct {
	Balance        int64
	TxCount        uint32
	FirstSeenBlock uint64
	LastSeenBlock  uint64
}

// indexSnapshot captures the observable index state with storage-assigned
// row ids and write timestamps normalized away, so two states that are the
// same chain compare equal even when the rows were rewritten in between.
type indexSnapshot struct {
	Blocks     []model.Block
	Txs        map[string]model.Transaction
	Inputs     map[string][]model.TransactionInput
	Outputs    map[string][]model.TransactionOutput
	Addresses  map[string]addressState
	BestHeight uint64
	BestHash   string
}

func snapshotIndex(t *testing.T, ctx context.Context, st store.Store, addrs []string) indexSnapshot {
	t.Helper()

	snap := indexSnapshot{
		Txs:       make(map[string]model.Transaction),
		Inputs:    make(map[string][]model.TransactionInput),
		Outputs:   make(map[string][]model.TransactionOutput),
		Addresses: make(map[string]addressState),
	}

	blocks, err := st.LatestBlocks(ctx, 1_000, 0)
	if err != nil {
		t.Fatalf("snapshot blocks: %v", err)
	}
	for _, blk := range blocks {
		blk.ID = 0
		blk.CreatedAt = time.Time{}
		snap.Blocks = append(snap.Blocks, blk)
	}

	txs, err := st.LatestTransactions(ctx, 1_000, 0)
	if err != nil {
		t.Fatalf("snapshot transactions: %v", err)
	}
	for _, row := range txs {
		inputs, err := st.InputsByTransactionID(ctx, row.ID)
		if err != nil {
			t.Fatalf("snapshot inputs of %s: %v", row.TxID, err)
		}
		for i := range inputs {
			inputs[i].ID = 0
			inputs[i].TransactionID = 0
		}
		snap.Inputs[row.TxID] = inputs

		outputs, err := st.OutputsByTransactionID(ctx, row.ID)
		if err != nil {
			t.Fatalf("snapshot outputs of %s: %v", row.TxID, err)
		}
		for i := range outputs {
			outputs[i].ID = 0
			outputs[i].TransactionID = 0
		}
		snap.Outputs[row.TxID] = outputs

		row.ID = 0
		row.CreatedAt = time.Time{}
		snap.Txs[row.TxID] = row
	}

	for _, addr := range addrs {
		row, err := st.AddressByAddr(ctx, addr)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			t.Fatalf("snapshot address %s: %v", addr, err)
		}
		if row.Balance == 0 && row.TxCount == 0 {
			// a fully revoked row reads the same as one never created
			continue
		}
		snap.Addresses[addr] = addressState{
			Balance:        row.Balance,
			TxCount:        row.TxCount,
			FirstSeenBlock: row.FirstSeenBlock,
			LastSeenBlock:  row.LastSeenBlock,
		}
	}

	state, err := st.SyncState(ctx)
	if err != nil {
		t.Fatalf("snapshot sync state: %v", err)
	}
	snap.BestHeight = state.BestHeight
	snap.BestHash = state.BestHash
	return snap
}
