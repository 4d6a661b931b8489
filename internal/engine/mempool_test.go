package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

func seedUnconfirmed(t *testing.T, ctx context.Context, st store.Store, txids ...string) {
	t.Helper()
	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, txid := range txids {
		row := &model.Transaction{TxID: txid, Version: 2, Size: 140, VSize: 140, Weight: 560}
		if err := tx.InsertTransaction(ctx, row); err != nil {
			t.Fatalf("insert unconfirmed %s: %v", txid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestEngine_ReconcileMempoolMirrorsRemote(t *testing.T) {
	ctx := context.Background()
	remote := newRemoteChain(testBlock(0, "g", "", coinbaseTx("cb-g", "addr-g", 50_000)))
	eng, st := newTestEngine(t, remote)

	seedUnconfirmed(t, ctx, st, "t1", "t2")
	remote.setMempool([]string{"t2", "t3"}, map[string]*chain.Transaction{
		"t3": {TxID: "t3", Version: 2, LockTime: 101, Size: 250, VSize: 180, Weight: 720},
	})

	if err := eng.ReconcileMempool(ctx); err != nil {
		t.Fatalf("ReconcileMempool() error = %v", err)
	}

	txids, err := st.UnconfirmedTxIDs(ctx)
	if err != nil {
		t.Fatalf("unconfirmed txids: %v", err)
	}
	if want := []string{"t2", "t3"}; !reflect.DeepEqual(txids, want) {
		t.Fatalf("unconfirmed txids = %v, want %v", txids, want)
	}

	if _, err := st.TransactionByTxID(ctx, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("dropped tx lookup error = %v, want store.ErrNotFound", err)
	}
	added, err := st.TransactionByTxID(ctx, "t3")
	if err != nil {
		t.Fatalf("added tx: %v", err)
	}
	if added.BlockHash != nil || added.Fee != nil {
		t.Fatalf("unconfirmed tx carries block ref or fee: %+v", added)
	}
	if added.LockTime != 101 || added.VSize != 180 {
		t.Fatalf("unconfirmed tx fields = locktime %d vsize %d, want 101, 180", added.LockTime, added.VSize)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MempoolAdded != 1 || stats.MempoolRemoved != 1 {
		t.Fatalf("mempool stats = added %d removed %d, want 1, 1", stats.MempoolAdded, stats.MempoolRemoved)
	}

	status, err := eng.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != StateIdle {
		t.Fatalf("state = %s, want %s", status.State, StateIdle)
	}
}

func TestEngine_ReconcileMempoolWhileSyncHeld(t *testing.T) {
	ctx := context.Background()
	remote := newRemoteChain(testBlock(0, "g", "", coinbaseTx("cb-g", "addr-g", 50_000)))
	eng, st := newTestEngine(t, remote)

	ok, err := st.AcquireSync(ctx)
	if err != nil || !ok {
		t.Fatalf("AcquireSync() = %v, %v, want true", ok, err)
	}
	t.Cleanup(func() {
		if err := st.ReleaseSync(ctx); err != nil {
			t.Errorf("ReleaseSync() error = %v", err)
		}
	})

	if err := eng.ReconcileMempool(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("ReconcileMempool() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestEngine_ReconcileMempoolSkipsEvictedTx(t *testing.T) {
	ctx := context.Background()
	remote := newRemoteChain(testBlock(0, "g", "", coinbaseTx("cb-g", "addr-g", 50_000)))
	eng, st := newTestEngine(t, remote)

	// listed by the node but gone again before the raw fetch
	remote.setMempool([]string{"tx-gone"}, nil)

	if err := eng.ReconcileMempool(ctx); err != nil {
		t.Fatalf("ReconcileMempool() error = %v", err)
	}
	txids, err := st.UnconfirmedTxIDs(ctx)
	if err != nil {
		t.Fatalf("unconfirmed txids: %v", err)
	}
	if len(txids) != 0 {
		t.Fatalf("unconfirmed txids = %v, want none", txids)
	}
}

func TestEngine_ReconcileMempoolIgnoresConfirmedTx(t *testing.T) {
	ctx := context.Background()
	remote := newRemoteChain(threeBlockChain()...)
	eng, st := newTestEngine(t, remote)

	if err := eng.SyncOnce(ctx, 0); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}

	// a node race can list a txid that this index already confirmed
	remote.setMempool([]string{"cb-b"}, map[string]*chain.Transaction{
		"cb-b": {TxID: "cb-b", Version: 2, Size: 120, VSize: 120, Weight: 480},
	})
	if err := eng.ReconcileMempool(ctx); err != nil {
		t.Fatalf("ReconcileMempool() error = %v", err)
	}

	txids, err := st.UnconfirmedTxIDs(ctx)
	if err != nil {
		t.Fatalf("unconfirmed txids: %v", err)
	}
	if len(txids) != 0 {
		t.Fatalf("unconfirmed txids = %v, want none", txids)
	}
	confirmed, err := st.TransactionByTxID(ctx, "cb-b")
	if err != nil {
		t.Fatalf("confirmed tx: %v", err)
	}
	if confirmed.BlockHash == nil || *confirmed.BlockHash != "hash-b" {
		t.Fatalf("confirmed tx block ref = %v, want hash-b", confirmed.BlockHash)
	}
}

func TestDiffTxIDs(t *testing.T) {
	tests := []struct {
		name        string
		local       []string
		remote      []string
		wantStale   []string
		wantMissing []string
	}{
		{
			name: "both empty",
		},
		{
			name:        "cold mempool",
			remote:      []string{"t1", "t2"},
			wantMissing: []string{"t1", "t2"},
		},
		{
			name:      "drained mempool",
			local:     []string{"t1", "t2"},
			wantStale: []string{"t1", "t2"},
		},
		{
			name:        "partial overlap",
			local:       []string{"t1", "t2"},
			remote:      []string{"t2", "t3"},
			wantStale:   []string{"t1"},
			wantMissing: []string{"t3"},
		},
		{
			name:   "identical sets",
			local:  []string{"t1", "t2"},
			remote: []string{"t2", "t1"},
		},
		{
			name:        "keeps input order",
			local:       []string{"a", "b", "c"},
			remote:      []string{"c", "x", "a", "y"},
			wantStale:   []string{"b"},
			wantMissing: []string{"x", "y"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stale, missing := diffTxIDs(tt.local, tt.remote)
			if !reflect.DeepEqual(stale, tt.wantStale) {
				t.Errorf("stale = %v, want %v", stale, tt.wantStale)
			}
			if !reflect.DeepEqual(missing, tt.wantMissing) {
				t.Errorf("missing = %v, want %v", missing, tt.wantMissing)
			}
		})
	}
}
