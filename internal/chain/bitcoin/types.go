package bitcoin

import (
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// RPCConn is the subset of the node RPC surface the source depends on.
	RPCConn interface {
		GetBestBlockHash() (*chainhash.Hash, error)
		GetBlockHash(height int64) (*chainhash.Hash, error)
		GetBlockHeaderVerbose(hash *chainhash.Hash) (*btcjson.GetBlockHeaderVerboseResult, error)
		GetBlockVerboseTx(hash *chainhash.Hash) (*btcjson.GetBlockVerboseTxResult, error)
		GetRawTransactionVerbose(txid *chainhash.Hash) (*btcjson.TxRawResult, error)
		GetRawMempool() ([]*chainhash.Hash, error)
	}

	// ScriptDecoder extracts the owner address from an output script.
	ScriptDecoder interface {
		DecodeAddress(vout btcjson.Vout) (string, error)
	}

	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
