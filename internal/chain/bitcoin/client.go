package bitcoin

import (
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"go.uber.org/ratelimit"
)

// Client wraps the btcd rpcclient with metrics instrumentation and an
// outbound rate limit shared by all callers.
type Client struct {
	client     *rpcclient.Client
	rpcMetrics RPCMetrics
	rl         ratelimit.Limiter
}

// NewClient constructs an instrumented, rate-limited RPC client. rps <= 0
// disables the limit.
func NewClient(client *rpcclient.Client, rpcMetrics RPCMetrics, rps int) *Client {
	rl := ratelimit.NewUnlimited()
	if rps > 0 {
		rl = ratelimit.New(rps)
	}
	return &Client{
		client:     client,
		rpcMetrics: rpcMetrics,
		rl:         rl,
	}
}

// GetBestBlockHash returns the hash of the remote best block.
func (c *Client) GetBestBlockHash() (hash *chainhash.Hash, err error) {
	c.rl.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("get_best_block_hash", err, started)
	}()
	return c.client.GetBestBlockHash()
}

// GetBlockHash returns the block hash for a height.
func (c *Client) GetBlockHash(height int64) (hash *chainhash.Hash, err error) {
	c.rl.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("get_block_hash", err, started)
	}()
	return c.client.GetBlockHash(height)
}

// GetBlockHeaderVerbose returns a decoded block header.
func (c *Client) GetBlockHeaderVerbose(hash *chainhash.Hash) (res *btcjson.GetBlockHeaderVerboseResult, err error) {
	c.rl.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("get_block_header_verbose", err, started)
	}()
	return c.client.GetBlockHeaderVerbose(hash)
}

// GetBlockVerboseTx returns a verbose block with transactions.
func (c *Client) GetBlockVerboseTx(hash *chainhash.Hash) (res *btcjson.GetBlockVerboseTxResult, err error) {
	c.rl.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("get_block_verbose_tx", err, started)
	}()
	return c.client.GetBlockVerboseTx(hash)
}

// GetRawTransactionVerbose returns a decoded transaction.
func (c *Client) GetRawTransactionVerbose(txid *chainhash.Hash) (res *btcjson.TxRawResult, err error) {
	c.rl.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("get_raw_transaction_verbose", err, started)
	}()
	return c.client.GetRawTransactionVerbose(txid)
}

// GetRawMempool returns the txids currently in the remote mempool.
func (c *Client) GetRawMempool() (txids []*chainhash.Hash, err error) {
	c.rl.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("get_raw_mempool", err, started)
	}()
	return c.client.GetRawMempool()
}
