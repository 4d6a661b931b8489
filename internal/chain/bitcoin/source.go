package bitcoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/pkg/safe"
)

// Source reads the remote chain through a bitcoind-compatible RPC connection.
type Source struct {
	rpc     RPCConn
	decoder ScriptDecoder
}

var _ chain.Source = (*Source)(nil)

// NewSource creates a Source over the given RPC connection.
func NewSource(rpc RPCConn, decoder ScriptDecoder) *Source {
	return &Source{
		rpc:     rpc,
		decoder: decoder,
	}
}

// Tip returns the remote best block. The hash is fetched first and the
// header second so the pair is consistent even while the remote advances.
func (s *Source) Tip(ctx context.Context) (chain.Tip, error) {
	if err := ctx.Err(); err != nil {
		return chain.Tip{}, err
	}
	hash, err := s.rpc.GetBestBlockHash()
	if err != nil {
		return chain.Tip{}, mapRPCError("get best block hash", err)
	}
	header, err := s.rpc.GetBlockHeaderVerbose(hash)
	if err != nil {
		return chain.Tip{}, mapRPCError(fmt.Sprintf("get header %s", hash), err)
	}
	height, err := safe.Uint64(header.Height)
	if err != nil {
		return chain.Tip{}, fmt.Errorf("%w: tip height %d: %v", chain.ErrBadData, header.Height, err)
	}
	return chain.Tip{Height: height, Hash: hash.String()}, nil
}

// BlockByHash fetches and decodes the block with full transaction detail.
func (s *Source) BlockByHash(ctx context.Context, hash string) (*chain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blockHash, err := chainhash.NewHashFromStr(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: block hash %q: %v", chain.ErrBadData, hash, err)
	}
	src, err := s.rpc.GetBlockVerboseTx(blockHash)
	if err != nil {
		return nil, mapRPCError(fmt.Sprintf("get block %s", hash), err)
	}
	block, err := buildBlock(src, s.decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: decode block %s: %v", chain.ErrBadData, hash, err)
	}
	return block, nil
}

// HashAtHeight returns the remote best-chain hash at the given height.
func (s *Source) HashAtHeight(ctx context.Context, height uint64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rpcHeight, err := safe.Int64(height)
	if err != nil {
		return "", fmt.Errorf("%w: height %d exceeds rpc limit", chain.ErrBadData, height)
	}
	hash, err := s.rpc.GetBlockHash(rpcHeight)
	if err != nil {
		return "", mapRPCError(fmt.Sprintf("get block hash at height %d", height), err)
	}
	return hash.String(), nil
}

// RawTransaction fetches and decodes a single transaction.
func (s *Source) RawTransaction(ctx context.Context, txid string) (*chain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txHash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, fmt.Errorf("%w: txid %q: %v", chain.ErrBadData, txid, err)
	}
	src, err := s.rpc.GetRawTransactionVerbose(txHash)
	if err != nil {
		return nil, mapRPCError(fmt.Sprintf("get raw transaction %s", txid), err)
	}
	tx, err := buildTransaction(*src, s.decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction %s: %v", chain.ErrBadData, txid, err)
	}
	return &tx, nil
}

// MempoolTxIDs returns the txids currently in the remote mempool.
func (s *Source) MempoolTxIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hashes, err := s.rpc.GetRawMempool()
	if err != nil {
		return nil, mapRPCError("get raw mempool", err)
	}
	txids := make([]string, 0, len(hashes))
	for _, h := range hashes {
		txids = append(txids, h.String())
	}
	return txids, nil
}

// mapRPCError folds node errors into the package taxonomy: known not-found
// codes map to ErrNotFound, other node-reported errors to ErrBadData, and
// everything else (transport, timeouts) to the retryable ErrUnavailable.
func mapRPCError(op string, err error) error {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		if isNotFoundCode(rpcErr.Code) {
			return fmt.Errorf("%w: %s: %s", chain.ErrNotFound, op, rpcErr.Message)
		}
		return fmt.Errorf("%w: %s: rpc code %d: %s", chain.ErrBadData, op, rpcErr.Code, rpcErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", chain.ErrUnavailable, op, err)
}

// isNotFoundCode matches the codes bitcoind and btcd use for missing blocks,
// unknown transactions, and heights beyond the tip. Several share a value,
// which rules out a switch over the named constants.
func isNotFoundCode(code btcjson.RPCErrorCode) bool {
	return code == btcjson.ErrRPCBlockNotFound ||
		code == btcjson.ErrRPCNoTxInfo ||
		code == btcjson.ErrRPCOutOfRange ||
		code == btcjson.ErrRPCInvalidAddressOrKey ||
		code == btcjson.ErrRPCInvalidParameter
}
