// Package bitcoin implements the chain.Source contract against a
// bitcoind-compatible node.
package bitcoin

import (
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/pkg/safe"
)

// BtcToSatoshis converts a BTC amount to satoshis with overflow checks.
func BtcToSatoshis(value float64) (uint64, error) {
	amt, err := btcutil.NewAmount(value)
	if err != nil {
		return 0, err
	}
	if amt < 0 {
		return 0, fmt.Errorf("negative amount: %d", amt)
	}
	return safe.Uint64(int64(amt))
}

// ParseBits parses a compact difficulty string into its 32-bit value.
func ParseBits(value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(parsed), nil
}

// buildBlock maps a verbose RPC block into a decoded chain.Block, including
// every transaction in canonical order.
func buildBlock(src *btcjson.GetBlockVerboseTxResult, decoder ScriptDecoder) (*chain.Block, error) {
	bits, err := ParseBits(src.Bits)
	if err != nil {
		return nil, fmt.Errorf("block %d bits parse: %w", src.Height, err)
	}
	height, err := safe.Uint64(src.Height)
	if err != nil {
		return nil, fmt.Errorf("block height %d overflow: %w", src.Height, err)
	}
	size, err := safe.Uint32(src.Size)
	if err != nil {
		return nil, fmt.Errorf("block %d size overflow: %w", src.Height, err)
	}
	weight, err := safe.Uint32(src.Weight)
	if err != nil {
		return nil, fmt.Errorf("block %d weight overflow: %w", src.Height, err)
	}

	txs := make([]chain.Transaction, 0, len(src.Tx))
	for _, tx := range src.Tx {
		decoded, err := buildTransaction(tx, decoder)
		if err != nil {
			return nil, fmt.Errorf("block %d tx %s: %w", src.Height, tx.Txid, err)
		}
		txs = append(txs, decoded)
	}

	return &chain.Block{
		Hash:         src.Hash,
		Height:       height,
		PreviousHash: src.PreviousHash,
		Version:      src.Version,
		MerkleRoot:   src.MerkleRoot,
		Time:         time.Unix(src.Time, 0).UTC(),
		Nonce:        src.Nonce,
		Bits:         bits,
		Difficulty:   src.Difficulty,
		ChainWork:    blockchain.CalcWork(bits).String(),
		Size:         size,
		Weight:       weight,
		Transactions: txs,
	}, nil
}

// buildTransaction maps a verbose RPC transaction into a decoded
// chain.Transaction with typed inputs and outputs.
func buildTransaction(src btcjson.TxRawResult, decoder ScriptDecoder) (chain.Transaction, error) {
	size, err := safe.Uint32(src.Size)
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("size overflow: %w", err)
	}
	vsize, err := safe.Uint32(src.Vsize)
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("vsize overflow: %w", err)
	}
	weight, err := safe.Uint32(src.Weight)
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("weight overflow: %w", err)
	}
	version, err := safe.Uint32(src.Version)
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("version overflow: %w", err)
	}

	inputs := make([]chain.TxIn, 0, len(src.Vin))
	for _, vin := range src.Vin {
		if vin.IsCoinBase() {
			inputs = append(inputs, chain.TxIn{
				Coinbase:  true,
				ScriptSig: vin.Coinbase,
				Sequence:  vin.Sequence,
			})
			continue
		}
		scriptSig := ""
		if vin.ScriptSig != nil {
			scriptSig = vin.ScriptSig.Hex
		}
		inputs = append(inputs, chain.TxIn{
			PrevTxID:  vin.Txid,
			PrevVout:  vin.Vout,
			ScriptSig: scriptSig,
			Sequence:  vin.Sequence,
		})
	}

	outputs := make([]chain.TxOut, 0, len(src.Vout))
	for idx, vout := range src.Vout {
		if vout.Value < 0 {
			return chain.Transaction{}, fmt.Errorf("output %d negative value: %f", idx, vout.Value)
		}
		value, err := BtcToSatoshis(vout.Value)
		if err != nil {
			return chain.Transaction{}, fmt.Errorf("output %d value: %w", idx, err)
		}
		address, err := decoder.DecodeAddress(vout)
		if err != nil {
			return chain.Transaction{}, fmt.Errorf("output %d address: %w", idx, err)
		}
		outputs = append(outputs, chain.TxOut{
			N:            vout.N,
			Value:        value,
			ScriptPubKey: vout.ScriptPubKey.Hex,
			Address:      address,
		})
	}

	return chain.Transaction{
		TxID:     src.Txid,
		Version:  version,
		LockTime: src.LockTime,
		Size:     size,
		VSize:    vsize,
		Weight:   weight,
		Inputs:   inputs,
		Outputs:  outputs,
	}, nil
}
