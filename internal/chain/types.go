package chain

import "time"

// Tip identifies the remote best block.
type Tip struct {
	Height uint64
	Hash   string
}

// Block is a fully decoded block with its transactions in canonical order.
type Block struct {
	Hash         string
	Height       uint64
	PreviousHash string
	Version      int32
	MerkleRoot   string
	Time         time.Time
	Nonce        uint32
	Bits         uint32
	Difficulty   float64
	ChainWork    string
	Size         uint32
	Weight       uint32
	Transactions []Transaction
}

// Transaction is a fully decoded transaction. Fees are not part of the wire
// payload; confirmed fees are derived from resolved inputs at apply time.
type Transaction struct {
	TxID     string
	Version  uint32
	LockTime uint32
	Size     uint32
	VSize    uint32
	Weight   uint32
	Inputs   []TxIn
	Outputs  []TxOut
}

// TxIn is one consumed outpoint. Coinbase inputs reference no previous
// output.
type TxIn struct {
	Coinbase  bool
	PrevTxID  string
	PrevVout  uint32
	ScriptSig string
	Sequence  uint32
}

// TxOut is one created outpoint. Address is empty when the script pays to no
// standard single owner.
type TxOut struct {
	N            uint32
	Value        uint64
	ScriptPubKey string
	Address      string
}
