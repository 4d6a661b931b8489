package model

import "time"

// Transaction is one indexed transaction. BlockHash and BlockHeight are null
// while the transaction is only known from the mempool; a later block apply
// promotes the row in place instead of inserting a duplicate.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	TxID        string    `gorm:"column:txid;not null;uniqueIndex" json:"txid"`
	BlockHash   *string   `gorm:"index" json:"block_hash"`
	BlockHeight *uint64   `gorm:"index" json:"block_height"`
	Version     uint32    `gorm:"not null" json:"version"`
	LockTime    uint32    `gorm:"column:locktime;not null" json:"locktime"`
	Size        uint32    `gorm:"not null" json:"size"`
	VSize       uint32    `gorm:"column:vsize;not null" json:"vsize"`
	Weight      uint32    `gorm:"not null" json:"weight"`
	Fee         *uint64   `json:"fee"`
	CreatedAt   time.Time `json:"-"`
}

// TransactionInput records one consumed outpoint. PrevTxID and Vout are null
// for coinbase inputs.
type TransactionInput struct {
	ID            uint    `gorm:"primaryKey" json:"-"`
	TransactionID uint    `gorm:"not null;index" json:"-"`
	Vout          *uint32 `json:"vout"`
	PrevTxID      *string `gorm:"column:prev_txid;index" json:"prev_txid"`
	ScriptSig     string  `json:"script_sig"`
	Sequence      uint32  `gorm:"not null" json:"sequence"`
}

// TransactionOutput records one created outpoint. Spend state lives here:
// Spent flips in place when a later input consumes the output, and the
// spender reference identifies the exact consuming input.
type TransactionOutput struct {
	ID            uint    `gorm:"primaryKey" json:"-"`
	TransactionID uint    `gorm:"not null;index:unique_tx_output_n,unique" json:"-"`
	N             uint32  `gorm:"not null;index:unique_tx_output_n,unique" json:"n"`
	Value         uint64  `gorm:"not null" json:"value"`
	ScriptPubKey  string  `gorm:"column:script_pubkey" json:"script_pubkey"`
	Address       *string `gorm:"index" json:"address"`
	Spent         bool    `gorm:"not null;default:false" json:"spent"`
	SpentByTxID   *string `gorm:"column:spent_by_txid" json:"spent_by_txid"`
	SpentByVin    *uint32 `gorm:"column:spent_by_vin" json:"spent_by_vin"`
}
