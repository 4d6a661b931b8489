package model

import "time"

// Block is one row of the locally mirrored chain. Exactly one row exists per
// height on the current local chain; NextHash is set only while a recorded
// child block exists.
type Block struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Hash         string    `gorm:"not null;uniqueIndex" json:"hash"`
	Height       uint64    `gorm:"not null;uniqueIndex" json:"height"`
	PreviousHash string    `gorm:"not null;index" json:"previous_hash"`
	NextHash     *string   `json:"next_hash"`
	Version      int32     `gorm:"not null" json:"version"`
	MerkleRoot   string    `gorm:"column:merkleroot;not null" json:"merkleroot"`
	Time         time.Time `gorm:"not null" json:"time"`
	Nonce        uint32    `gorm:"not null" json:"nonce"`
	Bits         uint32    `gorm:"not null" json:"bits"`
	Difficulty   float64   `gorm:"not null" json:"difficulty"`
	ChainWork    string    `gorm:"column:chainwork" json:"chainwork"`
	TxCount      uint32    `gorm:"column:n_tx;not null" json:"n_tx"`
	Size         uint32    `gorm:"not null" json:"size"`
	Weight       uint32    `gorm:"not null" json:"weight"`
	CreatedAt    time.Time `json:"-"`
}
