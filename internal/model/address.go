package model

import "time"

// Address is the running aggregate for one address. Rows are created lazily
// on the first credited output and never deleted; revoking every crediting
// block returns the aggregate fields to zero.
type Address struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	Address        string    `gorm:"not null;uniqueIndex" json:"address"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	TxCount        uint32    `gorm:"column:tx_count;not null;default:0" json:"tx_count"`
	FirstSeenBlock uint64    `gorm:"not null" json:"first_seen_block"`
	LastSeenBlock  uint64    `gorm:"not null" json:"last_seen_block"`
	CreatedAt      time.Time `json:"-"`
}
