package model

import "time"

// SyncStateID is the primary key of the singleton sync_state row.
const SyncStateID = 1

// SyncState is the single-row checkpoint of the local chain view. BestHash is
// empty only while the index holds no blocks. InProgress is the writer
// exclusion token: it is tested and set in one statement so concurrent sync
// triggers cannot both acquire it.
type SyncState struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	BestHeight   uint64    `gorm:"not null" json:"best_height"`
	BestHash     string    `gorm:"not null" json:"best_hash"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	InProgress   bool      `gorm:"not null;default:false" json:"in_progress"`
}

func (SyncState) TableName() string { return "sync_state" }
