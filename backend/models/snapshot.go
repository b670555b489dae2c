package models

import "time"

// Snapshot is a keyed blob of persisted client state.
type Snapshot struct {
	ID        string    `gorm:"primaryKey"` // snapshot key
	Data      string    `gorm:"not null"`
	UpdatedAt time.Time
}
