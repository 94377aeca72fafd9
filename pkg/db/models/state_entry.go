package models

import "time"

// StateEntry is one persisted JSON document addressed by namespace and key.
type StateEntry struct {
	Namespace string    `gorm:"column:namespace;primaryKey"`
	StateKey  string    `gorm:"column:state_key;primaryKey"`
	Payload   string    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (StateEntry) TableName() string { return "state_entries" }
