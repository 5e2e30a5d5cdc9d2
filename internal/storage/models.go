package storage

import "time"

// Entry is a progress blob row.
type Entry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName keeps the table name stable across renames of the Go type.
func (Entry) TableName() string { return "progress_entries" }

// TableName names the session history table.
func (SessionRecord) TableName() string { return "sessions" }
