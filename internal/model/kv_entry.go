package model

import "time"

// Persisted snapshot keys
const (
	KeyInvoiceData      = "invoiceData"
	KeySelectedTemplate = "selectedTemplate"
)

// KVEntry is one row of the SQL-backed key-value store
type KVEntry struct {
	Key       string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
