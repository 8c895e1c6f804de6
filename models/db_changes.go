package models

import (
	"time"
)

// Change actions recorded in the db_changes outbox.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
)

// Table names carried by DBChange rows.
const (
	ChangeTableOrders     = "orders"
	ChangeTableOrderItems = "order_items"
)

// DBChange is written in the same transaction as the row it describes and later
// drained by the change monitor.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	MerchantID uint      `gorm:"not null;index"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action"`
	RecordID   uint      `gorm:"not null"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action"`
	ChangedAt  time.Time `gorm:"not null"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
