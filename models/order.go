package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MerchantID uint            `gorm:"not null;index:idx_orders_merchant_created" json:"merchant_id"`
	TableID    *uint           `gorm:"index" json:"table_id,omitempty"`
	Table      *Table          `gorm:"foreignKey:TableID" json:"table,omitempty"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_price"`
	CreatedAt  time.Time       `gorm:"not null;index:idx_orders_merchant_created" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
	OrderItems []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
}

// TableLabel returns the human-facing table label, or "" for orders placed without one.
func (o *Order) TableLabel() string {
	if o.Table == nil {
		return ""
	}
	return o.Table.TableNumber
}

// Clone copies the order together with its items so callers can't alias board state.
func (o Order) Clone() Order {
	c := o
	if o.OrderItems != nil {
		c.OrderItems = append([]OrderItem(nil), o.OrderItems...)
	}
	if o.Table != nil {
		t := *o.Table
		c.Table = &t
	}
	if o.TableID != nil {
		id := *o.TableID
		c.TableID = &id
	}
	return c
}
