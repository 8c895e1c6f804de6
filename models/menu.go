package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Menu struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MerchantID uint            `gorm:"not null;index" json:"merchant_id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL   *string         `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}
