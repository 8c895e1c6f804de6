// Package repository is the backend collaborator: tables, menus, orders and the
// db_changes outbox that feeds realtime notifications.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-orders/apperrors"
	"github.com/yeremiapane/restaurant-orders/models"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}

func (r *OrderRepository) TablesByMerchant(ctx context.Context, merchantID uint) ([]models.Table, error) {
	var tables []models.Table
	if err := r.DB.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("table_number ASC").
		Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// FindTableByLabel resolves the label a diner typed or scanned to a table row.
func (r *OrderRepository) FindTableByLabel(ctx context.Context, merchantID uint, label string) (*models.Table, error) {
	var table models.Table
	err := r.DB.WithContext(ctx).
		Where("merchant_id = ? AND table_number = ?", merchantID, label).
		First(&table).Error
	if err != nil {
		return nil, notFound(err, "table", label)
	}
	return &table, nil
}

func (r *OrderRepository) MenusByMerchant(ctx context.Context, merchantID uint) ([]models.Menu, error) {
	var menus []models.Menu
	if err := r.DB.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("id ASC").
		Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return menus, nil
}

func (r *OrderRepository) GetMenu(ctx context.Context, merchantID, menuID uint) (*models.Menu, error) {
	var menu models.Menu
	err := r.DB.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, menuID).
		First(&menu).Error
	if err != nil {
		return nil, notFound(err, "menu", menuID)
	}
	return &menu, nil
}

// ListOrders returns the merchant's orders newest first, with items and table.
func (r *OrderRepository) ListOrders(ctx context.Context, merchantID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Table").
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Table").
		First(&order, orderID).Error
	if err != nil {
		return nil, notFound(err, "order", orderID)
	}
	return &order, nil
}

// CreateOrderWithItems writes the order, its items and their change rows in one
// transaction, so an order is never visible without its lines.
func (r *OrderRepository) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.OrderItems = nil
		if err := tx.Omit("Table", "OrderItems").Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := recordChange(tx, order.MerchantID, models.ChangeTableOrders, order.ID, models.ActionInsert); err != nil {
			return err
		}

		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		for _, item := range items {
			if err := recordChange(tx, order.MerchantID, models.ChangeTableOrderItems, item.ID, models.ActionInsert); err != nil {
				return err
			}
		}
		order.OrderItems = items
		return nil
	})
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID uint, status string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Select("id", "merchant_id").First(&order, orderID).Error; err != nil {
			return notFound(err, "order", orderID)
		}

		if err := tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return recordChange(tx, order.MerchantID, models.ChangeTableOrders, orderID, models.ActionUpdate)
	})
}

func recordChange(tx *gorm.DB, merchantID uint, table string, recordID uint, action string) error {
	change := models.DBChange{
		MerchantID: merchantID,
		TableName:  table,
		RecordID:   recordID,
		ActionType: action,
		ChangedAt:  time.Now(),
	}
	if err := tx.Create(&change).Error; err != nil {
		return fmt.Errorf("record %s change on %s: %w", action, table, err)
	}
	return nil
}

// UnprocessedChanges returns up to limit pending outbox rows, oldest first.
func (r *OrderRepository) UnprocessedChanges(ctx context.Context, limit int) ([]models.DBChange, error) {
	var changes []models.DBChange
	if err := r.DB.WithContext(ctx).
		Where("processed = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("fetch changes: %w", err)
	}
	return changes, nil
}

func (r *OrderRepository) MarkChangesProcessed(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.DB.WithContext(ctx).
		Model(&models.DBChange{}).
		Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		return fmt.Errorf("mark changes processed: %w", err)
	}
	return nil
}
