package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-orders/apperrors"
	"github.com/yeremiapane/restaurant-orders/cart"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

// CartSource is the cart being checked out.
type CartSource interface {
	Lines() []cart.Line
	Clear()
}

// OrderWriter is the part of the backend checkout writes to.
type OrderWriter interface {
	FindTableByLabel(ctx context.Context, merchantID uint, label string) (*models.Table, error)
	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
}

type CheckoutService struct {
	repo OrderWriter
}

func NewCheckoutService(repo OrderWriter) *CheckoutService {
	return &CheckoutService{repo: repo}
}

// Checkout turns the cart into a pending order for merchantID. An unknown table
// label is tolerated and the order is placed without a table. The order and its
// lines are written atomically; the cart is cleared only on success.
func (s *CheckoutService) Checkout(ctx context.Context, c CartSource, merchantID uint, tableLabel string) (*models.Order, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, apperrors.NewValidation("cart", "cart is empty")
	}
	label := strings.TrimSpace(tableLabel)
	if label == "" {
		return nil, apperrors.NewValidation("table", "table is required")
	}

	var tableID *uint
	table, err := s.repo.FindTableByLabel(ctx, merchantID, label)
	switch {
	case err == nil:
		tableID = &table.ID
	case errors.Is(err, apperrors.ErrNotFound):
		utils.InfoLogger.WithField("merchant_id", merchantID).
			WithField("table", label).Warn("table label not found, placing order without table")
	default:
		return nil, apperrors.Transient("resolve table", err)
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		total = total.Add(l.Subtotal())
		items = append(items, models.OrderItem{
			MenuID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPrice,
		})
	}

	order := &models.Order{
		MerchantID: merchantID,
		TableID:    tableID,
		Status:     models.OrderStatusPending,
		TotalPrice: total,
	}
	if err := s.repo.CreateOrderWithItems(ctx, order, items); err != nil {
		return nil, apperrors.Transient("create order", err)
	}
	order.Table = table

	c.Clear()
	utils.InfoLogger.Printf("Order #%d placed for merchant %d (table=%q, total=%s)",
		order.ID, merchantID, label, total.StringFixed(2))
	return order, nil
}

// CheckoutStore is Checkout for a cart.Store, using the store's own merchant.
func (s *CheckoutService) CheckoutStore(ctx context.Context, store *cart.Store, tableLabel string) (*models.Order, error) {
	if !store.Loaded() {
		return nil, apperrors.NewValidation("cart", "cart is still loading")
	}
	return s.Checkout(ctx, store, store.MerchantID(), tableLabel)
}
