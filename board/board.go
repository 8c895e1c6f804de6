// Package board is the staff order board: the in-memory list of a merchant's
// orders, optimistic status changes with rollback, and the realtime listener
// lifecycle.
package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeremiapane/restaurant-orders/apperrors"
	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/realtime"
	"github.com/yeremiapane/restaurant-orders/utils"
)

// Backend is the slice of the order repository the board needs.
type Backend interface {
	ListOrders(ctx context.Context, merchantID uint) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status string) error
}

// Board owns the order list for one merchant at a time. Readers only ever get
// copies.
type Board struct {
	backend Backend
	hub     kds.Subscriber
	alerter realtime.Alerter

	mu         sync.Mutex
	merchantID uint
	orders     []models.Order
	listener   *realtime.Listener
	onChange   func(merchantID uint, orders []models.Order)
}

type Option func(*Board)

// WithOnChange registers an observer called after every change to the list.
func WithOnChange(fn func(merchantID uint, orders []models.Order)) Option {
	return func(b *Board) { b.onChange = fn }
}

func WithAlerter(a realtime.Alerter) Option {
	return func(b *Board) { b.alerter = a }
}

func New(backend Backend, hub kds.Subscriber, opts ...Option) *Board {
	b := &Board{backend: backend, hub: hub}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mount switches the board to merchantID: the previous listener is torn down, a
// new one is opened, and the list is loaded.
func (b *Board) Mount(ctx context.Context, merchantID uint) error {
	b.mu.Lock()
	old := b.listener
	b.listener = nil
	b.merchantID = merchantID
	b.orders = nil
	b.mu.Unlock()

	if old != nil {
		old.Close()
	}

	l := realtime.Open(b.hub, merchantID, b.reloadFor(merchantID), b.alerter)

	b.mu.Lock()
	if b.merchantID != merchantID || b.listener != nil {
		b.mu.Unlock()
		l.Close()
		return nil
	}
	b.listener = l
	b.mu.Unlock()

	utils.InfoLogger.WithField("merchant_id", merchantID).Info("order board mounted")
	return b.Load(ctx)
}

// Dismiss releases the listener. The cached list is kept until the next Mount.
func (b *Board) Dismiss() {
	b.mu.Lock()
	l := b.listener
	b.listener = nil
	b.mu.Unlock()

	if l != nil {
		l.Close()
		utils.InfoLogger.WithField("merchant_id", l.MerchantID()).Info("order board dismissed")
	}
}

// reloadFor binds a reload to the merchant the listener was opened for, so a late
// notification can never load into another merchant's board.
func (b *Board) reloadFor(merchantID uint) realtime.ReloadFunc {
	return func(ctx context.Context) error {
		return b.load(ctx, merchantID)
	}
}

func (b *Board) MerchantID() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.merchantID
}

// Load replaces the list with the backend's orders, newest first.
func (b *Board) Load(ctx context.Context) error {
	return b.load(ctx, b.MerchantID())
}

func (b *Board) load(ctx context.Context, merchantID uint) error {
	orders, err := b.backend.ListOrders(ctx, merchantID)
	if err != nil {
		return apperrors.Transient("load orders", err)
	}

	b.mu.Lock()
	if b.merchantID != merchantID {
		b.mu.Unlock()
		return nil
	}
	b.orders = orders
	b.mu.Unlock()

	b.notify(merchantID, orders)
	return nil
}

// UpdateStatus moves orderID to status. The change is applied to the list before
// the backend call; on failure only that order is put back and the error is
// returned. An order with no successor (paid) is left untouched.
func (b *Board) UpdateStatus(ctx context.Context, orderID uint, status string) error {
	if err := b.ensureListed(ctx, orderID); err != nil {
		return err
	}

	b.mu.Lock()
	merchantID := b.merchantID
	current, ok := findOrder(b.orders, orderID)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
	}
	if _, hasNext := models.NextStatus(current.Status); !hasNext {
		b.mu.Unlock()
		return nil
	}
	if !models.CanTransition(current.Status, status) {
		b.mu.Unlock()
		return apperrors.NewValidation("status",
			fmt.Sprintf("order %d cannot move from %s to %s", orderID, current.Status, status))
	}

	b.orders = applyStatus(b.orders, orderID, status)
	patched := b.orders
	b.mu.Unlock()
	b.notify(merchantID, patched)

	if err := b.backend.UpdateOrderStatus(ctx, orderID, status); err != nil {
		b.mu.Lock()
		var reverted []models.Order
		if b.merchantID == merchantID {
			b.orders = revertStatus(b.orders, orderID, current.Status, status)
			reverted = b.orders
		}
		b.mu.Unlock()
		if reverted != nil {
			b.notify(merchantID, reverted)
		}
		utils.ErrorLogger.WithError(err).WithField("order_id", orderID).Error("status update failed, rolled back")
		return apperrors.Transient("update order status", err)
	}

	return b.load(ctx, merchantID)
}

// Advance moves orderID to its next status, doing nothing when it has none.
func (b *Board) Advance(ctx context.Context, orderID uint) error {
	if err := b.ensureListed(ctx, orderID); err != nil {
		return err
	}

	b.mu.Lock()
	current, ok := findOrder(b.orders, orderID)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
	}
	next, hasNext := models.NextStatus(current.Status)
	if !hasNext {
		return nil
	}
	return b.UpdateStatus(ctx, orderID, next)
}

// ensureListed reloads once when orderID is not on the board yet, which happens
// between a checkout and the change notification that follows it.
func (b *Board) ensureListed(ctx context.Context, orderID uint) error {
	b.mu.Lock()
	merchantID := b.merchantID
	_, ok := findOrder(b.orders, orderID)
	b.mu.Unlock()
	if ok {
		return nil
	}

	if err := b.load(ctx, merchantID); err != nil {
		return err
	}

	b.mu.Lock()
	_, ok = findOrder(b.orders, orderID)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
	}
	return nil
}

// Orders returns a copy of the whole list, newest first.
func (b *Board) Orders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneOrders(b.orders)
}

func (b *Board) OrdersByStatus(status string) []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return filterByStatus(b.orders, status)
}

// ActiveCount is the number of pending plus preparing orders.
func (b *Board) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.orders {
		if models.IsActiveStatus(o.Status) {
			n++
		}
	}
	return n
}

func (b *Board) notify(merchantID uint, orders []models.Order) {
	if b.onChange == nil {
		return
	}
	b.onChange(merchantID, cloneOrders(orders))
}
