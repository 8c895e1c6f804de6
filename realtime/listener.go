// Package realtime turns merchant-scoped change notifications into full reloads of
// the staff board.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-orders/apperrors"
	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

const defaultAlertTimeout = 2 * time.Second

// ReloadFunc re-fetches the merchant's orders from the backend.
type ReloadFunc func(ctx context.Context) error

// Alerter plays the new-order sound on the staff display.
type Alerter interface {
	Play(ctx context.Context, merchantID uint, orderID uint) error
}

// Listener holds the orders and order_items subscriptions for one merchant.
// Notifications are coalesced: everything that arrives before the worker picks
// up the pending signal is served by a single reload.
type Listener struct {
	merchantID uint
	reload     ReloadFunc
	alerter    Alerter

	subs   []*kds.Subscription
	dirty  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open subscribes for merchantID and starts the reload worker. Close must be
// called when the merchant context goes away.
func Open(hub kds.Subscriber, merchantID uint, reload ReloadFunc, alerter Alerter) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		merchantID: merchantID,
		reload:     reload,
		alerter:    alerter,
		dirty:      make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	l.subs = []*kds.Subscription{
		hub.Subscribe(kds.Scope{
			MerchantID: merchantID,
			Table:      models.ChangeTableOrders,
			Actions:    []string{models.ActionInsert, models.ActionUpdate},
		}, l.onOrderChange),
		hub.Subscribe(kds.Scope{
			MerchantID: merchantID,
			Table:      models.ChangeTableOrderItems,
			Actions:    []string{models.ActionInsert},
		}, l.onItemChange),
	}

	go l.run()
	return l
}

func (l *Listener) MerchantID() uint { return l.merchantID }

func (l *Listener) onOrderChange(change kds.Change) {
	if change.Action == models.ActionInsert {
		l.alert(change.RecordID)
	}
	l.markDirty()
}

func (l *Listener) onItemChange(kds.Change) {
	l.markDirty()
}

func (l *Listener) markDirty() {
	if l.ctx.Err() != nil {
		return
	}
	select {
	case l.dirty <- struct{}{}:
	default:
	}
}

func (l *Listener) alert(orderID uint) {
	if l.alerter == nil || l.ctx.Err() != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(l.ctx, defaultAlertTimeout)
		defer cancel()
		if err := l.alerter.Play(ctx, l.merchantID, orderID); err != nil {
			perr := &apperrors.NonFatalPlaybackError{Err: err}
			utils.InfoLogger.WithError(perr).WithField("merchant_id", l.merchantID).Debug("new order alert skipped")
		}
	}()
}

func (l *Listener) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.dirty:
			if l.ctx.Err() != nil {
				return
			}
			if err := l.reload(l.ctx); err != nil && l.ctx.Err() == nil {
				utils.ErrorLogger.WithError(apperrors.Transient("reload orders", err)).
					WithField("merchant_id", l.merchantID).Error("realtime reload failed")
			}
		}
	}
}

// Close unsubscribes and waits for an in-flight reload to return. Safe to call
// more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		for _, s := range l.subs {
			s.Unsubscribe()
		}
		l.cancel()
		<-l.done
	})
}
