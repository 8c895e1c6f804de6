package board

import (
	"context"
	"sync"

	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/realtime"
)

// Snapshot is the read model pushed to staff displays.
type Snapshot struct {
	MerchantID  uint           `json:"merchant_id"`
	Orders      []models.Order `json:"orders"`
	ActiveCount int            `json:"active_count"`
}

func NewSnapshot(merchantID uint, orders []models.Order) Snapshot {
	if orders == nil {
		orders = []models.Order{}
	}
	active := 0
	for _, o := range orders {
		if models.IsActiveStatus(o.Status) {
			active++
		}
	}
	return Snapshot{MerchantID: merchantID, Orders: orders, ActiveCount: active}
}

// Registry keeps one mounted Board per merchant and pushes every change to the
// merchant's websocket clients.
type Registry struct {
	backend Backend
	hub     *kds.Hub
	alerter realtime.Alerter

	mu     sync.Mutex
	boards map[uint]*Board
}

func NewRegistry(backend Backend, hub *kds.Hub, alerter realtime.Alerter) *Registry {
	return &Registry{
		backend: backend,
		hub:     hub,
		alerter: alerter,
		boards:  make(map[uint]*Board),
	}
}

// Get returns the merchant's board, mounting it on first use. The mount runs
// outside the registry lock; when two callers race, the first insert wins and
// the other board is dismissed.
func (r *Registry) Get(ctx context.Context, merchantID uint) (*Board, error) {
	r.mu.Lock()
	b, ok := r.boards[merchantID]
	r.mu.Unlock()
	if ok {
		return b, nil
	}

	b = New(r.backend, r.hub,
		WithAlerter(r.alerter),
		WithOnChange(func(merchantID uint, orders []models.Order) {
			r.hub.Broadcast(merchantID, kds.Message{
				Event: kds.EventBoardUpdate,
				Data:  NewSnapshot(merchantID, orders),
			})
		}),
	)
	if err := b.Mount(ctx, merchantID); err != nil {
		b.Dismiss()
		return nil, err
	}

	r.mu.Lock()
	existing, ok := r.boards[merchantID]
	if !ok {
		r.boards[merchantID] = b
	}
	r.mu.Unlock()
	if ok {
		b.Dismiss()
		return existing, nil
	}
	return b, nil
}

// Dismiss tears down one merchant's board.
func (r *Registry) Dismiss(merchantID uint) {
	r.mu.Lock()
	b, ok := r.boards[merchantID]
	delete(r.boards, merchantID)
	r.mu.Unlock()
	if ok {
		b.Dismiss()
	}
}

// Close dismisses every board.
func (r *Registry) Close() {
	r.mu.Lock()
	boards := r.boards
	r.boards = make(map[uint]*Board)
	r.mu.Unlock()

	for _, b := range boards {
		b.Dismiss()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
