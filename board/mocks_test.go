package board

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-orders/models"
)

// MockBackend implements Backend for testing
type MockBackend struct {
	mu        sync.Mutex
	orders    map[uint][]models.Order
	ListErr   error
	UpdateErr error
	listCalls int
	updates   []uint
}

func NewMockBackend() *MockBackend {
	return &MockBackend{orders: make(map[uint][]models.Order)}
}

// Put stores an order; newer IDs sort first like the real repository.
func (m *MockBackend) Put(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.orders[o.MerchantID]
	for i := range list {
		if list[i].ID == o.ID {
			list[i] = o
			return
		}
	}
	m.orders[o.MerchantID] = append([]models.Order{o}, list...)
}

func (m *MockBackend) ListOrders(_ context.Context, merchantID uint) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]models.Order(nil), m.orders[merchantID]...), nil
}

func (m *MockBackend) UpdateOrderStatus(_ context.Context, orderID uint, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, orderID)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for _, list := range m.orders {
		for i := range list {
			if list[i].ID == orderID {
				list[i].Status = status
			}
		}
	}
	return nil
}

func (m *MockBackend) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *MockBackend) UpdateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

func (m *MockBackend) SetUpdateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateErr = err
}

func testOrder(id, merchantID uint, status string) models.Order {
	return models.Order{
		ID:         id,
		MerchantID: merchantID,
		Status:     status,
		TotalPrice: decimal.RequireFromString("12.50"),
		CreatedAt:  time.Unix(int64(1700000000+id), 0),
	}
}
