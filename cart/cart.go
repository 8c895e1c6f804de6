// Package cart keeps a diner's per-merchant cart in memory and mirrors every change
// to a key-value store.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-orders/storage"
	"github.com/yeremiapane/restaurant-orders/utils"
)

const defaultIOTimeout = 3 * time.Second

// Item is what the menu hands to Add.
type Item struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef *string         `json:"image_ref,omitempty"`
}

// Line is one distinct item in the cart. Quantity is always >= 1.
type Line struct {
	ItemID    uint            `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  *string         `json:"image_ref,omitempty"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type persisted struct {
	Lines []Line `json:"lines"`
}

type Option func(*Store)

// WithKeyPrefix namespaces the storage key, e.g. per browsing session.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func WithIOTimeout(d time.Duration) Option {
	return func(s *Store) { s.ioTimeout = d }
}

// Store is the cart for one merchant at a time. Mutations never fail; storage
// errors are logged.
type Store struct {
	kv        storage.KV
	prefix    string
	ioTimeout time.Duration

	mu         sync.Mutex
	merchantID uint
	lines      []Line
	loaded     bool
	generation uint64
}

func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		prefix:    "cart",
		ioTimeout: defaultIOTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key for merchantID.
func (s *Store) Key(merchantID uint) string {
	return fmt.Sprintf("%s:%d", s.prefix, merchantID)
}

// SetMerchant switches the store to merchantID: memory is reset and the persisted
// cart is loaded. Mutations issued before the load finishes are applied in memory
// but not persisted, and a load that was superseded by another SetMerchant is
// discarded.
func (s *Store) SetMerchant(ctx context.Context, merchantID uint) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.merchantID = merchantID
	s.lines = nil
	s.loaded = false
	s.mu.Unlock()

	lines := s.read(ctx, merchantID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.lines = lines
	s.loaded = true
}

func (s *Store) read(ctx context.Context, merchantID uint) []Line {
	ctx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	key := s.Key(merchantID)
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("key", key).Error("cart load failed")
		return nil
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		utils.InfoLogger.WithError(err).WithField("key", key).Warn("malformed cart payload, starting empty")
		return nil
	}

	lines := make([]Line, 0, len(p.Lines))
	for _, l := range p.Lines {
		if l.Quantity < 1 {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func (s *Store) MerchantID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merchantID
}

// Loaded reports whether the initial load for the current merchant completed.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Add increments the item's line, or appends a new line with quantity 1.
func (s *Store) Add(item Item) {
	s.mutate(func(lines []Line) []Line {
		for i := range lines {
			if lines[i].ItemID == item.ID {
				lines[i].Quantity++
				return lines
			}
		}
		return append(lines, Line{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  1,
			ImageRef:  item.ImageRef,
		})
	})
}

// Remove decrements the item's line and drops it once it would reach zero.
func (s *Store) Remove(itemID uint) {
	s.mutate(func(lines []Line) []Line {
		for i := range lines {
			if lines[i].ItemID != itemID {
				continue
			}
			if lines[i].Quantity > 1 {
				lines[i].Quantity--
				return lines
			}
			return append(lines[:i], lines[i+1:]...)
		}
		return lines
	})
}

func (s *Store) Clear() {
	s.mutate(func([]Line) []Line { return nil })
}

func (s *Store) mutate(fn func([]Line) []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = fn(s.lines)
	if !s.loaded {
		return
	}
	s.persistLocked()
}

// persistLocked writes while holding mu so saves for one merchant stay ordered.
func (s *Store) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), s.ioTimeout)
	defer cancel()

	key := s.Key(s.merchantID)
	if len(s.lines) == 0 {
		if err := s.kv.Remove(ctx, key); err != nil {
			utils.ErrorLogger.WithError(err).WithField("key", key).Error("cart remove failed")
		}
		return
	}

	data, err := json.Marshal(persisted{Lines: s.lines})
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("key", key).Error("cart marshal failed")
		return
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		utils.ErrorLogger.WithError(err).WithField("key", key).Error("cart save failed")
	}
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.lines)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.lines)
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func totalItems(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func totalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Snapshot is the JSON view handed to the presentation layer.
type Snapshot struct {
	MerchantID uint            `json:"merchant_id"`
	Lines      []Line          `json:"lines"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		MerchantID: s.merchantID,
		Lines:      append([]Line{}, s.lines...),
		TotalItems: totalItems(s.lines),
		TotalPrice: totalPrice(s.lines),
	}
}
