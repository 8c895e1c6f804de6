package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-orders/storage"
)

var (
	burger = Item{ID: 1, Name: "Burger", Price: decimal.RequireFromString("12.50")}
	fries  = Item{ID: 2, Name: "Fries", Price: decimal.RequireFromString("3.25")}
)

func newLoadedStore(t *testing.T, kv storage.KV, merchantID uint) *Store {
	t.Helper()
	s := NewStore(kv)
	s.SetMerchant(context.Background(), merchantID)
	require.True(t, s.Loaded())
	return s
}

func TestAdd_IncrementsExistingLine(t *testing.T) {
	s := newLoadedStore(t, storage.NewMemoryKV(), 1)

	s.Add(burger)
	s.Add(burger)
	s.Add(fries)

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, uint(1), lines[0].ItemID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.Equal(t, 3, s.TotalItems())
	assert.True(t, decimal.RequireFromString("28.25").Equal(s.TotalPrice()))
}

func TestRemove_QuantityOneDropsLine(t *testing.T) {
	s := newLoadedStore(t, storage.NewMemoryKV(), 1)
	s.Add(burger)
	s.Add(fries)

	s.Remove(burger.ID)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, fries.ID, lines[0].ItemID)
	assert.Equal(t, 1, s.TotalItems())
}

func TestRemove_DecrementsAndIgnoresUnknown(t *testing.T) {
	s := newLoadedStore(t, storage.NewMemoryKV(), 1)
	s.Add(burger)
	s.Add(burger)

	s.Remove(burger.ID)
	s.Remove(99)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestTotals_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := []Item{burger, fries, {ID: 3, Name: "Soda", Price: decimal.RequireFromString("1.99")}}

	for run := 0; run < 50; run++ {
		s := newLoadedStore(t, storage.NewMemoryKV(), 7)
		want := map[uint]int{}

		for step := 0; step < 200; step++ {
			item := items[rng.Intn(len(items))]
			if rng.Intn(2) == 0 {
				s.Add(item)
				want[item.ID]++
			} else {
				s.Remove(item.ID)
				if want[item.ID] > 0 {
					want[item.ID]--
				}
			}

			sum := 0
			for _, l := range s.Lines() {
				require.GreaterOrEqual(t, l.Quantity, 1)
				require.Equal(t, want[l.ItemID], l.Quantity)
				sum += l.Quantity
			}
			require.Equal(t, sum, s.TotalItems())
			require.GreaterOrEqual(t, s.TotalItems(), 0)
		}
	}
}

func TestPersist_RoundTrip(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := newLoadedStore(t, kv, 5)
	s.Add(burger)
	s.Add(burger)
	s.Add(fries)

	reloaded := newLoadedStore(t, kv, 5)
	want, got := s.Lines(), reloaded.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ItemID, got[i].ItemID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice))
	}
	assert.Equal(t, 3, reloaded.TotalItems())
	assert.True(t, s.TotalPrice().Equal(reloaded.TotalPrice()))
}

func TestPersist_ScopedPerMerchant(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := newLoadedStore(t, kv, 1)
	s.Add(burger)

	s.SetMerchant(context.Background(), 2)
	assert.True(t, s.IsEmpty())
	s.Add(fries)

	s.SetMerchant(context.Background(), 1)
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, burger.ID, lines[0].ItemID)
}

func TestClear_RemovesKey(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := newLoadedStore(t, kv, 3)
	s.Add(burger)

	s.Clear()

	assert.True(t, s.IsEmpty())
	_, err := kv.Get(context.Background(), s.Key(3))
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestLoad_MalformedPayloadIsEmpty(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), "cart:9", []byte("{not json")))

	s := newLoadedStore(t, kv, 9)

	assert.True(t, s.IsEmpty())
	s.Add(fries)
	assert.Equal(t, 1, s.TotalItems())
}

func TestLoad_DropsNonPositiveQuantities(t *testing.T) {
	kv := storage.NewMemoryKV()
	payload := `{"lines":[{"item_id":1,"name":"Burger","unit_price":"12.5","quantity":0},{"item_id":2,"name":"Fries","unit_price":"3.25","quantity":2}]}`
	require.NoError(t, kv.Set(context.Background(), "cart:4", []byte(payload)))

	s := newLoadedStore(t, kv, 4)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, uint(2), lines[0].ItemID)
}

func TestKeyPrefix(t *testing.T) {
	s := NewStore(storage.NewMemoryKV(), WithKeyPrefix("cart:session-1"))
	assert.Equal(t, "cart:session-1:12", s.Key(12))
}

// gatedKV blocks Get until the gate for that key is released.
type gatedKV struct {
	*storage.MemoryKV
	mu    sync.Mutex
	gates map[string]chan struct{}
	sets  int
}

func newGatedKV() *gatedKV {
	return &gatedKV{MemoryKV: storage.NewMemoryKV(), gates: map[string]chan struct{}{}}
}

func (g *gatedKV) gate(key string) chan struct{} {
	ch := make(chan struct{})
	g.mu.Lock()
	g.gates[key] = ch
	g.mu.Unlock()
	return ch
}

func (g *gatedKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.Lock()
	ch := g.gates[key]
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return g.MemoryKV.Get(ctx, key)
}

func (g *gatedKV) Set(ctx context.Context, key string, value []byte) error {
	g.mu.Lock()
	g.sets++
	g.mu.Unlock()
	return g.MemoryKV.Set(ctx, key, value)
}

func (g *gatedKV) setCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sets
}

func TestMutationBeforeLoadIsNotPersisted(t *testing.T) {
	kv := newGatedKV()
	require.NoError(t, kv.MemoryKV.Set(context.Background(), "cart:1", []byte(`{"lines":[{"item_id":2,"name":"Fries","unit_price":"3.25","quantity":4}]}`)))
	release := kv.gate("cart:1")

	s := NewStore(kv)
	done := make(chan struct{})
	go func() {
		s.SetMerchant(context.Background(), 1)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.MerchantID() == 1 }, time.Second, time.Millisecond)
	s.Add(burger)
	assert.False(t, s.Loaded())
	assert.Equal(t, 0, kv.setCount())

	close(release)
	<-done

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestSupersededLoadIsDiscarded(t *testing.T) {
	kv := newGatedKV()
	ctx := context.Background()
	require.NoError(t, kv.MemoryKV.Set(ctx, "cart:1", []byte(`{"lines":[{"item_id":1,"name":"Burger","unit_price":"12.5","quantity":1}]}`)))
	release := kv.gate("cart:1")

	s := NewStore(kv)
	done := make(chan struct{})
	go func() {
		s.SetMerchant(ctx, 1)
		close(done)
	}()
	require.Eventually(t, func() bool { return s.MerchantID() == 1 }, time.Second, time.Millisecond)

	s.SetMerchant(ctx, 2)
	s.Add(fries)

	close(release)
	<-done

	assert.Equal(t, uint(2), s.MerchantID())
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, fries.ID, lines[0].ItemID)

	raw, err := kv.MemoryKV.Get(ctx, "cart:1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"item_id":1`)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (failingKV) Remove(context.Context, string) error        { return errors.New("down") }

func TestStorageFailuresNeverSurface(t *testing.T) {
	s := NewStore(failingKV{})
	s.SetMerchant(context.Background(), 1)

	s.Add(burger)
	s.Remove(burger.ID)
	s.Add(fries)
	s.Clear()

	assert.True(t, s.Loaded())
	assert.True(t, s.IsEmpty())
}
