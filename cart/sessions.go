package cart

import (
	"context"
	"sync"

	"github.com/yeremiapane/restaurant-orders/storage"
)

// Sessions opens carts for short-lived requests. Requests for the same cart key
// are run one at a time, so a load-modify-save never overwrites a change made
// by an overlapping request.
type Sessions struct {
	kv   storage.KV
	opts []Option

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessions(kv storage.KV, opts ...Option) *Sessions {
	return &Sessions{kv: kv, opts: opts, locks: make(map[string]*keyLock)}
}

// Do loads the cart of session for merchantID and runs fn on it while holding
// that cart's lock. fn must not keep the store after it returns.
func (s *Sessions) Do(ctx context.Context, session string, merchantID uint, fn func(*Store) error) error {
	opts := append(append([]Option(nil), s.opts...), WithKeyPrefix("cart:"+session))
	store := NewStore(s.kv, opts...)
	key := store.Key(merchantID)

	l := s.acquire(key)
	defer s.release(key, l)

	store.SetMerchant(ctx, merchantID)
	return fn(store)
}

func (s *Sessions) acquire(key string) *keyLock {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *Sessions) release(key string, l *keyLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
	s.mu.Unlock()
}

// pending is the number of cart keys currently locked or waited on.
func (s *Sessions) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
