package kds

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-orders/utils"
)

// Event types pushed to websocket clients
const (
	EventBoardUpdate   = "board_update"
	EventNewOrderAlert = "new_order_alert"
)

const writeWait = 5 * time.Second

var ErrUnknownClient = errors.New("websocket client not registered")

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Change is one row-level change notification. Delivery is at-least-once.
type Change struct {
	MerchantID uint   `json:"merchant_id"`
	Table      string `json:"table"`
	Action     string `json:"action"`
	RecordID   uint   `json:"record_id"`
}

// Scope filters changes by merchant, table and action. Empty Actions matches all.
type Scope struct {
	MerchantID uint
	Table      string
	Actions    []string
}

func (s Scope) matches(c Change) bool {
	if c.MerchantID != s.MerchantID || c.Table != s.Table {
		return false
	}
	if len(s.Actions) == 0 {
		return true
	}
	for _, a := range s.Actions {
		if a == c.Action {
			return true
		}
	}
	return false
}

type Handler func(Change)

// Subscriber is the subscribe side of the hub.
type Subscriber interface {
	Subscribe(scope Scope, handler Handler) *Subscription
}

type subscription struct {
	scope   Scope
	handler Handler
}

type client struct {
	merchantID uint
	role       string
	mu         sync.Mutex
}

// Hub routes change notifications to in-process subscribers and pushes messages
// to websocket clients (staff boards), both scoped by merchant.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client
}

func NewHub() *Hub {
	return &Hub{
		subs:    make(map[uint64]subscription),
		clients: make(map[*websocket.Conn]*client),
	}
}

// Subscription is the handle returned by Subscribe. Unsubscribe releases it.
type Subscription struct {
	hub  *Hub
	id   uint64
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

func (h *Hub) Subscribe(scope Scope, handler Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.subs[h.nextID] = subscription{scope: scope, handler: handler}
	return &Subscription{hub: h, id: h.nextID}
}

// Publish delivers change to every matching subscriber. Handlers run on the
// caller's goroutine, outside the hub lock, and must not block.
func (h *Hub) Publish(change Change) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs))
	for _, s := range h.subs {
		if s.scope.matches(change) {
			handlers = append(handlers, s.handler)
		}
	}
	h.mu.RUnlock()

	for _, handle := range handlers {
		handle(change)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RegisterClient -> adds a websocket connection for one merchant's board
func (h *Hub) RegisterClient(conn *websocket.Conn, merchantID uint, role string) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[conn] = &client{merchantID: merchantID, role: role}
}

// UnregisterClient -> releases the connection
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.clientsMu.Unlock()
	if ok {
		conn.Close()
	}
}

func (h *Hub) ClientCount(merchantID uint) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.merchantID == merchantID {
			n++
		}
	}
	return n
}

// Broadcast sends msg to every client of merchantID. Clients that fail a write
// are dropped.
func (h *Hub) Broadcast(merchantID uint, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	h.clientsMu.RLock()
	targets := make(map[*websocket.Conn]*client)
	for conn, c := range h.clients {
		if c.merchantID == merchantID {
			targets[conn] = c
		}
	}
	h.clientsMu.RUnlock()

	for conn, c := range targets {
		h.write(conn, c, data)
	}
	utils.InfoLogger.Debugf("Broadcast %s to %d clients of merchant %d", msg.Event, len(targets), merchantID)
}

// Send writes msg to one registered client only.
func (h *Hub) Send(conn *websocket.Conn, msg Message) error {
	h.clientsMu.RLock()
	c, ok := h.clients[conn]
	h.clientsMu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Event, err)
	}
	return h.write(conn, c, data)
}

// write serializes writes per connection and drops the client on failure.
func (h *Hub) write(conn *websocket.Conn, c *client, data []byte) error {
	c.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()
	if err != nil {
		utils.InfoLogger.WithError(err).WithField("role", c.role).Warn("dropping websocket client")
		h.UnregisterClient(conn)
	}
	return err
}
