package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/comanda-pos/api/internal/service"
	"github.com/sirupsen/logrus"
)

// AllTables is the room that receives every order event.
const AllTables = 0

// ErrHubClosed is returned when broadcasting after Run has returned.
var ErrHubClosed = errors.New("ws hub closed")

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// tableEvent routes an event to one table's room and the all-orders room
type tableEvent struct {
	Table int
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by table number
	rooms map[int]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *tableEvent

	// Closed when Run returns
	done chan struct{}

	billing *service.BillingView
	log     logrus.FieldLogger

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(billing *service.BillingView, log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms:      make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *tableEvent, 256),
		done:       make(chan struct{}),
		billing:    billing,
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing
// every client.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for table, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, table)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.table] == nil {
				h.rooms[client.table] = make(map[*Client]bool)
			}
			h.rooms[client.table][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.WithError(err).WithField("event", event.Event.Type).Error("marshal ws event")
				continue
			}

			h.mu.Lock()
			h.sendLocked(event.Table, message)
			if event.Table != AllTables {
				h.sendLocked(AllTables, message)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) sendLocked(table int, message []byte) {
	for client := range h.rooms[table] {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, close and unregister
			h.removeLocked(client)
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.table]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	// Clean up empty rooms
	if len(clients) == 0 {
		delete(h.rooms, client.table)
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToTable sends an event to the table's room and to the
// all-orders room.
func (h *Hub) BroadcastToTable(ctx context.Context, table int, event Event) error {
	select {
	case h.broadcast <- &tableEvent{Table: table, Event: event}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements service.EventPublisher. The payload is the priced
// order.
func (h *Hub) Publish(ctx context.Context, evt service.OrderEvent) error {
	detail, err := h.billing.Detail(evt.Order)
	if err != nil {
		return fmt.Errorf("describe order %d: %w", evt.Order.ID, err)
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal order %d: %w", evt.Order.ID, err)
	}
	return h.BroadcastToTable(ctx, evt.Order.TableNumber, Event{Type: evt.Type, Payload: payload})
}
