package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/sirupsen/logrus"
)

// FirstOrderID is the identifier given to the first order of an empty ledger.
const FirstOrderID int64 = 1001

// Order is a finalized, ledger-owned order.
type Order struct {
	ID          int64
	TableNumber int
	Lines       []OrderLine
	Status      enum.OrderStatus
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

func (o Order) clone() Order {
	c := o
	c.Lines = make([]OrderLine, len(o.Lines))
	copy(c.Lines, o.Lines)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return c
}

// Store persists ledger orders. Put is called with the full order after
// every successful mutation and must overwrite any previous version.
type Store interface {
	Load(ctx context.Context) ([]Order, error)
	Put(ctx context.Context, o Order) error
}

// OrderEvent describes a ledger mutation.
type OrderEvent struct {
	Type  string
	Order Order
}

// EventPublisher receives ledger events after the mutation is committed.
type EventPublisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
}

// Publishers fans an event out to every publisher, returning the first error.
type Publishers []EventPublisher

// Publish implements EventPublisher.
func (ps Publishers) Publish(ctx context.Context, evt OrderEvent) error {
	var first error
	for _, p := range ps {
		if err := p.Publish(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithStore persists every mutation to s and restores from it on open.
func WithStore(s Store) LedgerOption {
	return func(l *Ledger) { l.store = s }
}

// WithPublisher sends order events to p.
func WithPublisher(p EventPublisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger used for persistence and publish failures.
func WithLogger(log logrus.FieldLogger) LedgerOption {
	return func(l *Ledger) { l.log = log }
}

// Ledger assigns order identifiers and owns every finalized order.
// Submit and ConfirmDelivery are atomic with respect to each other.
type Ledger struct {
	catalog *Catalog

	mu     sync.Mutex
	orders map[int64]*Order
	nextID int64

	store     Store
	publisher EventPublisher
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewLedger returns an empty in-memory ledger.
func NewLedger(catalog *Catalog, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		catalog: catalog,
		orders:  make(map[int64]*Order),
		nextID:  FirstOrderID,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OpenLedger creates a ledger and restores the orders held by its store.
// The counter resumes after the highest restored identifier.
func OpenLedger(ctx context.Context, catalog *Catalog, opts ...LedgerOption) (*Ledger, error) {
	l := NewLedger(catalog, opts...)
	if l.store == nil {
		return l, nil
	}
	orders, err := l.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for _, o := range orders {
		if err := l.validateRestored(o); err != nil {
			return nil, fmt.Errorf("load ledger: order %d: %w", o.ID, err)
		}
		if _, dup := l.orders[o.ID]; dup {
			return nil, fmt.Errorf("load ledger: duplicate order %d: %w", o.ID, ErrInvalidInput)
		}
		c := o.clone()
		l.orders[o.ID] = &c
		if o.ID >= l.nextID {
			l.nextID = o.ID + 1
		}
	}
	return l, nil
}

func (l *Ledger) validateRestored(o Order) error {
	if o.ID <= 0 {
		return fmt.Errorf("id must be > 0: %w", ErrInvalidInput)
	}
	if _, err := l.normalizeLines(o.TableNumber, o.Lines); err != nil {
		return err
	}
	switch o.Status {
	case enum.OrderStatusPending:
		if o.DeliveredAt != nil {
			return fmt.Errorf("pending order has a delivery time: %w", ErrInvalidInput)
		}
	case enum.OrderStatusDelivered:
		if o.DeliveredAt == nil {
			return fmt.Errorf("delivered order has no delivery time: %w", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("status %v: %w", o.Status, ErrInvalidInput)
	}
	return nil
}

// normalizeLines validates lines and merges repeated codes onto the first
// occurrence, preserving order.
func (l *Ledger) normalizeLines(table int, lines []OrderLine) ([]OrderLine, error) {
	if table <= 0 {
		return nil, fmt.Errorf("table number %d must be > 0: %w", table, ErrInvalidInput)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	out := make([]OrderLine, 0, len(lines))
	pos := make(map[int]int, len(lines))
	for i, line := range lines {
		if _, err := l.catalog.Lookup(line.ItemCode); err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, err)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line[%d]: quantity %d must be > 0: %w", i, line.Quantity, ErrInvalidInput)
		}
		if j, ok := pos[line.ItemCode]; ok {
			out[j].Quantity += line.Quantity
			continue
		}
		pos[line.ItemCode] = len(out)
		out = append(out, line)
	}
	return out, nil
}

// Submit stores a new pending order for the table and returns it.
// Validation happens before any state is written, so a rejected call
// consumes no identifier.
func (l *Ledger) Submit(ctx context.Context, tableNumber int, lines []OrderLine) (Order, error) {
	normalized, err := l.normalizeLines(tableNumber, lines)
	if err != nil {
		return Order{}, fmt.Errorf("submit: %w", err)
	}

	l.mu.Lock()
	o := &Order{
		ID:          l.nextID,
		TableNumber: tableNumber,
		Lines:       normalized,
		Status:      enum.OrderStatusPending,
		CreatedAt:   l.now().Truncate(time.Second),
	}
	l.nextID++
	l.orders[o.ID] = o
	snapshot := o.clone()
	l.persist(ctx, snapshot)
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"order_id": snapshot.ID,
		"table":    snapshot.TableNumber,
		"lines":    len(snapshot.Lines),
	}).Info("order submitted")
	l.publish(ctx, enum.EventOrderCreated, snapshot)
	return snapshot, nil
}

// ConfirmDelivery moves a pending order to delivered and returns the
// delivery time. A delivered order is never modified again.
func (l *Ledger) ConfirmDelivery(ctx context.Context, id int64) (time.Time, error) {
	l.mu.Lock()
	o, ok := l.orders[id]
	if !ok {
		l.mu.Unlock()
		return time.Time{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	switch o.Status {
	case enum.OrderStatusPending:
	case enum.OrderStatusDelivered:
		l.mu.Unlock()
		return time.Time{}, fmt.Errorf("order %d: %w", id, ErrAlreadyDelivered)
	default:
		l.mu.Unlock()
		return time.Time{}, fmt.Errorf("order %d has unknown status %v", id, o.Status)
	}
	at := l.now().Truncate(time.Second)
	o.Status = enum.OrderStatusDelivered
	o.DeliveredAt = &at
	snapshot := o.clone()
	l.persist(ctx, snapshot)
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"order_id": id,
		"table":    snapshot.TableNumber,
	}).Info("order delivered")
	l.publish(ctx, enum.EventOrderDelivered, snapshot)
	return at, nil
}

// Get returns a copy of the order.
func (l *Ledger) Get(id int64) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return o.clone(), nil
}

// ListByStatus returns the orders in the given status, ascending by id.
func (l *Ledger) ListByStatus(status enum.OrderStatus) []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []Order{}
	for _, o := range l.orders {
		if o.Status == status {
			out = append(out, o.clone())
		}
	}
	sortOrders(out)
	return out
}

// All returns every order, ascending by id.
func (l *Ledger) All() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.clone())
	}
	sortOrders(out)
	return out
}

// NextID returns the identifier the next Submit will assign.
func (l *Ledger) NextID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID
}

// Summary counts the ledger's orders by status.
func (l *Ledger) Summary() Summary {
	return Summarize(l.All())
}

// persist must be called with l.mu held so writes reach the store in
// mutation order. Failures are reported, never rolled back.
func (l *Ledger) persist(ctx context.Context, o Order) {
	if l.store == nil {
		return
	}
	if err := l.store.Put(ctx, o); err != nil {
		l.log.WithError(err).WithField("order_id", o.ID).Error("persist order")
	}
}

func (l *Ledger) publish(ctx context.Context, typ string, o Order) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, OrderEvent{Type: typ, Order: o}); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"event":    typ,
		}).Warn("publish order event")
	}
}

func sortOrders(orders []Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
}
