package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrderSubmitter stores finalized lines as a new order.
// Satisfied by *Ledger; narrow interface for testability.
type OrderSubmitter interface {
	Submit(ctx context.Context, tableNumber int, lines []OrderLine) (Order, error)
}

// DraftStore keeps in-progress drafts between requests.
// Get returns ErrNotFound for unknown or expired drafts.
type DraftStore interface {
	GetDraft(ctx context.Context, id uuid.UUID) (DraftState, error)
	PutDraft(ctx context.Context, id uuid.UUID, st DraftState) error
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}

// CreateOrderRequest is the validated input for a one-shot order.
type CreateOrderRequest struct {
	TableNumber int
	Items       []OrderLine
}

// OrderService drives the draft builder for remote operators and hands
// finalized drafts to the ledger.
type OrderService struct {
	catalog *Catalog
	drafts  DraftStore
	ledger  OrderSubmitter
	newID   func() uuid.UUID
	log     logrus.FieldLogger

	// mu serializes read-modify-write cycles on stored drafts.
	mu sync.Mutex
}

// NewOrderService creates a new OrderService.
func NewOrderService(catalog *Catalog, drafts DraftStore, ledger OrderSubmitter, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		catalog: catalog,
		drafts:  drafts,
		ledger:  ledger,
		newID:   uuid.New,
		log:     log,
	}
}

// CreateOrder builds a draft from the request items and submits it.
// Items go through AddItem, so repeated codes accumulate.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	d, err := StartDraft(s.catalog, req.TableNumber)
	if err != nil {
		return Order{}, err
	}
	for i, item := range req.Items {
		if _, err := d.AddItem(item.ItemCode, item.Quantity); err != nil {
			return Order{}, fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	lines, err := d.Finalize()
	if err != nil {
		return Order{}, err
	}
	return s.ledger.Submit(ctx, req.TableNumber, lines)
}

// StartDraft opens a stored draft for the table.
func (s *OrderService) StartDraft(ctx context.Context, tableNumber int) (uuid.UUID, *Draft, error) {
	d, err := StartDraft(s.catalog, tableNumber)
	if err != nil {
		return uuid.Nil, nil, err
	}
	id := s.newID()
	if err := s.drafts.PutDraft(ctx, id, d.State()); err != nil {
		return uuid.Nil, nil, fmt.Errorf("put draft: %w", err)
	}
	return id, d, nil
}

// Draft returns the stored draft.
func (s *OrderService) Draft(ctx context.Context, id uuid.UUID) (*Draft, error) {
	st, err := s.drafts.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	return RestoreDraft(s.catalog, st)
}

// AddItem adds to a stored draft and returns the draft with the item's
// new total quantity.
func (s *OrderService) AddItem(ctx context.Context, id uuid.UUID, code, quantity int) (*Draft, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.Draft(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	total, err := d.AddItem(code, quantity)
	if err != nil {
		return nil, 0, err
	}
	if err := s.drafts.PutDraft(ctx, id, d.State()); err != nil {
		return nil, 0, fmt.Errorf("put draft: %w", err)
	}
	return d, total, nil
}

// ClearDraft removes every line from a stored draft.
func (s *OrderService) ClearDraft(ctx context.Context, id uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.Draft(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Clear()
	if err := s.drafts.PutDraft(ctx, id, d.State()); err != nil {
		return nil, fmt.Errorf("put draft: %w", err)
	}
	return d, nil
}

// DiscardDraft deletes a stored draft.
func (s *OrderService) DiscardDraft(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.drafts.GetDraft(ctx, id); err != nil {
		return err
	}
	return s.drafts.DeleteDraft(ctx, id)
}

// FinalizeDraft submits a stored draft to the ledger and deletes it.
// An empty draft is rejected and stays stored.
func (s *OrderService) FinalizeDraft(ctx context.Context, id uuid.UUID) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.Draft(ctx, id)
	if err != nil {
		return Order{}, err
	}
	table := d.Table()
	lines, err := d.Finalize()
	if err != nil {
		return Order{}, err
	}
	order, err := s.ledger.Submit(ctx, table, lines)
	if err != nil {
		return Order{}, err
	}
	if err := s.drafts.DeleteDraft(ctx, id); err != nil {
		s.log.WithError(err).WithField("draft_id", id).Warn("delete finalized draft")
	}
	return order, nil
}

// MemoryDraftStore is a DraftStore for a single process. Drafts expire
// after ttl; a zero ttl keeps them forever.
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[uuid.UUID]memoryDraft
}

type memoryDraft struct {
	state   DraftState
	expires time.Time
}

// NewMemoryDraftStore creates an empty MemoryDraftStore.
func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[uuid.UUID]memoryDraft),
	}
}

// GetDraft implements DraftStore.
func (m *MemoryDraftStore) GetDraft(_ context.Context, id uuid.UUID) (DraftState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return DraftState{}, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if !d.expires.IsZero() && !m.now().Before(d.expires) {
		delete(m.drafts, id)
		return DraftState{}, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	st := d.state
	st.Lines = append([]OrderLine(nil), d.state.Lines...)
	return st, nil
}

// PutDraft implements DraftStore.
func (m *MemoryDraftStore) PutDraft(_ context.Context, id uuid.UUID, st DraftState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := memoryDraft{state: st}
	d.state.Lines = append([]OrderLine(nil), st.Lines...)
	if m.ttl > 0 {
		d.expires = m.now().Add(m.ttl)
	}
	m.drafts[id] = d
	return nil
}

// DeleteDraft implements DraftStore.
func (m *MemoryDraftStore) DeleteDraft(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}
