package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DraftServicer defines the draft operations needed by draft handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type DraftServicer interface {
	StartDraft(ctx context.Context, tableNumber int) (uuid.UUID, *service.Draft, error)
	Draft(ctx context.Context, id uuid.UUID) (*service.Draft, error)
	AddItem(ctx context.Context, id uuid.UUID, code, quantity int) (*service.Draft, int, error)
	ClearDraft(ctx context.Context, id uuid.UUID) (*service.Draft, error)
	DiscardDraft(ctx context.Context, id uuid.UUID) error
	FinalizeDraft(ctx context.Context, id uuid.UUID) (service.Order, error)
}

// DraftHandler handles the order builder endpoints used by table terminals.
type DraftHandler struct {
	svc     DraftServicer
	billing *service.BillingView
	log     logrus.FieldLogger
}

// NewDraftHandler creates a new DraftHandler.
func NewDraftHandler(svc DraftServicer, billing *service.BillingView, log logrus.FieldLogger) *DraftHandler {
	return &DraftHandler{svc: svc, billing: billing, log: log}
}

// RegisterRoutes registers draft endpoints. Mounted at /drafts.
func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Start)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Discard)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items", h.Clear)
	r.Post("/{id}/finalize", h.Finalize)
}

// --- Request / Response types ---

type startDraftRequest struct {
	TableNumber int `json:"table_number"`
}

type addItemRequest struct {
	ItemCode int `json:"item_code"`
	Quantity int `json:"quantity"`
}

type draftResponse struct {
	ID          uuid.UUID                 `json:"id"`
	TableNumber int                       `json:"table_number"`
	Items       []service.OrderItemDetail `json:"items"`
	Total       string                    `json:"total"`
}

type addItemResponse struct {
	draftResponse
	ItemQuantity int `json:"item_quantity"`
}

// --- Handlers ---

// Start handles POST /drafts.
func (h *DraftHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, d, err := h.svc.StartDraft(r.Context(), req.TableNumber)
	if err != nil {
		writeServiceError(w, h.log, "start draft", err)
		return
	}
	h.writeDraft(w, http.StatusCreated, id, d)
}

// Get handles GET /drafts/{id}.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Draft(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get draft", err)
		return
	}
	h.writeDraft(w, http.StatusOK, id, d)
}

// AddItem handles POST /drafts/{id}/items. Adding a code already on the
// draft accumulates its quantity.
func (h *DraftHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDraftID(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	d, qty, err := h.svc.AddItem(r.Context(), id, req.ItemCode, req.Quantity)
	if err != nil {
		writeServiceError(w, h.log, "add draft item", err)
		return
	}

	resp, err := h.describe(id, d)
	if err != nil {
		writeServiceError(w, h.log, "describe draft", err)
		return
	}
	writeJSON(w, http.StatusOK, addItemResponse{draftResponse: resp, ItemQuantity: qty})
}

// Clear handles DELETE /drafts/{id}/items.
func (h *DraftHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.ClearDraft(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "clear draft", err)
		return
	}
	h.writeDraft(w, http.StatusOK, id, d)
}

// Discard handles DELETE /drafts/{id}.
func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DiscardDraft(r.Context(), id); err != nil {
		writeServiceError(w, h.log, "discard draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finalize handles POST /drafts/{id}/finalize. The draft becomes a
// pending order and is removed.
func (h *DraftHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.FinalizeDraft(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "finalize draft", err)
		return
	}
	detail, err := h.billing.Detail(order)
	if err != nil {
		writeServiceError(w, h.log, "describe order", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// --- Helpers ---

func (h *DraftHandler) describe(id uuid.UUID, d *service.Draft) (draftResponse, error) {
	detail, err := h.billing.Detail(service.Order{TableNumber: d.Table(), Lines: d.Lines()})
	if err != nil {
		return draftResponse{}, err
	}
	return draftResponse{
		ID:          id,
		TableNumber: d.Table(),
		Items:       detail.Items,
		Total:       detail.Total,
	}, nil
}

func (h *DraftHandler) writeDraft(w http.ResponseWriter, status int, id uuid.UUID, d *service.Draft) {
	resp, err := h.describe(id, d)
	if err != nil {
		writeServiceError(w, h.log, "describe draft", err)
		return
	}
	writeJSON(w, status, resp)
}

func parseDraftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid draft ID"})
		return uuid.Nil, false
	}
	return id, true
}
