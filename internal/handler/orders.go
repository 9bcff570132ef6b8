package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (service.Order, error)
}

// OrderLedger defines the ledger methods needed by order read/update handlers.
// Satisfied by *service.Ledger; narrow interface for testability.
type OrderLedger interface {
	Get(id int64) (service.Order, error)
	ListByStatus(status enum.OrderStatus) []service.Order
	All() []service.Order
	ConfirmDelivery(ctx context.Context, id int64) (time.Time, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	ledger  OrderLedger
	billing *service.BillingView
	log     logrus.FieldLogger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, ledger OrderLedger, billing *service.BillingView, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{svc: svc, ledger: ledger, billing: billing, log: log}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders inside an authenticated group.
// Delivery confirmation is limited to floor staff.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/ticket", h.Ticket)
	r.Get("/{id}/receipt", h.Receipt)
	r.With(middleware.RequireRole(enum.RoleWaiter, enum.RoleManager)).Post("/{id}/deliver", h.Deliver)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableNumber int                `json:"table_number"`
	Items       []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ItemCode int `json:"item_code"`
	Quantity int `json:"quantity"`
}

type orderListResponse struct {
	Orders []service.OrderDetail `json:"orders"`
}

type deliverResponse struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type ticketResponse struct {
	OrderID     int64                 `json:"order_id"`
	TableNumber int                   `json:"table_number"`
	CreatedAt   time.Time             `json:"created_at"`
	Groups      []ticketGroupResponse `json:"groups"`
}

type ticketGroupResponse struct {
	Category string               `json:"category"`
	Items    []ticketItemResponse `json:"items"`
}

type ticketItemResponse struct {
	ItemCode int    `json:"item_code"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type receiptResponse struct {
	OrderID     int64                 `json:"order_id"`
	TableNumber int                   `json:"table_number"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	DeliveredAt *time.Time            `json:"delivered_at,omitempty"`
	Lines       []receiptLineResponse `json:"lines"`
	Total       string                `json:"total"`
}

type receiptLineResponse struct {
	ItemCode  int    `json:"item_code"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcReq := service.CreateOrderRequest{
		TableNumber: req.TableNumber,
		Items:       make([]service.OrderLine, len(req.Items)),
	}
	for i, it := range req.Items {
		svcReq.Items[i] = service.OrderLine{ItemCode: it.ItemCode, Quantity: it.Quantity}
	}

	order, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		h.writeServiceError(w, "create order", err)
		return
	}
	h.writeOrder(w, http.StatusCreated, order)
}

// List handles GET /orders with an optional ?status= filter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var orders []service.Order
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := enum.ParseOrderStatus(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		orders = h.ledger.ListByStatus(status)
	} else {
		orders = h.ledger.All()
	}

	resp := orderListResponse{Orders: make([]service.OrderDetail, 0, len(orders))}
	for _, o := range orders {
		d, err := h.billing.Detail(o)
		if err != nil {
			h.writeServiceError(w, "list orders", err)
			return
		}
		resp.Orders = append(resp.Orders, d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeOrder(w, http.StatusOK, order)
}

// Deliver handles POST /orders/{id}/deliver.
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	at, err := h.ledger.ConfirmDelivery(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "confirm delivery", err)
		return
	}
	writeJSON(w, http.StatusOK, deliverResponse{
		ID:          id,
		Status:      enum.OrderStatusDelivered.String(),
		DeliveredAt: at,
	})
}

// Ticket handles GET /orders/{id}/ticket. Only pending orders have a
// kitchen ticket.
func (h *OrderHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ticket, err := h.billing.KitchenTicket(order)
	if err != nil {
		h.writeServiceError(w, "kitchen ticket", err)
		return
	}

	resp := ticketResponse{
		OrderID:     ticket.OrderID,
		TableNumber: ticket.TableNumber,
		CreatedAt:   ticket.CreatedAt,
		Groups:      make([]ticketGroupResponse, 0, len(ticket.Groups)),
	}
	for _, g := range ticket.Groups {
		items := make([]ticketItemResponse, 0, len(g.Entries))
		for _, e := range g.Entries {
			items = append(items, ticketItemResponse{ItemCode: e.Item.Code, Name: e.Item.Name, Quantity: e.Quantity})
		}
		resp.Groups = append(resp.Groups, ticketGroupResponse{Category: g.Category, Items: items})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Receipt handles GET /orders/{id}/receipt.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	order, ok := h.lookup(w, r)
	if !ok {
		return
	}

	rc, err := h.billing.Receipt(order)
	if err != nil {
		h.writeServiceError(w, "receipt", err)
		return
	}

	resp := receiptResponse{
		OrderID:     rc.OrderID,
		TableNumber: rc.TableNumber,
		Status:      rc.Status.String(),
		CreatedAt:   rc.CreatedAt,
		DeliveredAt: rc.DeliveredAt,
		Lines:       make([]receiptLineResponse, 0, len(rc.Lines)),
		Total:       rc.Total.StringFixed(2),
	}
	for _, l := range rc.Lines {
		resp.Lines = append(resp.Lines, receiptLineResponse{
			ItemCode:  l.Item.Code,
			Name:      l.Item.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Item.Price.StringFixed(2),
			Subtotal:  l.Subtotal.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *OrderHandler) lookup(w http.ResponseWriter, r *http.Request) (service.Order, bool) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return service.Order{}, false
	}
	order, err := h.ledger.Get(id)
	if err != nil {
		h.writeServiceError(w, "get order", err)
		return service.Order{}, false
	}
	return order, true
}

func (h *OrderHandler) writeOrder(w http.ResponseWriter, status int, o service.Order) {
	d, err := h.billing.Detail(o)
	if err != nil {
		h.writeServiceError(w, "describe order", err)
		return
	}
	writeJSON(w, status, d)
}

func (h *OrderHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	writeServiceError(w, h.log, op, err)
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors to HTTP statuses. Unexpected
// errors are logged and never shown to the client.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyDelivered):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.WithError(err).Error(op)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isValidationError reports client input errors. An unknown item code in a
// request body is bad input, not a missing resource.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidInput) ||
		errors.Is(err, service.ErrEmptyOrder) ||
		errors.Is(err, service.ErrUnknownItem)
}
