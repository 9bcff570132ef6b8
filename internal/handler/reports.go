package handler

import (
	"net/http"

	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ReportLedger defines the ledger methods needed by report handlers.
// Satisfied by *service.Ledger; narrow interface for testability.
type ReportLedger interface {
	All() []service.Order
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	ledger  ReportLedger
	billing *service.BillingView
	log     logrus.FieldLogger
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(ledger ReportLedger, billing *service.BillingView, log logrus.FieldLogger) *ReportsHandler {
	return &ReportsHandler{ledger: ledger, billing: billing, log: log}
}

// RegisterRoutes registers report endpoints. Mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
}

// --- Response types ---

type summaryCountsResponse struct {
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
	Total     int `json:"total"`
}

type summaryResponse struct {
	Counts           summaryCountsResponse `json:"counts"`
	PendingOrders    []service.OrderDetail `json:"pending_orders"`
	DeliveredOrders  []service.OrderDetail `json:"delivered_orders"`
	DeliveredRevenue string                `json:"delivered_revenue"`
}

// --- Handlers ---

// Summary handles GET /reports/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	report := service.BuildReport(h.ledger.All())

	pending, _, err := h.details(report.Pending)
	if err != nil {
		writeServiceError(w, h.log, "summary pending", err)
		return
	}
	delivered, revenue, err := h.details(report.Delivered)
	if err != nil {
		writeServiceError(w, h.log, "summary delivered", err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Counts: summaryCountsResponse{
			Pending:   report.Summary.Pending,
			Delivered: report.Summary.Delivered,
			Total:     report.Summary.Total,
		},
		PendingOrders:    pending,
		DeliveredOrders:  delivered,
		DeliveredRevenue: revenue.StringFixed(2),
	})
}

func (h *ReportsHandler) details(orders []service.Order) ([]service.OrderDetail, decimal.Decimal, error) {
	out := make([]service.OrderDetail, 0, len(orders))
	sum := decimal.Zero
	for _, o := range orders {
		total, err := h.billing.OrderTotal(o)
		if err != nil {
			return nil, decimal.Zero, err
		}
		d, err := h.billing.Detail(o)
		if err != nil {
			return nil, decimal.Zero, err
		}
		sum = sum.Add(total)
		out = append(out, d)
	}
	return out, sum, nil
}
