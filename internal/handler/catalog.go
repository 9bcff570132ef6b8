package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// CatalogReader defines the catalog methods needed by catalog handlers.
// Satisfied by *service.Catalog.
type CatalogReader interface {
	Lookup(code int) (service.CatalogItem, error)
	ListByCategory() []service.CategoryGroup
}

// CatalogHandler serves the menu.
type CatalogHandler struct {
	catalog CatalogReader
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes registers catalog endpoints. Mounted at /catalog.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{code}", h.Get)
}

// --- Response types ---

type catalogItemResponse struct {
	Code     int    `json:"code"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

type catalogGroupResponse struct {
	Category string                `json:"category"`
	Items    []catalogItemResponse `json:"items"`
}

type catalogResponse struct {
	Categories []catalogGroupResponse `json:"categories"`
}

// --- Handlers ---

// List handles GET /catalog, grouped by category in menu order.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	groups := h.catalog.ListByCategory()
	resp := catalogResponse{Categories: make([]catalogGroupResponse, 0, len(groups))}
	for _, g := range groups {
		items := make([]catalogItemResponse, 0, len(g.Items))
		for _, it := range g.Items {
			items = append(items, toCatalogItemResponse(it))
		}
		resp.Categories = append(resp.Categories, catalogGroupResponse{Category: g.Category, Items: items})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /catalog/{code}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item code"})
		return
	}

	it, err := h.catalog.Lookup(code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toCatalogItemResponse(it))
}

func toCatalogItemResponse(it service.CatalogItem) catalogItemResponse {
	return catalogItemResponse{
		Code:     it.Code,
		Name:     it.Name,
		Price:    it.Price.StringFixed(2),
		Category: it.Category,
	}
}
