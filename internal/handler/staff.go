package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StaffDirectory defines the staff methods needed by staff handlers.
// Satisfied by *store.PostgresStaff and *store.MemoryStaff.
type StaffDirectory interface {
	ListStaff(ctx context.Context) ([]store.Staff, error)
	CreateStaff(ctx context.Context, s store.Staff) (store.Staff, error)
	DeactivateStaff(ctx context.Context, id uuid.UUID) error
}

// StaffHandler handles staff management endpoints.
type StaffHandler struct {
	dir StaffDirectory
	log logrus.FieldLogger
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(dir StaffDirectory, log logrus.FieldLogger) *StaffHandler {
	return &StaffHandler{dir: dir, log: log}
}

// RegisterRoutes registers staff endpoints. Mounted at /staff behind
// a manager-only guard.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createStaffRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// --- Handlers ---

// List handles GET /staff.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.dir.ListStaff(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list staff")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]staffResponse, len(members))
	for i, s := range members {
		resp[i] = toStaffResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /staff.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username, password, full_name, and role are required"})
		return
	}
	if !enum.ValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	hashed, err := store.HashPassword(req.Password)
	if err != nil {
		h.log.WithError(err).Error("create staff")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	s, err := h.dir.CreateStaff(r.Context(), store.Staff{
		Username:       req.Username,
		FullName:       req.FullName,
		Role:           req.Role,
		HashedPassword: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateStaff) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username already exists"})
			return
		}
		writeServiceError(w, h.log, "create staff", err)
		return
	}

	h.log.WithFields(logrus.Fields{"staff_id": s.ID, "role": s.Role}).Info("staff created")
	writeJSON(w, http.StatusCreated, toStaffResponse(s))
}

// Delete handles DELETE /staff/{id}.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid staff ID"})
		return
	}

	if err := h.dir.DeactivateStaff(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "staff not found"})
			return
		}
		writeServiceError(w, h.log, "deactivate staff", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
