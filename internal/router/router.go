package router

import (
	"net/http"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	mw "github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// StaffStore is the staff backend used for login and staff management.
// Satisfied by *store.PostgresStaff and *store.MemoryStaff.
type StaffStore interface {
	handler.StaffStore
	handler.StaffDirectory
}

// Deps are the components the HTTP API is built on.
type Deps struct {
	Catalog *service.Catalog
	Ledger  *service.Ledger
	Orders  *service.OrderService
	Billing *service.BillingView
	Staff   StaffStore
	Hub     *ws.Hub
	Log     logrus.FieldLogger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(d.Staff, cfg.JWTSecret, d.Log)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		catalogHandler := handler.NewCatalogHandler(d.Catalog)
		r.Route("/catalog", catalogHandler.RegisterRoutes)

		draftHandler := handler.NewDraftHandler(d.Orders, d.Billing, d.Log)
		r.Route("/drafts", draftHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(d.Orders, d.Ledger, d.Billing, d.Log)
		r.Route("/orders", orderHandler.RegisterRoutes)

		reportsHandler := handler.NewReportsHandler(d.Ledger, d.Billing, d.Log)
		r.Route("/reports", reportsHandler.RegisterRoutes)

		// Manager-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleManager))
			staffHandler := handler.NewStaffHandler(d.Staff, d.Log)
			r.Route("/staff", staffHandler.RegisterRoutes)
		})
	})

	d.Log.Info("router initialized")
	return r
}
