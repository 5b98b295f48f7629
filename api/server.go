/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

TENANCY:
  Every /api route requires an X-Tenant-ID header; requests without one
  get 400 before reaching a handler.

ROUTE GROUPS:
  /api/reports/*          Party balance and cash reports
  /api/alerts/*           Alert evaluation, listing, dismissal
  /api/disbursements/*    Justification and return lifecycle
  /api/advances/*         Reimbursement lifecycle
  /api/documents/*        Payment document CRUD

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(requireTenant)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/party-balances", h.PartyBalances)
			r.Route("/cash", func(r chi.Router) {
				r.Get("/balance", h.CashBalance)
				r.Get("/trend", h.CashTrend)
				r.Get("/today", h.CashToday)
				r.Get("/recent", h.CashRecent)
			})
		})

		// Alert routes
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Post("/evaluate", h.EvaluateAlerts)
			r.Post("/{id}/dismiss", h.DismissAlert)
		})

		// Disbursement lifecycle routes
		r.Route("/disbursements/{id}", func(r chi.Router) {
			r.Post("/justifications", h.AddJustification)
			r.Put("/justifications/{jid}", h.UpdateJustification)
			r.Delete("/justifications/{jid}", h.DeleteJustification)
			r.Post("/returns", h.AddReturn)
		})

		// Advance lifecycle routes
		r.Route("/advances/{id}", func(r chi.Router) {
			r.Post("/reimbursements", h.AddReimbursement)
		})

		// Document routes
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.CreateDocument)
			r.Put("/{id}", h.UpdateDocument)
			r.Delete("/{id}", h.DeleteDocument)
		})
	})

	return r
}

// requireTenant rejects API requests that carry no X-Tenant-ID header.
func requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(tenantHeader) == "" {
			writeError(w, http.StatusBadRequest, "missing "+tenantHeader+" header", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
