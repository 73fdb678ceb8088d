// Package server exposes the ledger operations as a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/owemate/owemate/internal/auth"
	"github.com/owemate/owemate/internal/middleware"
)

// NewRouter assembles the HTTP routes. Everything under /api except auth
// requires a valid session token.
func NewRouter(handlers *Handlers, jwtManager *auth.JWTManager) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Logging)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handlers.Register)
		r.Post("/auth/login", handlers.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(jwtManager))

			r.Post("/groups", handlers.CreateGroup)
			r.Get("/groups", handlers.ListGroups)
			r.Post("/groups/join", handlers.JoinGroup)
			r.Get("/groups/{id}", handlers.GetGroup)
			r.Delete("/groups/{id}", handlers.DeleteGroup)
			r.Post("/groups/{id}/members", handlers.AddMember)
			r.Post("/groups/{id}/leave", handlers.LeaveGroup)
			r.Post("/groups/{id}/transfer", handlers.TransferOwnership)
			r.Post("/groups/{id}/expenses", handlers.AddExpense)
			r.Delete("/groups/{id}/expenses/{expenseId}", handlers.DeleteExpense)
			r.Post("/groups/{id}/settle", handlers.SettleUp)
			r.Get("/groups/{id}/balances", handlers.GroupBalances)
			r.Get("/groups/{id}/settlements", handlers.ListSettlements)
		})
	})

	return r
}
