package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: handlers decode and validate the
// JSON shapes, then delegate to the app services.
func NewRouter(s *Server, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if log != nil {
		r.Use(requestLogger(log))
	}

	// Health endpoint used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Put("/", s.handleUpdateUser)
				r.Get("/vehicles", s.handleListUserVehicles)
				r.Get("/subscriptions", s.handleListUserSubscriptions)
				r.Get("/purchase-history", s.handleListUserPurchases)
				r.Get("/snapshot", s.handleGetUserSnapshot)
			})
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", s.withIdempotency("/api/vehicles", s.handleCreateVehicle))
			r.Put("/{id}", s.handleUpdateVehicle)
			r.Delete("/{id}", s.handleDeleteVehicle)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", s.withIdempotency("/api/subscriptions", s.handleCreateSubscription))
			r.Put("/{id}", s.handleUpdateSubscription)
			r.Delete("/{id}", s.handleDeleteSubscription)
			r.Post("/{id}/transfer", s.handleTransferSubscription)
		})

		r.Post("/purchase-history", s.withIdempotency("/api/purchase-history", s.handleRecordPurchase))
	})

	return r
}
