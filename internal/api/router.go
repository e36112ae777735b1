package api

import (
	"treedeco/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes wires the HTTP surface: session lifecycle, health and the
// websocket endpoint. Middleware order is tracing, then recovery, then CORS.
func SetupRoutes(h *Handler, allowedOrigin string) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware(allowedOrigin))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session/create", h.CreateSession).Methods("POST", "OPTIONS")
	api.HandleFunc("/session/{sessionId}", h.GetSession).Methods("GET")
	api.HandleFunc("/health", h.Health).Methods("GET")

	r.HandleFunc("/ws", h.HandleWebSocket)

	return r
}
