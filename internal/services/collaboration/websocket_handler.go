package collaboration

import (
	"context"
	"log"
	"net/http"

	"treedeco/internal/middleware"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

// WebSocketHandler upgrades HTTP connections and starts the per-connection
// pumps. Joining a session happens in-band through the join-session event,
// not at upgrade time, so there is a single websocket endpoint.
type WebSocketHandler struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a websocket handler bound to a hub and router.
// allowedOrigin of "*" disables origin checking (development default).
func NewWebSocketHandler(hub *Hub, router *Router, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// HandleConnection upgrades the request and runs the connection until it
// closes.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ctx, span := middleware.StartSpan(r.Context(), "WebSocket.Connect",
		attribute.String("remote.addr", r.RemoteAddr),
	)
	defer span.End()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		middleware.AddSpanError(ctx, err)
		return
	}

	client := newClient(h.hub, conn)
	span.SetAttributes(attribute.String("client.id", client.ID))

	log.Printf("✅ Client connected: %s", client.ID)

	go client.writePump()

	// The read pump runs on this goroutine. Detaching from the request
	// context keeps the connection's store calls and event spans alive
	// past the upgrade request itself.
	client.readPump(context.WithoutCancel(ctx), h.router)
}
