package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"treedeco/internal/models"
	"treedeco/internal/services/collaboration"
	"treedeco/internal/store"

	"github.com/gorilla/mux"
)

// Handler handles the HTTP surface: session lifecycle endpoints consumed by
// the frontend before it opens the websocket.
type Handler struct {
	store     store.Store
	wsHandler *collaboration.WebSocketHandler
}

// NewHandler creates the HTTP handler set.
func NewHandler(st store.Store, wsHandler *collaboration.WebSocketHandler) *Handler {
	return &Handler{
		store:     st,
		wsHandler: wsHandler,
	}
}

type createSessionRequest struct {
	TreeSize models.TreeSize `json:"treeSize"`
}

type createSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// CreateSession creates a new decoration session. The tree size is optional
// and defaults to medium.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		// An empty or absent body is fine; only a malformed one is rejected.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Invalid request body",
			})
			return
		}
	}

	session, err := h.store.Create(r.Context(), req.TreeSize)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Error creating session",
		})
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Success:   true,
		SessionID: session.SessionID,
		Message:   "Session created successfully",
	})
}

// GetSession returns a session document, or 404 for an unknown or expired
// id. The frontend uses this to verify a session before joining.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.store.Get(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Session not found",
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Error fetching session",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Server is running",
	})
}

// HandleWebSocket hands the connection to the collaboration layer.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
