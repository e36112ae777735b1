package collaboration

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"treedeco/internal/middleware"
	"treedeco/internal/models"
	"treedeco/internal/presence"
	"treedeco/internal/store"
)

/*
Event router: dispatches inbound protocol events, applies their mutations to
the session store and/or presence registry, and emits the outbound
broadcasts.

Broadcast targeting is part of the protocol contract with the frontend:
mutations the sender has NOT already applied optimistically on its
own view (change-tree-size, add-ornament, delete-ornament, resize-ornament)
are echoed to everyone in the room including the sender, as confirmation;
mutations the sender has already rendered locally (cursor-move,
move-ornament, drag start/end) go only to the rest of the room. Clients key
their optimistic-update logic to this split, so it must not change
per-event.

Store failures never take the connection down: the event is dropped without
a broadcast, the error is logged and span-recorded, and the client may
visually desync until its next full session-state reload.
*/

// Router validates inbound events and routes their effects.
type Router struct {
	store    store.Store
	presence *presence.Registry
	hub      *Hub
}

// NewRouter creates an event router over the given store, presence registry
// and hub.
func NewRouter(st store.Store, reg *presence.Registry, hub *Hub) *Router {
	return &Router{store: st, presence: reg, hub: hub}
}

// Dispatch decodes one inbound frame and invokes its handler. Malformed
// frames are dropped; events other than join-session are ignored while the
// client is unjoined.
func (r *Router) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("  Dropping malformed frame from client %s: %v", c.ID, err)
		return
	}

	if env.Event != models.EventJoinSession && !c.joined {
		return
	}

	switch env.Event {
	case models.EventJoinSession:
		r.handleJoinSession(ctx, c, env.Data)
	case models.EventCursorMove:
		r.handleCursorMove(c, env.Data)
	case models.EventDragStart:
		r.handleDragStart(c, env.Data)
	case models.EventDragEnd:
		r.handleDragEnd(c)
	case models.EventChangeTreeSize:
		r.handleChangeTreeSize(ctx, c, env.Data)
	case models.EventAddOrnament:
		r.handleAddOrnament(ctx, c, env.Data)
	case models.EventMoveOrnament:
		r.handleMoveOrnament(ctx, c, env.Data)
	case models.EventDeleteOrnament:
		r.handleDeleteOrnament(ctx, c, env.Data)
	case models.EventResizeOrnament:
		r.handleResizeOrnament(ctx, c, env.Data)
	default:
		log.Printf("  Unknown event %q from client %s", env.Event, c.ID)
	}
}

// sendTo queues an event directly on one client, outside any room.
func (r *Router) sendTo(c *Client, event string, payload interface{}) {
	message, err := models.MarshalEvent(event, payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal %s event: %v", event, err)
		return
	}
	if !c.queue(message) {
		log.Printf("⚠️  Client %s send buffer full, dropping %s", c.ID, event)
	}
}

// broadcast emits an event to a session room. A nil sender reaches everyone
// including the originator.
func (r *Router) broadcast(sessionID, event string, payload interface{}, sender *Client) {
	message, err := models.MarshalEvent(event, payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal %s event: %v", event, err)
		return
	}
	r.hub.Broadcast(sessionID, message, sender)
}

func (r *Router) handleJoinSession(ctx context.Context, c *Client, data json.RawMessage) {
	var p models.JoinSessionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.UserID == "" {
		r.sendTo(c, models.EventError, models.ErrorPayload{Message: "Invalid join request"})
		return
	}
	if c.joined {
		// The protocol binds a connection to one session for its lifetime.
		return
	}

	cursor, count := r.presence.Join(p.SessionID, p.UserID, p.UserName)

	session, err := r.store.Mutate(ctx, p.SessionID, func(s *models.Session) bool {
		s.ActiveUsers = count
		return true
	})
	if err != nil {
		// Undo the optimistic presence entry; the join never happened.
		r.presence.Leave(p.SessionID, p.UserID)

		if errors.Is(err, store.ErrNotFound) {
			r.sendTo(c, models.EventError, models.ErrorPayload{Message: "Session not found"})
			return
		}
		middleware.AddSpanError(ctx, err)
		log.Printf("⚠️  Join failed for session %s: %v", p.SessionID, err)
		r.sendTo(c, models.EventError, models.ErrorPayload{Message: "Failed to join session"})
		return
	}

	c.sessionID = p.SessionID
	c.userID = p.UserID
	c.joined = true
	r.hub.Register(c, p.SessionID)

	// Seed the joiner: full session state plus everyone else's cursors.
	r.sendTo(c, models.EventSessionState, models.SessionStatePayload{
		TreeSize:    session.TreeSize,
		Ornaments:   session.Ornaments,
		ActiveUsers: session.ActiveUsers,
	})
	r.sendTo(c, models.EventAllCursors, r.presence.Snapshot(p.SessionID, p.UserID))

	r.broadcast(p.SessionID, models.EventUserJoined, models.UserJoinedPayload{
		UserID:      p.UserID,
		ActiveUsers: session.ActiveUsers,
		Cursor:      cursor,
	}, c)

	log.Printf("👤 User %s joined session %s (%d active)", p.UserID, p.SessionID, count)
}

func (r *Router) handleCursorMove(c *Client, data json.RawMessage) {
	var p models.CursorMovePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	if !r.presence.UpdateCursor(c.sessionID, c.userID, p.X, p.Y) {
		return
	}

	r.broadcast(c.sessionID, models.EventCursorUpdate, models.CursorUpdatePayload{
		UserID: c.userID,
		X:      p.X,
		Y:      p.Y,
	}, c)
}

func (r *Router) handleDragStart(c *Client, data json.RawMessage) {
	var p models.DragStartPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	if !r.presence.SetDragging(c.sessionID, c.userID, &p.Ornament) {
		return
	}

	r.broadcast(c.sessionID, models.EventUserDragging, models.UserDraggingPayload{
		UserID:   c.userID,
		Ornament: p.Ornament,
	}, c)
}

func (r *Router) handleDragEnd(c *Client) {
	if !r.presence.SetDragging(c.sessionID, c.userID, nil) {
		return
	}

	r.broadcast(c.sessionID, models.EventUserStoppedDrag, models.UserStoppedDraggingPayload{
		UserID: c.userID,
	}, c)
}

func (r *Router) handleChangeTreeSize(ctx context.Context, c *Client, data json.RawMessage) {
	var p models.ChangeTreeSizePayload
	if err := json.Unmarshal(data, &p); err != nil || !p.TreeSize.Valid() {
		return
	}

	// Ornaments are preserved as-is; resizing the tree never repositions
	// or drops decorations.
	session, err := r.store.Mutate(ctx, c.sessionID, func(s *models.Session) bool {
		s.TreeSize = p.TreeSize
		return true
	})
	if err != nil {
		r.logMutateError(ctx, c, "change-tree-size", err)
		return
	}

	r.broadcast(c.sessionID, models.EventTreeSizeChanged, models.TreeSizeChangedPayload{
		TreeSize:  session.TreeSize,
		Ornaments: session.Ornaments,
	}, nil)

	log.Printf("🎄 Tree size changed to %s in session %s", p.TreeSize, c.sessionID)
}

func (r *Router) handleAddOrnament(ctx context.Context, c *Client, data json.RawMessage) {
	var p models.AddOrnamentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Ornament.ID == "" {
		return
	}

	ornament := p.Ornament
	if ornament.Scale == 0 {
		ornament.Scale = 1
	}
	if ornament.AddedBy == "" {
		ornament.AddedBy = c.userID
	}

	added := false
	_, err := r.store.Mutate(ctx, c.sessionID, func(s *models.Session) bool {
		// Duplicate ids (client retries) must not produce two entries.
		if s.Ornaments.Find(ornament.ID) != nil {
			return false
		}
		s.Ornaments = append(s.Ornaments, ornament)
		added = true
		return true
	})
	if err != nil {
		r.logMutateError(ctx, c, "add-ornament", err)
		return
	}
	if !added {
		return
	}

	r.broadcast(c.sessionID, models.EventOrnamentAdded, models.OrnamentAddedPayload{
		Ornament: ornament,
	}, nil)

	log.Printf("🎁 Ornament %s added in session %s", ornament.ID, c.sessionID)
}

func (r *Router) handleMoveOrnament(ctx context.Context, c *Client, data json.RawMessage) {
	var p models.MoveOrnamentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.OrnamentID == "" {
		return
	}

	moved := false
	_, err := r.store.Mutate(ctx, c.sessionID, func(s *models.Session) bool {
		ornament := s.Ornaments.Find(p.OrnamentID)
		if ornament == nil {
			return false
		}
		ornament.Position = p.Position
		moved = true
		return true
	})
	if err != nil {
		r.logMutateError(ctx, c, "move-ornament", err)
		return
	}
	if !moved {
		return
	}

	r.broadcast(c.sessionID, models.EventOrnamentMoved, models.OrnamentMovedPayload{
		OrnamentID: p.OrnamentID,
		Position:   p.Position,
	}, c)
}

func (r *Router) handleDeleteOrnament(ctx context.Context, c *Client, data json.RawMessage) {
	var p models.DeleteOrnamentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.OrnamentID == "" {
		return
	}

	deleted := false
	_, err := r.store.Mutate(ctx, c.sessionID, func(s *models.Session) bool {
		for i := range s.Ornaments {
			if s.Ornaments[i].ID == p.OrnamentID {
				s.Ornaments = append(s.Ornaments[:i], s.Ornaments[i+1:]...)
				deleted = true
				return true
			}
		}
		return false
	})
	if err != nil {
		r.logMutateError(ctx, c, "delete-ornament", err)
		return
	}
	if !deleted {
		return
	}

	r.broadcast(c.sessionID, models.EventOrnamentDeleted, models.OrnamentDeletedPayload{
		OrnamentID: p.OrnamentID,
	}, nil)

	log.Printf("🗑️  Ornament %s deleted in session %s", p.OrnamentID, c.sessionID)
}

func (r *Router) handleResizeOrnament(ctx context.Context, c *Client, data json.RawMessage) {
	var p models.ResizeOrnamentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.OrnamentID == "" {
		return
	}

	scale := models.ClampScale(p.Scale)

	resized := false
	_, err := r.store.Mutate(ctx, c.sessionID, func(s *models.Session) bool {
		ornament := s.Ornaments.Find(p.OrnamentID)
		if ornament == nil {
			return false
		}
		ornament.Scale = scale
		resized = true
		return true
	})
	if err != nil {
		r.logMutateError(ctx, c, "resize-ornament", err)
		return
	}
	if !resized {
		return
	}

	r.broadcast(c.sessionID, models.EventOrnamentResized, models.OrnamentResizedPayload{
		OrnamentID: p.OrnamentID,
		Scale:      scale,
	}, nil)

	log.Printf("📏 Ornament %s resized to %.2f in session %s", p.OrnamentID, scale, c.sessionID)
}

// HandleDisconnect runs the connection cleanup protocol. Errors here are
// logged and swallowed; disconnect handling never reaches the transport.
func (r *Router) HandleDisconnect(ctx context.Context, c *Client) {
	if !c.joined {
		return
	}

	remaining := r.presence.Leave(c.sessionID, c.userID)
	if remaining == 0 {
		// Presence already tore the session's structures down; nothing
		// left to notify.
		log.Printf("❌ User %s left session %s (now empty)", c.userID, c.sessionID)
		return
	}

	session, err := r.store.Mutate(ctx, c.sessionID, func(s *models.Session) bool {
		s.ActiveUsers = remaining
		return true
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		log.Printf("⚠️  Failed to update session %s on disconnect: %v", c.sessionID, err)
		return
	}

	r.broadcast(c.sessionID, models.EventUserLeft, models.UserLeftPayload{
		UserID:      c.userID,
		ActiveUsers: session.ActiveUsers,
	}, c)

	log.Printf("❌ User %s left session %s (%d active)", c.userID, c.sessionID, remaining)
}

// logMutateError records a failed session mutation. Absent sessions are
// silent no-ops: the client was operating on stale state and the mutation
// simply drops.
func (r *Router) logMutateError(ctx context.Context, c *Client, event string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	middleware.AddSpanError(ctx, err)
	log.Printf("⚠️  %s failed for session %s: %v", event, c.sessionID, err)
}
