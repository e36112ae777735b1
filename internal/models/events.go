package models

import "encoding/json"

/*
Realtime protocol envelope. Every frame in either direction is

	{"event": "<name>", "data": {...}}

Inbound payloads are decoded into the typed structs below at the boundary;
a frame that fails to decode or is missing required fields is dropped as a
validation error instead of reaching a handler.

Cursor coordinates are raw pixel offsets relative to the canvas center.
That is the canonical convention for cursor-move, all-cursors and
cursor-update; clients must not send viewport-normalized values.
*/

// Envelope is the wire frame for every inbound and outbound event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinSession    = "join-session"
	EventCursorMove     = "cursor-move"
	EventDragStart      = "drag-start"
	EventDragEnd        = "drag-end"
	EventChangeTreeSize = "change-tree-size"
	EventAddOrnament    = "add-ornament"
	EventMoveOrnament   = "move-ornament"
	EventDeleteOrnament = "delete-ornament"
	EventResizeOrnament = "resize-ornament"
)

// Outbound event names.
const (
	EventSessionState    = "session-state"
	EventAllCursors      = "all-cursors"
	EventUserJoined      = "user-joined"
	EventCursorUpdate    = "cursor-update"
	EventUserDragging    = "user-dragging"
	EventUserStoppedDrag = "user-stopped-dragging"
	EventTreeSizeChanged = "tree-size-changed"
	EventOrnamentAdded   = "ornament-added"
	EventOrnamentMoved   = "ornament-moved"
	EventOrnamentDeleted = "ornament-deleted"
	EventOrnamentResized = "ornament-resized"
	EventUserLeft        = "user-left"
	EventError           = "error"
)

// Inbound payloads.

type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
}

type CursorMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type DragStartPayload struct {
	Ornament Ornament `json:"ornament"`
}

type ChangeTreeSizePayload struct {
	TreeSize TreeSize `json:"treeSize"`
}

type AddOrnamentPayload struct {
	Ornament Ornament `json:"ornament"`
}

type MoveOrnamentPayload struct {
	OrnamentID string   `json:"ornamentId"`
	Position   Position `json:"position"`
}

type DeleteOrnamentPayload struct {
	OrnamentID string `json:"ornamentId"`
}

type ResizeOrnamentPayload struct {
	OrnamentID string  `json:"ornamentId"`
	Scale      float64 `json:"scale"`
}

// Outbound payloads.

type SessionStatePayload struct {
	TreeSize    TreeSize     `json:"treeSize"`
	Ornaments   OrnamentList `json:"ornaments"`
	ActiveUsers int          `json:"activeUsers"`
}

type UserJoinedPayload struct {
	UserID      string `json:"userId"`
	ActiveUsers int    `json:"activeUsers"`
	Cursor      Cursor `json:"cursor"`
}

type CursorUpdatePayload struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type UserDraggingPayload struct {
	UserID   string   `json:"userId"`
	Ornament Ornament `json:"ornament"`
}

type UserStoppedDraggingPayload struct {
	UserID string `json:"userId"`
}

type TreeSizeChangedPayload struct {
	TreeSize  TreeSize     `json:"treeSize"`
	Ornaments OrnamentList `json:"ornaments"`
}

type OrnamentAddedPayload struct {
	Ornament Ornament `json:"ornament"`
}

type OrnamentMovedPayload struct {
	OrnamentID string   `json:"ornamentId"`
	Position   Position `json:"position"`
}

type OrnamentDeletedPayload struct {
	OrnamentID string `json:"ornamentId"`
}

type OrnamentResizedPayload struct {
	OrnamentID string  `json:"ornamentId"`
	Scale      float64 `json:"scale"`
}

type UserLeftPayload struct {
	UserID      string `json:"userId"`
	ActiveUsers int    `json:"activeUsers"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// MarshalEvent wraps an event name and payload into an envelope frame.
func MarshalEvent(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
