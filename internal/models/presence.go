package models

// Cursor is the transient per-user presence state for one session.
// It lives only in the presence registry and is never persisted.
type Cursor struct {
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	IsDragging   bool      `json:"isDragging"`
	DraggingItem *Ornament `json:"draggingItem,omitempty"`
}

// UserCursor is a cursor tagged with its owner, as sent on the wire.
type UserCursor struct {
	UserID string `json:"userId"`
	Cursor
}

// CursorColors is the fixed palette cursors are assigned from on join.
var CursorColors = [...]string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#FFA07A",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E2",
}

// FallbackName derives a display name from a user id when the client
// supplied none: "User " plus the first four characters of the id.
func FallbackName(userID string) string {
	short := userID
	if len(short) > 4 {
		short = short[:4]
	}
	return "User " + short
}
