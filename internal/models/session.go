package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TreeSize is the size preset of the shared tree.
type TreeSize string

const (
	TreeSmall  TreeSize = "small"
	TreeMedium TreeSize = "medium"
	TreeLarge  TreeSize = "large"
)

// Valid reports whether s is one of the three supported presets.
func (s TreeSize) Valid() bool {
	switch s {
	case TreeSmall, TreeMedium, TreeLarge:
		return true
	}
	return false
}

// Position is an offset relative to the canvas center, in raw pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ornament is one placed decoration. Its visual identity (type, emoji) is
// copied from the catalog entry at placement time and is immutable afterwards;
// only position, rotation and scale change over its lifetime.
type Ornament struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Emoji    string   `json:"emoji"`
	Position Position `json:"position"`
	Rotation float64  `json:"rotation"`
	Scale    float64  `json:"scale"`
	AddedBy  string   `json:"addedBy"`
}

// Scale bounds enforced on resize.
const (
	MinOrnamentScale = 0.5
	MaxOrnamentScale = 2.0
)

// ClampScale bounds a requested ornament scale to [0.5, 2.0].
func ClampScale(scale float64) float64 {
	if scale < MinOrnamentScale {
		return MinOrnamentScale
	}
	if scale > MaxOrnamentScale {
		return MaxOrnamentScale
	}
	return scale
}

// OrnamentList is persisted as a single jsonb column. Insertion order is the
// render z-order.
type OrnamentList []Ornament

// Value implements driver.Valuer for jsonb storage.
func (l OrnamentList) Value() (driver.Value, error) {
	if l == nil {
		l = OrnamentList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for jsonb storage.
func (l *OrnamentList) Scan(value interface{}) error {
	if value == nil {
		*l = OrnamentList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("ornaments: unsupported column type %T", value)
	}
	return json.Unmarshal(data, l)
}

// Find returns a pointer into the list for the given ornament id, or nil.
func (l OrnamentList) Find(id string) *Ornament {
	for i := range l {
		if l[i].ID == id {
			return &l[i]
		}
	}
	return nil
}

// Session is the durable collaborative document for one shared tree.
// ActiveUsers is advisory: it mirrors the presence membership size at the
// time of the last save; the live presence registry is authoritative.
type Session struct {
	SessionID    string       `json:"sessionId" gorm:"column:session_id;type:char(36);primaryKey"`
	TreeSize     TreeSize     `json:"treeSize" gorm:"column:tree_size;type:varchar(16);not null;default:'medium'"`
	Ornaments    OrnamentList `json:"ornaments" gorm:"column:ornaments;type:jsonb;not null;default:'[]'"`
	ActiveUsers  int          `json:"activeUsers" gorm:"column:active_users;not null;default:0"`
	CreatedAt    time.Time    `json:"createdAt" gorm:"column:created_at;index"`
	LastActivity time.Time    `json:"lastActivity" gorm:"column:last_activity"`
}

// NewSession builds a fresh session with a uuid identifier and no ornaments.
// An unknown tree size falls back to medium.
func NewSession(treeSize TreeSize) *Session {
	if !treeSize.Valid() {
		treeSize = TreeMedium
	}
	now := time.Now().UTC()
	return &Session{
		SessionID:    uuid.NewString(),
		TreeSize:     treeSize,
		Ornaments:    OrnamentList{},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Expired reports whether the session has outlived ttl at the given instant.
// Expiry counts from creation regardless of activity.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.After(s.CreatedAt.Add(ttl))
}
