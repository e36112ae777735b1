package presence

import (
	"math/rand"
	"sync"

	"treedeco/internal/models"
)

// Registry holds all transient per-session presence state: cursors, drag
// ghosts and the membership set. Nothing in here is ever persisted.
//
// Per-session structures are allocated lazily on the first join and torn
// down entirely when the last member leaves; that teardown is the only
// garbage collection for presence state.
type Registry struct {
	mu      sync.RWMutex
	cursors map[string]map[string]*models.Cursor // sessionID -> userID -> cursor
	members map[string]map[string]struct{}       // sessionID -> set of userIDs
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		cursors: make(map[string]map[string]*models.Cursor),
		members: make(map[string]map[string]struct{}),
	}
}

// Join registers a user in a session, allocating the session's presence
// structures on first use. The cursor starts at the canvas center with a
// random palette color. Returns the new cursor and the membership size
// including the joiner.
func (r *Registry) Join(sessionID, userID, displayName string) (models.Cursor, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursors[sessionID] == nil {
		r.cursors[sessionID] = make(map[string]*models.Cursor)
		r.members[sessionID] = make(map[string]struct{})
	}

	if displayName == "" {
		displayName = models.FallbackName(userID)
	}

	cursor := &models.Cursor{
		X:     0,
		Y:     0,
		Name:  displayName,
		Color: models.CursorColors[rand.Intn(len(models.CursorColors))],
	}

	r.cursors[sessionID][userID] = cursor
	r.members[sessionID][userID] = struct{}{}

	return *cursor, len(r.members[sessionID])
}

// UpdateCursor overwrites a user's cursor position in place. It reports
// whether the user was present; an absent user (the event raced a leave)
// is a no-op.
func (r *Registry) UpdateCursor(sessionID, userID string, x, y float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, ok := r.cursors[sessionID][userID]
	if !ok {
		return false
	}
	cursor.X = x
	cursor.Y = y
	return true
}

// SetDragging sets or clears a user's drag state. A nil item clears both
// the flag and the ghost. Reports whether the user was present.
func (r *Registry) SetDragging(sessionID, userID string, item *models.Ornament) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, ok := r.cursors[sessionID][userID]
	if !ok {
		return false
	}
	cursor.IsDragging = item != nil
	cursor.DraggingItem = item
	return true
}

// Leave removes a user from a session and returns the remaining membership
// count. When it reaches zero every session-scoped structure is deleted.
func (r *Registry) Leave(sessionID, userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.members[sessionID]
	if !ok {
		return 0
	}

	delete(members, userID)
	delete(r.cursors[sessionID], userID)

	remaining := len(members)
	if remaining == 0 {
		delete(r.members, sessionID)
		delete(r.cursors, sessionID)
	}

	return remaining
}

// Snapshot returns the current cursors for a session, optionally excluding
// one user. Used to seed a newly joined client.
func (r *Registry) Snapshot(sessionID, excluding string) []models.UserCursor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cursors := r.cursors[sessionID]
	result := make([]models.UserCursor, 0, len(cursors))

	for userID, cursor := range cursors {
		if userID == excluding {
			continue
		}
		result = append(result, models.UserCursor{UserID: userID, Cursor: *cursor})
	}

	return result
}

// MemberCount returns the live membership size for a session.
func (r *Registry) MemberCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members[sessionID])
}

// Contains reports whether a user is currently joined to a session.
func (r *Registry) Contains(sessionID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[sessionID][userID]
	return ok
}
