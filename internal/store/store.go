package store

import (
	"context"
	"errors"
	"fmt"

	"treedeco/internal/models"
)

// ErrNotFound is returned when a session id does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// PersistenceError wraps a failed durable-store operation. Callers treat it
// as "the write may not have happened": the event is dropped without a
// broadcast and the connection stays alive.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the durable session store. Mutate is a full load-modify-save
// round trip with no cross-call locking; concurrent mutations of the same
// session are last-write-wins (see DESIGN.md).
type Store interface {
	// Create persists a new session and returns it. On error the caller
	// must not assume the session exists.
	Create(ctx context.Context, treeSize models.TreeSize) (*models.Session, error)

	// Get returns the session or ErrNotFound (absent or expired).
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// Mutate loads the session and applies fn. When fn returns true the
	// session is stamped with a fresh LastActivity and saved; when it
	// returns false the load result is returned without a write (used for
	// mutations that turn out to be no-ops, e.g. moving a vanished
	// ornament). Returns ErrNotFound when the session is absent or expired.
	Mutate(ctx context.Context, sessionID string, fn func(*models.Session) bool) (*models.Session, error)
}
