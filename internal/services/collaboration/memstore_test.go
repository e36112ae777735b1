package collaboration

import (
	"context"
	"sync"
	"time"

	"treedeco/internal/models"
	"treedeco/internal/store"
)

// memStore is an in-memory store.Store used to exercise the router without
// a backing database. It mimics the real stores' load-modify-save shape and
// counts writes so tests can assert that no-op mutations never persist.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	saves    int
	failNext error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*models.Session)}
}

func (m *memStore) Create(ctx context.Context, treeSize models.TreeSize) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := models.NewSession(treeSize)
	m.sessions[session.SessionID] = session
	m.saves++

	copied := *session
	return &copied, nil
}

func (m *memStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}

	copied := *session
	copied.Ornaments = append(models.OrnamentList{}, session.Ornaments...)
	return &copied, nil
}

func (m *memStore) Mutate(ctx context.Context, sessionID string, fn func(*models.Session) bool) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}

	copied := *session
	copied.Ornaments = append(models.OrnamentList{}, session.Ornaments...)

	if !fn(&copied) {
		return &copied, nil
	}

	copied.LastActivity = time.Now().UTC()
	m.sessions[sessionID] = &copied
	m.saves++

	result := copied
	result.Ornaments = append(models.OrnamentList{}, copied.Ornaments...)
	return &result, nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
