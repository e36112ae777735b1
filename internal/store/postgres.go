package store

import (
	"context"
	"errors"
	"log"
	"time"

	"treedeco/internal/models"

	"gorm.io/gorm"
)

// PostgresStore keeps one row per session. Postgres has no native TTL, so
// expiry is enforced twice: reads filter out rows past the TTL, and a
// background sweep deletes them for real.
type PostgresStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(db *gorm.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

func (s *PostgresStore) Create(ctx context.Context, treeSize models.TreeSize) (*models.Session, error) {
	session := models.NewSession(treeSize)

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, &PersistenceError{Op: "create session", Err: err}
	}

	return session, nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session

	err := s.db.WithContext(ctx).
		Where("session_id = ? AND created_at > ?", sessionID, time.Now().UTC().Add(-s.ttl)).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get session", Err: err}
	}

	return &session, nil
}

func (s *PostgresStore) Mutate(ctx context.Context, sessionID string, fn func(*models.Session) bool) (*models.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !fn(session) {
		return session, nil
	}
	session.LastActivity = time.Now().UTC()

	// Full-document save, matching the load-modify-save discipline.
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return nil, &PersistenceError{Op: "save session", Err: err}
	}

	return session, nil
}

// SweepExpired deletes sessions whose TTL has elapsed and returns how many
// rows were removed.
func (s *PostgresStore) SweepExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at <= ?", time.Now().UTC().Add(-s.ttl)).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, &PersistenceError{Op: "sweep expired sessions", Err: result.Error}
	}
	return result.RowsAffected, nil
}

// StartSweeper runs SweepExpired on a fixed interval until the context is
// cancelled.
func (s *PostgresStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.SweepExpired(ctx)
				if err != nil {
					log.Printf("⚠️  Session sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("  Swept %d expired session(s)", n)
				}
			}
		}
	}()
}
