package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"treedeco/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tree:session:"

// RedisStore keeps one JSON document per session and leans on Redis' native
// key TTL for the 24h expiry: the TTL is set once at create and preserved
// across saves, so expiry counts from creation regardless of activity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Create(ctx context.Context, treeSize models.TreeSize) (*models.Session, error) {
	session := models.NewSession(treeSize)

	data, err := json.Marshal(session)
	if err != nil {
		return nil, &PersistenceError{Op: "marshal session", Err: err}
	}

	if err := s.client.Set(ctx, s.key(session.SessionID), data, s.ttl).Err(); err != nil {
		return nil, &PersistenceError{Op: "create session", Err: err}
	}

	return session, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get session", Err: err}
	}

	var session models.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, &PersistenceError{Op: "unmarshal session", Err: err}
	}

	return &session, nil
}

func (s *RedisStore) Mutate(ctx context.Context, sessionID string, fn func(*models.Session) bool) (*models.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !fn(session) {
		return session, nil
	}
	session.LastActivity = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return nil, &PersistenceError{Op: "marshal session", Err: err}
	}

	// KeepTTL so saves never extend the 24h-from-creation expiry.
	if err := s.client.Set(ctx, s.key(sessionID), data, redis.KeepTTL).Err(); err != nil {
		return nil, &PersistenceError{Op: "save session", Err: err}
	}

	return session, nil
}
