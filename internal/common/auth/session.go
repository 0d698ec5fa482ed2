package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finpulse/internal/common/errors"
	"finpulse/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// endedRetention keeps ended sessions around briefly so a revoked token is
// rejected rather than treated as unknown.
const endedRetention = time.Minute

// SessionStore keeps sessions in Redis under session:<userID>:<sessionID>.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}

// Create opens a new session for the user.
func (s *SessionStore) Create(ctx context.Context, userID, email string) (*models.Session, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(userID, session.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

// Get returns a session, or NotFound("session") when no record exists.
func (s *SessionStore) Get(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID, sessionID)).Result()
	if err == redis.Nil {
		return nil, errors.NewNotFound("session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// End revokes a session: revoked flag set, expiry moved to now. Ending a
// session that does not exist returns NotFound("session") so callers (the
// canary in particular) can treat it as a failure rather than a no-op.
func (s *SessionStore) End(ctx context.Context, userID, sessionID string) error {
	session, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	session.Revoked = true
	session.ExpiresAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(userID, sessionID), data, endedRetention).Err(); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

// EndAll revokes every session belonging to the user and returns the count.
func (s *SessionStore) EndAll(ctx context.Context, userID string) (int, error) {
	pattern := fmt.Sprintf("session:%s:*", userID)
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find sessions: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}

	return len(keys), nil
}

// Verify confirms the claims map to a live session.
func (s *SessionStore) Verify(ctx context.Context, claims *Claims) error {
	session, err := s.Get(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			return errors.NewNotAuthenticated("session not found")
		}
		return err
	}

	if !session.IsActive() {
		return errors.NewNotAuthenticated("session revoked or expired")
	}

	return nil
}
