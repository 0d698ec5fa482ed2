package auth

import (
	"context"
	"testing"
	"time"

	"finpulse/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client, time.Hour), mr
}

func TestSessionStore_CreateAndVerify(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	session, err := sessions.Create(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.True(t, session.IsActive())

	require.NoError(t, sessions.Verify(ctx, &Claims{UserID: "u1", SessionID: session.ID}))
}

func TestSessionStore_EndRevokesWithImmediateExpiry(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	session, err := sessions.Create(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	require.NoError(t, sessions.End(ctx, "u1", session.ID))

	// The record is retained briefly so the token is rejected as revoked,
	// not treated as unknown.
	ended, err := sessions.Get(ctx, "u1", session.ID)
	require.NoError(t, err)
	assert.True(t, ended.Revoked)
	assert.False(t, ended.IsActive())

	err = sessions.Verify(ctx, &Claims{UserID: "u1", SessionID: session.ID})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotAuthenticated))
}

func TestSessionStore_EndMissingSessionIsNotFound(t *testing.T) {
	sessions, _ := newTestSessions(t)

	err := sessions.End(context.Background(), "u1", "never-existed")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestSessionStore_EndAllOnlyTouchesOneUser(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	s1, err := sessions.Create(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	_, err = sessions.Create(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	other, err := sessions.Create(ctx, "u2", "u2@example.com")
	require.NoError(t, err)

	count, err := sessions.EndAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = sessions.Get(ctx, "u1", s1.ID)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	require.NoError(t, sessions.Verify(ctx, &Claims{UserID: "u2", SessionID: other.ID}))
}

func TestSessionStore_ExpiredRecordFailsVerification(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	session, err := sessions.Create(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	mr.FastForward(30 * time.Minute)
	require.NoError(t, sessions.Verify(ctx, &Claims{UserID: "u1", SessionID: session.ID}))

	// Past the TTL the key is gone and the token no longer authenticates.
	mr.FastForward(2 * time.Hour)
	err = sessions.Verify(ctx, &Claims{UserID: "u1", SessionID: session.ID})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotAuthenticated))
}
