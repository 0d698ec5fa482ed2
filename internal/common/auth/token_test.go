package auth

import (
	"strings"
	"testing"
	"time"

	"finpulse/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)

	token, err := codec.Encode("u1", "u1@example.com", "s1")
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, "s1", claims.SessionID)
	assert.False(t, claims.Expired())
}

func TestTokenCodec_EveryFailureModeIsNotAuthenticated(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	other := NewTokenCodec("different-key", time.Hour)
	expired := NewTokenCodec("secret", -time.Minute)

	valid, err := codec.Encode("u1", "u1@example.com", "s1")
	require.NoError(t, err)
	foreign, err := other.Encode("u1", "u1@example.com", "s1")
	require.NoError(t, err)
	stale, err := expired.Encode("u1", "u1@example.com", "s1")
	require.NoError(t, err)

	tampered := valid
	if strings.HasSuffix(tampered, "A") {
		tampered = tampered[:len(tampered)-1] + "B"
	} else {
		tampered = tampered[:len(tampered)-1] + "A"
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "no separator", token: "just-one-part"},
		{name: "bad base64 payload", token: "!!!.sig"},
		{name: "wrong signing key", token: foreign},
		{name: "tampered signature", token: tampered},
		{name: "expired", token: stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindNotAuthenticated))
			// The caller-facing message never says which check tripped.
			assert.Equal(t, "Not authenticated!", errors.Normalize(err).Message)
		})
	}
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr bool
	}{
		{name: "standard header", headers: map[string]string{"Authorization": "Bearer abc"}, want: "abc"},
		{name: "case-insensitive name", headers: map[string]string{"authorization": "Bearer abc"}, want: "abc"},
		{name: "missing header", headers: map[string]string{}, wantErr: true},
		{name: "wrong scheme", headers: map[string]string{"Authorization": "Basic abc"}, wantErr: true},
		{name: "empty token", headers: map[string]string{"Authorization": "Bearer "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ParseBearer(tt.headers)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, errors.KindNotAuthenticated))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestPassword_HashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotContains(t, hash, "correct-horse")

	assert.True(t, VerifyPassword(hash, "correct-horse"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "correct-horse"))

	// Salting: the same password hashes differently each time.
	again, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
	assert.True(t, VerifyPassword(again, "correct-horse"))
}
