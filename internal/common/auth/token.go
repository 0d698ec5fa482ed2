// Package auth decodes bearer tokens and manages session lifecycles.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finpulse/internal/common/errors"
)

// Claims are the identity assertions carried inside a bearer token.
type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Expired reports whether the token is past its expiry.
func (c *Claims) Expired() bool {
	return time.Now().Unix() >= c.ExpiresAt
}

// TokenCodec signs and verifies bearer tokens. Tokens are
// base64url(claims JSON) "." base64url(HMAC-SHA256 signature).
type TokenCodec struct {
	key []byte
	ttl time.Duration
}

func NewTokenCodec(signingKey string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{key: []byte(signingKey), ttl: ttl}
}

// Encode issues a signed token for the given identity and session.
func (c *TokenCodec) Encode(userID, email, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(payload), nil
}

// Decode verifies the signature and expiry and returns the claims. Every
// failure mode maps to NotAuthenticated; the caller never learns which
// check tripped.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, errors.NewNotAuthenticated("malformed token")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.NewNotAuthenticated("undecodable token payload")
	}

	if !hmac.Equal([]byte(c.sign(payload)), []byte(parts[1])) {
		return nil, errors.NewNotAuthenticated("signature mismatch")
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.NewNotAuthenticated("unparseable claims")
	}

	if claims.Expired() {
		return nil, errors.NewNotAuthenticated("token expired")
	}

	return &claims, nil
}

func (c *TokenCodec) sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ParseBearer extracts the token from an Authorization header value of the
// form "Bearer <token>".
func ParseBearer(headers map[string]string) (string, error) {
	value := ""
	for name, v := range headers {
		if strings.EqualFold(name, "Authorization") {
			value = v
			break
		}
	}

	if value == "" {
		return "", errors.NewNotAuthenticated("missing Authorization header")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) || len(value) == len(prefix) {
		return "", errors.NewNotAuthenticated("malformed Authorization header")
	}

	return value[len(prefix):], nil
}
