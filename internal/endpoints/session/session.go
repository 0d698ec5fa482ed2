// Package session implements the login and logout endpoints.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/models"
	"finpulse/internal/storage"
)

// SessionCreator opens a session for a verified identity.
type SessionCreator interface {
	Create(ctx context.Context, userID, email string) (*models.Session, error)
}

// SessionEnderOne ends a single session.
type SessionEnderOne interface {
	End(ctx context.Context, userID, sessionID string) error
}

// TokenIssuer signs a bearer token for a session.
type TokenIssuer interface {
	Encode(userID, email, sessionID string) (string, error)
}

// Login verifies credentials and issues a session-bound bearer token.
type Login struct {
	store    storage.ItemStore
	sessions SessionCreator
	tokens   TokenIssuer
}

func NewLogin(store storage.ItemStore, sessions SessionCreator, tokens TokenIssuer) *Login {
	return &Login{store: store, sessions: sessions, tokens: tokens}
}

func (h *Login) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:               "Login",
		RequiredBodyFields: []string{"email", "password"},
	}
}

func (h *Login) Validate(context.Context, *api.Request) error { return nil }

func (h *Login) Execute(ctx context.Context, req *api.Request, _ *auth.Claims) (*api.Response, error) {
	email := req.BodyString("email")

	raw, err := h.store.Get(ctx, storage.TableUsers, email)
	if err != nil {
		// An unknown email and a wrong password must be indistinguishable.
		if stderrors.Is(err, storage.ErrItemNotFound) {
			return nil, errors.NewNotAuthenticated("unknown email")
		}
		return nil, err
	}

	var record models.User
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}

	if !auth.VerifyPassword(record.PasswordHash, req.BodyString("password")) {
		return nil, errors.NewNotAuthenticated("password mismatch")
	}

	session, err := h.sessions.Create(ctx, email, email)
	if err != nil {
		return nil, err
	}

	token, err := h.tokens.Encode(email, email, session.ID)
	if err != nil {
		return nil, err
	}

	return api.Success("Login", "Login successful!", map[string]interface{}{
		"token":     token,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	}), nil
}

// Logout ends the calling session; the token is useless afterwards even
// though it has not expired.
type Logout struct {
	sessions SessionEnderOne
}

func NewLogout(sessions SessionEnderOne) *Logout {
	return &Logout{sessions: sessions}
}

func (h *Logout) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:          "Logout",
		RequiresAuth:  true,
		ExpectedKinds: []errors.Kind{errors.KindNotFound},
	}
}

func (h *Logout) Validate(context.Context, *api.Request) error { return nil }

func (h *Logout) Execute(ctx context.Context, _ *api.Request, claims *auth.Claims) (*api.Response, error) {
	if err := h.sessions.End(ctx, claims.UserID, claims.SessionID); err != nil {
		return nil, err
	}
	return api.Success("Logout", "Logout successful!", nil), nil
}
