// Package user implements the account endpoints: signup, profile read,
// and account deletion.
package user

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/models"
	"finpulse/internal/storage"
)

// SessionEnder is the slice of the session store account deletion needs.
type SessionEnder interface {
	EndAll(ctx context.Context, userID string) (int, error)
}

// CreateUser registers a new account. Public: this is the signup surface.
type CreateUser struct {
	store storage.ItemStore
}

func NewCreateUser(store storage.ItemStore) *CreateUser {
	return &CreateUser{store: store}
}

func (h *CreateUser) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:               "CreateUser",
		RequiredBodyFields: []string{"email", "username", "password"},
		ExpectedKinds:      []errors.Kind{errors.KindConflict, errors.KindValidationFailure},
		SuccessStatus:      http.StatusCreated,
	}
}

func (h *CreateUser) Validate(ctx context.Context, req *api.Request) error {
	email := req.BodyString("email")
	if !strings.Contains(email, "@") {
		return errors.NewValidationFailure("email", "not a valid email address")
	}
	if len(req.BodyString("password")) < 8 {
		return errors.NewValidationFailure("password", "must be at least 8 characters")
	}
	return nil
}

func (h *CreateUser) Execute(ctx context.Context, req *api.Request, _ *auth.Claims) (*api.Response, error) {
	email := req.BodyString("email")

	hash, err := auth.HashPassword(req.BodyString("password"))
	if err != nil {
		return nil, err
	}

	record := models.User{
		Email:        email,
		Username:     req.BodyString("username"),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := h.store.PutIfAbsent(ctx, storage.TableUsers, email, record)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.NewConflict("User")
	}

	return api.Success("CreateUser", "User created!", nil), nil
}

// GetUser returns the authenticated caller's profile.
type GetUser struct {
	store storage.ItemStore
}

func NewGetUser(store storage.ItemStore) *GetUser {
	return &GetUser{store: store}
}

func (h *GetUser) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:          "GetUser",
		RequiresAuth:  true,
		ExpectedKinds: []errors.Kind{errors.KindNotFound},
	}
}

func (h *GetUser) Validate(context.Context, *api.Request) error { return nil }

func (h *GetUser) Execute(ctx context.Context, _ *api.Request, claims *auth.Claims) (*api.Response, error) {
	record, err := loadUser(ctx, h.store, claims.Email)
	if err != nil {
		return nil, err
	}

	// Exactly these fields; the profile contract is load-bearing for
	// downstream consumers and the synthetic probes.
	return api.Success("GetUser", "User found!", map[string]interface{}{
		"email":     record.Email,
		"username":  record.Username,
		"createdAt": record.CreatedAt.UTC().Format(time.RFC3339),
	}), nil
}

// DeleteUser removes the account, its holdings, and every live session.
type DeleteUser struct {
	store    storage.ItemStore
	sessions SessionEnder
}

func NewDeleteUser(store storage.ItemStore, sessions SessionEnder) *DeleteUser {
	return &DeleteUser{store: store, sessions: sessions}
}

func (h *DeleteUser) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:          "DeleteUser",
		RequiresAuth:  true,
		ExpectedKinds: []errors.Kind{errors.KindNotFound},
	}
}

func (h *DeleteUser) Validate(context.Context, *api.Request) error { return nil }

func (h *DeleteUser) Execute(ctx context.Context, _ *api.Request, claims *auth.Claims) (*api.Response, error) {
	if _, err := loadUser(ctx, h.store, claims.Email); err != nil {
		return nil, err
	}

	holdings, err := h.store.Query(ctx, storage.TableStocks, claims.Email+"#")
	if err != nil {
		return nil, err
	}
	for key := range holdings {
		if err := h.store.Delete(ctx, storage.TableStocks, key); err != nil {
			return nil, err
		}
	}

	if err := h.store.Delete(ctx, storage.TableUsers, claims.Email); err != nil {
		return nil, err
	}

	if _, err := h.sessions.EndAll(ctx, claims.UserID); err != nil {
		return nil, err
	}

	return api.Success("DeleteUser", "User deleted!", nil), nil
}

func loadUser(ctx context.Context, store storage.ItemStore, email string) (*models.User, error) {
	raw, err := store.Get(ctx, storage.TableUsers, email)
	if err != nil {
		if stderrors.Is(err, storage.ErrItemNotFound) {
			return nil, errors.NewNotFound("User")
		}
		return nil, err
	}

	var record models.User
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}
	return &record, nil
}
