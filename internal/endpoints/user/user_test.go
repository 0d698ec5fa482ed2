package user

import (
	"context"
	"testing"
	"time"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/models"
	"finpulse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionEnder struct {
	mock.Mock
}

func (m *MockSessionEnder) EndAll(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func createUserRequest(body string) *api.Request {
	return &api.Request{
		Path:       "/user",
		HTTPMethod: "POST",
		Body:       body,
	}
}

func claimsFor(email string) *auth.Claims {
	return &auth.Claims{UserID: email, Email: email, SessionID: "s1"}
}

// ==========================
// CreateUser
// ==========================

func TestCreateUser_HappyPath(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewCreateUser(store)
	ctx := context.Background()

	req := createUserRequest(`{"email":"a@b.c","username":"alice","password":"correct-horse"}`)
	require.NoError(t, h.Validate(ctx, req))

	resp, err := h.Execute(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, api.StatusSuccess, resp.Status)
	assert.Equal(t, "User created!", resp.Message)
	assert.Empty(t, resp.Data)

	raw, err := store.Get(ctx, storage.TableUsers, "a@b.c")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"alice"`)
	assert.NotContains(t, string(raw), "correct-horse", "the raw password must never be stored")
}

func TestCreateUser_DuplicateIsConflict(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewCreateUser(store)
	ctx := context.Background()

	req := createUserRequest(`{"email":"a@b.c","username":"alice","password":"correct-horse"}`)
	_, err := h.Execute(ctx, req, nil)
	require.NoError(t, err)

	_, err = h.Execute(ctx, req, nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConflict))
	assert.Contains(t, err.Error(), "User already exists!")
}

func TestCreateUser_Validation(t *testing.T) {
	h := NewCreateUser(storage.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name string
		body string
	}{
		{name: "bad email", body: `{"email":"not-an-email","username":"a","password":"longenough"}`},
		{name: "short password", body: `{"email":"a@b.c","username":"a","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Validate(ctx, createUserRequest(tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindValidationFailure))
		})
	}
}

// ==========================
// GetUser
// ==========================

func TestGetUser_ReturnsExactProfileFields(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, storage.TableUsers, "a@b.c", models.User{
		Email: "a@b.c", Username: "alice", PasswordHash: "salt$digest", CreatedAt: created,
	}))

	h := NewGetUser(store)
	resp, err := h.Execute(ctx, &api.Request{}, claimsFor("a@b.c"))
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"email":     "a@b.c",
		"username":  "alice",
		"createdAt": "2026-08-30T10:00:00Z",
	}, resp.Data, "profile payload carries exactly these fields")
}

func TestGetUser_MissingUserIsNotFound(t *testing.T) {
	h := NewGetUser(storage.NewMemoryStore())

	_, err := h.Execute(context.Background(), &api.Request{}, claimsFor("ghost@b.c"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Contains(t, err.Error(), "User does not exist!")
}

// ==========================
// DeleteUser
// ==========================

func TestDeleteUser_RemovesEverything(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, storage.TableUsers, "a@b.c", models.User{Email: "a@b.c"}))
	require.NoError(t, store.Put(ctx, storage.TableStocks, storage.HoldingKey("a@b.c", "AAPL"), models.Holding{Symbol: "AAPL"}))
	require.NoError(t, store.Put(ctx, storage.TableStocks, storage.HoldingKey("other@b.c", "AAPL"), models.Holding{Symbol: "AAPL"}))

	sessions := &MockSessionEnder{}
	sessions.On("EndAll", mock.Anything, "a@b.c").Return(2, nil)

	h := NewDeleteUser(store, sessions)
	resp, err := h.Execute(ctx, &api.Request{}, claimsFor("a@b.c"))
	require.NoError(t, err)
	assert.Equal(t, "User deleted!", resp.Message)

	_, err = store.Get(ctx, storage.TableUsers, "a@b.c")
	assert.ErrorIs(t, err, storage.ErrItemNotFound)

	holdings, err := store.Query(ctx, storage.TableStocks, "a@b.c#")
	require.NoError(t, err)
	assert.Empty(t, holdings)

	// Another user's holdings are untouched.
	others, err := store.Query(ctx, storage.TableStocks, "other@b.c#")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	sessions.AssertExpectations(t)
}

func TestDeleteUser_MissingUserIsNotFound(t *testing.T) {
	h := NewDeleteUser(storage.NewMemoryStore(), &MockSessionEnder{})

	_, err := h.Execute(context.Background(), &api.Request{}, claimsFor("ghost@b.c"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}
