package canary

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"finpulse/internal/api"
	"finpulse/internal/common/validation"
	"finpulse/internal/storage"

	"github.com/google/uuid"
)

func expectStatus(resp *ProbeResponse, httpStatus int, status api.Status) error {
	if resp.StatusCode != httpStatus {
		return fmt.Errorf("expected HTTP %d, got %d", httpStatus, resp.StatusCode)
	}
	if resp.Body.Status != status {
		return fmt.Errorf("expected Status %q, got %q (%s)", status, resp.Body.Status, resp.Body.Message)
	}
	return nil
}

func expectNoCookies(resp *ProbeResponse) error {
	if len(resp.Cookies) != 0 {
		names := make([]string, 0, len(resp.Cookies))
		for _, c := range resp.Cookies {
			names = append(names, c.Name)
		}
		return fmt.Errorf("expected no cookies, got %s", strings.Join(names, ", "))
	}
	return nil
}

// expectSchema runs the strict shape check: missing required fields and
// fields the schema does not name both fail.
func expectSchema(data map[string]interface{}, schema validation.JSONSchema) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	if result := validation.Validate(data, schema); !result.Valid {
		return fmt.Errorf("response data drifted: %s", result.Summary())
	}
	return nil
}

// emptyDataSchema rejects any payload at all.
var emptyDataSchema = validation.JSONSchema{Type: "object"}

var getUserDataSchema = validation.JSONSchema{
	Type:     "object",
	Required: []string{"email", "username", "createdAt"},
	Properties: map[string]validation.Property{
		"email":     {Type: "string", Pattern: validation.StrPtr("@")},
		"username":  {Type: "string", MinLength: validation.IntPtr(1)},
		"createdAt": {Type: "string"},
	},
}

// CreateUserProbe registers a throwaway user through the public signup
// endpoint and removes it afterwards.
type CreateUserProbe struct {
	client *Client
	store  storage.ItemStore
	email  string
}

func NewCreateUserProbe(client *Client, store storage.ItemStore) *CreateUserProbe {
	return &CreateUserProbe{
		client: client,
		store:  store,
		email:  fmt.Sprintf("canary+%s@finpulse.internal", uuid.NewString()[:8]),
	}
}

func (p *CreateUserProbe) Name() string          { return "CreateUser" }
func (p *CreateUserProbe) IsAuthenticated() bool { return false }

func (p *CreateUserProbe) CallAPI(ctx context.Context, _ string) (*ProbeResponse, error) {
	return p.client.Do(ctx, http.MethodPost, "/user", "", map[string]string{
		"email":    p.email,
		"username": "canary-probe",
		"password": uuid.NewString(),
	})
}

func (p *CreateUserProbe) ValidateStatus(resp *ProbeResponse) error {
	if err := expectStatus(resp, http.StatusCreated, api.StatusSuccess); err != nil {
		return err
	}
	if resp.Body.Message != "User created!" {
		return fmt.Errorf("unexpected message %q", resp.Body.Message)
	}
	return nil
}

func (p *CreateUserProbe) ValidateCookies(resp *ProbeResponse) error {
	return expectNoCookies(resp)
}

func (p *CreateUserProbe) ValidateData(resp *ProbeResponse) error {
	return expectSchema(resp.Body.Data, emptyDataSchema)
}

func (p *CreateUserProbe) CleanUp(ctx context.Context) error {
	return p.store.Delete(ctx, storage.TableUsers, p.email)
}

// GetUserProbe reads the provisioned canary user's profile through an
// authenticated, session-bracketed call.
type GetUserProbe struct {
	client *Client
}

func NewGetUserProbe(client *Client) *GetUserProbe {
	return &GetUserProbe{client: client}
}

func (p *GetUserProbe) Name() string          { return "GetUser" }
func (p *GetUserProbe) IsAuthenticated() bool { return true }

func (p *GetUserProbe) CallAPI(ctx context.Context, token string) (*ProbeResponse, error) {
	return p.client.Do(ctx, http.MethodGet, "/user", token, nil)
}

func (p *GetUserProbe) ValidateStatus(resp *ProbeResponse) error {
	return expectStatus(resp, http.StatusOK, api.StatusSuccess)
}

func (p *GetUserProbe) ValidateCookies(resp *ProbeResponse) error {
	return expectNoCookies(resp)
}

func (p *GetUserProbe) ValidateData(resp *ProbeResponse) error {
	return expectSchema(resp.Body.Data, getUserDataSchema)
}

func (p *GetUserProbe) CleanUp(context.Context) error { return nil }
