// Package canary runs synthetic probes against the live API and turns
// contract drift into metrics and ops alerts before users hit it.
package canary

import (
	"context"
	"net/http"

	"finpulse/internal/api"
)

// ProbeResponse is what a probe's API call produced, pre-parsed into the
// uniform response body.
type ProbeResponse struct {
	StatusCode int
	Cookies    []*http.Cookie
	Body       *api.Response
	RawBody    []byte
}

// Probe is one synthetic check. Validations are strict: a response that
// carries fields the probe does not expect fails just like one missing
// fields, because unexpected payload means the contract drifted.
type Probe interface {
	Name() string
	// IsAuthenticated reports whether the runner must bracket the call in
	// a session and pass a bearer token.
	IsAuthenticated() bool
	CallAPI(ctx context.Context, token string) (*ProbeResponse, error)
	ValidateStatus(resp *ProbeResponse) error
	ValidateCookies(resp *ProbeResponse) error
	ValidateData(resp *ProbeResponse) error
	// CleanUp undoes any state the probe created. The runner guarantees it
	// runs whether the probe passed or failed.
	CleanUp(ctx context.Context) error
}
