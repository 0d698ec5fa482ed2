package api

import (
	"context"
	"net/http"

	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
)

// Descriptor declares an endpoint's contract. It is built once at
// registration time and never mutated.
type Descriptor struct {
	// Name is the API name echoed in every response and metric.
	Name string
	// RequiredBodyFields must all be present in the JSON body before the
	// endpoint's own Validate hook runs.
	RequiredBodyFields []string
	// RequiredHeaders must all be present (case-insensitive) on the request.
	RequiredHeaders []string
	// ExpectedKinds are the failure kinds this endpoint knows how to
	// handle; anything outside the set escalates to Internal/500.
	ExpectedKinds []errors.Kind
	// RequiresAuth gates the bearer-token check.
	RequiresAuth bool
	// SuccessStatus is the HTTP code for successful execution; 0 means 200.
	SuccessStatus int
}

// Expects reports whether the endpoint declared the kind.
func (d Descriptor) Expects(k errors.Kind) bool {
	for _, expected := range d.ExpectedKinds {
		if expected == k {
			return true
		}
	}
	return false
}

func (d Descriptor) successStatus() int {
	if d.SuccessStatus == 0 {
		return http.StatusOK
	}
	return d.SuccessStatus
}

// Method is the contract every endpoint implements. The invoker is the
// only place that knows the generic lifecycle; endpoints supply the three
// hooks and never build their own error responses.
type Method interface {
	Descriptor() Descriptor
	// Validate performs read-only request checks. It may consult
	// collaborators (e.g. confirm a referenced symbol exists) but must not
	// mutate state.
	Validate(ctx context.Context, req *Request) error
	// Execute performs the mutation or query. claims is nil for
	// unauthenticated endpoints.
	Execute(ctx context.Context, req *Request, claims *auth.Claims) (*Response, error)
}
