package api

import (
	"context"
	"fmt"
	"time"

	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/common/logger"
	"finpulse/internal/common/metrics"
)

// Invoker drives every endpoint through the same lifecycle:
// required fields/headers → authentication → Validate → Execute →
// error conversion → metrics. Metrics are emitted in a defer so no path,
// including panics, skips them.
type Invoker struct {
	tokens   *auth.TokenCodec
	sessions *auth.SessionStore
	sink     metrics.Sink
	logger   logger.Logger
}

type InvokerOptions struct {
	Tokens   *auth.TokenCodec
	Sessions *auth.SessionStore // optional; enables revocation checks
	Sink     metrics.Sink
	Logger   logger.Logger
}

func NewInvoker(opts InvokerOptions) *Invoker {
	sink := opts.Sink
	if sink == nil {
		sink = metrics.PromSink{}
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Invoker{
		tokens:   opts.Tokens,
		sessions: opts.Sessions,
		sink:     sink,
		logger:   log,
	}
}

// Invoke runs one API invocation end to end. It never panics and never
// returns a nil envelope.
func (iv *Invoker) Invoke(ctx context.Context, m Method, req *Request) *Envelope {
	d := m.Descriptor()
	start := time.Now()

	var resp *Response
	var status int

	defer func() {
		iv.sink.IncTotal(d.Name)
		if resp != nil && resp.Status == StatusSuccess {
			iv.sink.IncSuccess(d.Name)
		} else {
			iv.sink.IncFailure(d.Name)
		}
		iv.sink.ObserveLatency(d.Name, float64(time.Since(start).Milliseconds()))
	}()

	resp, status = iv.run(ctx, m, d, req)
	return resp.Render(status)
}

func (iv *Invoker) run(ctx context.Context, m Method, d Descriptor, req *Request) (resp *Response, status int) {
	defer func() {
		if r := recover(); r != nil {
			iv.logger.Error("Panic during API invocation", map[string]interface{}{
				"api":   d.Name,
				"panic": fmt.Sprintf("%v", r),
			})
			resp, status = iv.convert(d, errors.NewInternal(fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := iv.checkRequired(d, req); err != nil {
		return iv.convert(d, err)
	}

	var claims *auth.Claims
	if d.RequiresAuth {
		var err error
		claims, err = iv.authenticate(ctx, req)
		if err != nil {
			return iv.convert(d, err)
		}
	}

	if err := m.Validate(ctx, req); err != nil {
		return iv.convert(d, err)
	}

	r, err := m.Execute(ctx, req, claims)
	if err != nil {
		return iv.convert(d, err)
	}

	r.API = d.Name
	return r, d.successStatus()
}

// checkRequired verifies descriptor-level body fields and headers before
// any business logic or collaborator is touched.
func (iv *Invoker) checkRequired(d Descriptor, req *Request) error {
	for _, header := range d.RequiredHeaders {
		if req.Header(header) == "" {
			return errors.NewBadRequest(fmt.Sprintf("Missing required header: %s", header))
		}
	}

	if len(d.RequiredBodyFields) == 0 {
		return nil
	}

	body, err := req.BodyMap()
	if err != nil {
		return err
	}

	for _, field := range d.RequiredBodyFields {
		if _, ok := body[field]; !ok {
			return errors.NewBadRequest(fmt.Sprintf("Missing required field: %s", field))
		}
	}

	return nil
}

func (iv *Invoker) authenticate(ctx context.Context, req *Request) (*auth.Claims, error) {
	token, err := auth.ParseBearer(req.Headers)
	if err != nil {
		return nil, err
	}

	claims, err := iv.tokens.Decode(token)
	if err != nil {
		return nil, err
	}

	if iv.sessions != nil {
		if err := iv.sessions.Verify(ctx, claims); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

// convert maps an error to the wire response exactly once. Expected kinds
// keep the endpoint's declared status and the error's own message;
// everything else renders as a generic 500, with full detail logged
// server-side only.
func (iv *Invoker) convert(d Descriptor, err error) (*Response, int) {
	apiErr := errors.Normalize(err)

	// BadRequest and NotAuthenticated are raised by the lifecycle itself,
	// before business logic; they are expected for every endpoint.
	expected := d.Expects(apiErr.Kind) ||
		apiErr.Kind == errors.KindBadRequest ||
		apiErr.Kind == errors.KindNotAuthenticated

	if apiErr.Kind != errors.KindInternal && expected {
		iv.logger.Info("API invocation failed", map[string]interface{}{
			"api":     d.Name,
			"kind":    string(apiErr.Kind),
			"message": apiErr.Message,
		})
		return Failure(d.Name, apiErr.Message), apiErr.HTTPStatus
	}

	iv.logger.Error("Unexpected API failure", map[string]interface{}{
		"api":     d.Name,
		"kind":    string(apiErr.Kind),
		"message": apiErr.Message,
		"details": apiErr.Details,
	})
	return Failure(d.Name, "Internal server error"), 500
}
