package api

import (
	"io"
	"net/http"

	"finpulse/internal/common/observability"
)

// HTTPHandler adapts the router + invoker to net/http. The transport
// envelope is rebuilt from the incoming request, and the rendered envelope
// is written back verbatim, so the wire contract is identical whether the
// code runs behind a gateway or its own listener.
func HTTPHandler(router *Router, invoker *Invoker, obs *observability.Observability) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := fromHTTPRequest(r)

		method, err := router.Resolve(req.Path, req.HTTPMethod)
		if err != nil {
			// Unmatched routes are a server-side fault (the gateway should
			// have filtered them), but the body stays a well-formed envelope.
			writeEnvelope(w, Failure("Router", "Internal server error").Render(http.StatusInternalServerError))
			return
		}

		env := invoker.Invoke(r.Context(), method, req)
		if obs != nil {
			obs.RecordAPIRequest(r.Context(), method.Descriptor().Name, outcomeLabel(env))
		}
		writeEnvelope(w, env)
	})
}

func fromHTTPRequest(r *http.Request) *Request {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	query := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	body := ""
	if r.Body != nil {
		if data, err := io.ReadAll(r.Body); err == nil {
			body = string(data)
		}
	}

	return &Request{
		Path:                  r.URL.Path,
		HTTPMethod:            r.Method,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  body,
	}
}

func writeEnvelope(w http.ResponseWriter, env *Envelope) {
	for name, value := range env.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(env.StatusCode)
	_, _ = io.WriteString(w, env.Body)
}

// outcomeLabel maps an envelope to the counter label. It reads the
// application status, not the HTTP code: expected failures ship with a 2xx
// code and must still count as failures.
func outcomeLabel(env *Envelope) string {
	if env.Status == StatusSuccess {
		return "success"
	}
	return "failure"
}
