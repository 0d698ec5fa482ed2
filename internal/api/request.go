// Package api implements the uniform endpoint lifecycle: required-field
// checks, authentication, endpoint validation, execution, response
// rendering, and metrics emission, in that order for every endpoint.
package api

import (
	"encoding/json"
	"strings"

	"finpulse/internal/common/errors"
)

// Request is the transport envelope for one HTTP-triggered invocation.
type Request struct {
	Path                  string            `json:"path"`
	HTTPMethod            string            `json:"httpMethod"`
	Headers               map[string]string `json:"headers"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	Body                  string            `json:"body"`
}

// Header returns a header value, matching the name case-insensitively.
func (r *Request) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Query returns a query-string parameter value.
func (r *Request) Query(name string) string {
	return r.QueryStringParameters[name]
}

// BodyMap decodes the JSON body into a map. An empty body decodes to an
// empty map; malformed JSON is a BadRequest.
func (r *Request) BodyMap() (map[string]interface{}, error) {
	if strings.TrimSpace(r.Body) == "" {
		return map[string]interface{}{}, nil
	}

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		return nil, errors.NewBadRequest("Request body is not valid JSON")
	}
	return body, nil
}

// BodyString returns a string field from the JSON body, empty when absent
// or not a string.
func (r *Request) BodyString(field string) string {
	body, err := r.BodyMap()
	if err != nil {
		return ""
	}
	if v, ok := body[field].(string); ok {
		return v
	}
	return ""
}
