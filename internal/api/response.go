package api

import (
	"encoding/json"
	"net/http"
)

// Status is the application-level outcome carried in every response body.
// Client-correctable failures keep a 2xx HTTP code and signal trouble here
// instead, so HTTP-status monitors only fire on genuine server faults.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// Response is the uniform body every endpoint returns.
type Response struct {
	API     string                 `json:"API"`
	Status  Status                 `json:"Status"`
	Message string                 `json:"Message"`
	Data    map[string]interface{} `json:"Data,omitempty"`
}

// Envelope is the rendered transport response. Status carries the
// application-level outcome for observers; expected failures keep a 2xx
// StatusCode, so the HTTP code alone cannot distinguish them.
type Envelope struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Status     Status            `json:"-"`
}

// Success builds a success response for the named API.
func Success(apiName, message string, data map[string]interface{}) *Response {
	return &Response{
		API:     apiName,
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// Failure builds a failure response for the named API.
func Failure(apiName, message string) *Response {
	return &Response{
		API:     apiName,
		Status:  StatusFailure,
		Message: message,
	}
}

// Render serializes the response into the transport envelope. It cannot
// fail: a response that will not marshal is replaced by a plain 500 body,
// so callers can always JSON-parse what they receive.
func (r *Response) Render(statusCode int) *Envelope {
	status := r.Status
	body, err := json.Marshal(r)
	if err != nil {
		body = []byte(`{"API":"` + r.API + `","Status":"Failure","Message":"Internal server error"}`)
		statusCode = http.StatusInternalServerError
		status = StatusFailure
	}

	return &Envelope{
		StatusCode: statusCode,
		Status:     status,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type,Authorization",
		},
		Body: string(body),
	}
}
