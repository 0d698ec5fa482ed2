// Package jobs implements the queue-backed background-job pipeline:
// job-request producers, the at-least-once queue wrapper, the date-keyed
// idempotent artifact cache, and the workflow consumers that drain them.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the workflow a job request belongs to.
type Kind string

const (
	KindNewsletterSend      Kind = "NEWSLETTER_SEND"
	KindNewsSummaryGenerate Kind = "NEWS_SUMMARY_GENERATE"
)

// Request is one unit of deferred work. The delivery receipt is not part of
// the payload; the queue supplies it at dequeue time.
type Request struct {
	Kind       Kind      `json:"kind"`
	Email      string    `json:"email,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Date       string    `json:"date"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// DateStamp formats the cache-partitioning datestamp.
func DateStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NewNewsletterRequest builds a newsletter-send request for one user.
func NewNewsletterRequest(email string) *Request {
	now := time.Now()
	return &Request{
		Kind:       KindNewsletterSend,
		Email:      email,
		Date:       DateStamp(now),
		EnqueuedAt: now.UTC(),
	}
}

// NewNewsSummaryRequest builds a news-summary request for one symbol.
func NewNewsSummaryRequest(symbol string) *Request {
	now := time.Now()
	return &Request{
		Kind:       KindNewsSummaryGenerate,
		Symbol:     symbol,
		Date:       DateStamp(now),
		EnqueuedAt: now.UTC(),
	}
}

// Key returns the identifier of the unit of work: user email for
// newsletters, stock symbol for news summaries.
func (r *Request) Key() string {
	switch r.Kind {
	case KindNewsletterSend:
		return r.Email
	case KindNewsSummaryGenerate:
		return r.Symbol
	}
	return ""
}

// Validate checks the request is well-formed for its kind.
func (r *Request) Validate() error {
	if r.Date == "" {
		return fmt.Errorf("job request missing date")
	}
	switch r.Kind {
	case KindNewsletterSend:
		if r.Email == "" {
			return fmt.Errorf("newsletter request missing email")
		}
	case KindNewsSummaryGenerate:
		if r.Symbol == "" {
			return fmt.Errorf("news summary request missing symbol")
		}
	default:
		return fmt.Errorf("unknown job kind: %q", r.Kind)
	}
	return nil
}

// ParseRequest decodes a queue message body.
func ParseRequest(body string) (*Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, fmt.Errorf("failed to parse job request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
