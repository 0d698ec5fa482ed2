// Package newsletter implements the newsletter-request endpoint.
package newsletter

import (
	"context"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	"finpulse/internal/jobs"
)

// RequestNewsletter queues a newsletter send for the calling user. The
// heavy work (quotes, generation, email) happens in the consumer; repeat
// requests for the same day collapse in the artifact cache.
type RequestNewsletter struct {
	queue jobs.Queue
}

func NewRequestNewsletter(queue jobs.Queue) *RequestNewsletter {
	return &RequestNewsletter{queue: queue}
}

func (h *RequestNewsletter) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:         "RequestNewsletter",
		RequiresAuth: true,
	}
}

func (h *RequestNewsletter) Validate(context.Context, *api.Request) error { return nil }

func (h *RequestNewsletter) Execute(ctx context.Context, _ *api.Request, claims *auth.Claims) (*api.Response, error) {
	if _, err := h.queue.Enqueue(ctx, jobs.NewNewsletterRequest(claims.Email)); err != nil {
		return nil, err
	}

	return api.Success("RequestNewsletter", "Newsletter requested! It will arrive in your inbox shortly.", nil), nil
}
