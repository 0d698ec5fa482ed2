// Package news implements the on-demand news-summary endpoint.
package news

import (
	"context"
	"strings"
	"time"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/jobs"
)

// GetNewsSummary serves today's summary for a symbol from the artifact
// cache, or enqueues exactly one generation job on a miss. The caller
// polls: a miss is still a Success, with a message saying the summary is
// on its way.
type GetNewsSummary struct {
	cache *jobs.Cache
	queue jobs.Queue
}

func NewGetNewsSummary(cache *jobs.Cache, queue jobs.Queue) *GetNewsSummary {
	return &GetNewsSummary{cache: cache, queue: queue}
}

func (h *GetNewsSummary) Descriptor() api.Descriptor {
	return api.Descriptor{
		Name:         "GetNewsSummary",
		RequiresAuth: true,
	}
}

func (h *GetNewsSummary) Validate(_ context.Context, req *api.Request) error {
	if strings.TrimSpace(req.Query("symbol")) == "" {
		return errors.NewBadRequest("Missing required query parameter: symbol")
	}
	return nil
}

func (h *GetNewsSummary) Execute(ctx context.Context, req *api.Request, _ *auth.Claims) (*api.Response, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Query("symbol")))
	date := jobs.DateStamp(time.Now())

	content, found, err := h.cache.Lookup(ctx, symbol, date)
	if err != nil {
		return nil, err
	}
	if found {
		return api.Success("GetNewsSummary", "News summary found!", map[string]interface{}{
			"symbol":  symbol,
			"date":    date,
			"summary": string(content),
		}), nil
	}

	if _, err := h.queue.Enqueue(ctx, jobs.NewNewsSummaryRequest(symbol)); err != nil {
		return nil, err
	}

	return api.Success("GetNewsSummary", "Generating news summary...", map[string]interface{}{
		"symbol": symbol,
		"date":   date,
	}), nil
}
