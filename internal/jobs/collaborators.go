package jobs

import (
	"context"
	"errors"

	"finpulse/internal/models"
)

// ErrNoData is returned by providers when there is nothing to report for
// an entity. Consumers treat it as a terminal business failure, never a
// reason to redeliver.
var ErrNoData = errors.New("no data available")

// NewsProvider fetches articles for a symbol on a given date.
type NewsProvider interface {
	Fetch(ctx context.Context, symbol, date string) ([]models.Article, error)
}

// MarketData returns a current quote for a symbol.
type MarketData interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// Inference invokes the managed model and returns its raw text response.
type Inference interface {
	Invoke(ctx context.Context, modelID, prompt string) (string, error)
}

// EmailSender delivers one HTML email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
