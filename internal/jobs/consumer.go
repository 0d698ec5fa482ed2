package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"finpulse/internal/common/logger"
	"finpulse/internal/common/metrics"
	"finpulse/internal/models"
	"finpulse/internal/storage"
)

// Outcome is the terminal status of one processed job request.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeSkipped Outcome = "SKIPPED"
	OutcomeFailure Outcome = "FAILURE"
)

// Result records what processing one message produced. Acked reports
// whether the delivery was acknowledged; a false value means the queue
// will redeliver.
type Result struct {
	Workflow Kind
	Outcome  Outcome
	Message  string
	Location string
	Acked    bool
}

// ConsumerOptions carries the collaborators a Consumer needs.
type ConsumerOptions struct {
	Queue   Queue
	Cache   *Cache
	Store   storage.ItemStore
	News    NewsProvider
	Market  MarketData
	LLM     Inference
	Mailer  EmailSender
	ModelID string
	Logger  logger.Logger
}

// Consumer drains the job-request queue and runs the workflow each
// request names. Both workflows share the same shape: check the artifact
// cache, generate on a miss, store the artifact, then acknowledge. The
// store always happens before the acknowledge so a crash in between costs
// a duplicate generation check, never a lost artifact.
type Consumer struct {
	queue   Queue
	cache   *Cache
	store   storage.ItemStore
	news    NewsProvider
	market  MarketData
	llm     Inference
	mailer  EmailSender
	modelID string
	log     logger.Logger
}

func NewConsumer(opts ConsumerOptions) *Consumer {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Consumer{
		queue:   opts.Queue,
		cache:   opts.Cache,
		store:   opts.Store,
		news:    opts.News,
		market:  opts.Market,
		llm:     opts.LLM,
		mailer:  opts.Mailer,
		modelID: opts.ModelID,
		log:     log,
	}
}

// Process handles one delivered message end to end. Transport errors
// (queue, cache backend, model invocation) return a non-nil error and
// leave the message unacknowledged; business dead-ends produce a FAILURE
// result and still acknowledge, because redelivering them can never
// succeed.
func (c *Consumer) Process(ctx context.Context, msg Message) (*Result, error) {
	start := time.Now()

	req, err := ParseRequest(msg.Body)
	if err != nil {
		// A malformed body will be malformed on every redelivery.
		c.log.WithError(err).Error("dropping unparseable job request", map[string]interface{}{
			"messageId": msg.MessageID,
		})
		if ackErr := c.queue.Acknowledge(ctx, msg.ReceiptHandle); ackErr != nil {
			return nil, ackErr
		}
		return &Result{Outcome: OutcomeFailure, Message: err.Error(), Acked: true}, nil
	}

	result, err := c.process(ctx, req, msg)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.WorkflowProcessed.WithLabelValues(string(req.Kind), "error").Inc()
		metrics.WorkflowDuration.WithLabelValues(string(req.Kind)).Observe(elapsed)
		return nil, err
	}

	metrics.WorkflowProcessed.WithLabelValues(string(req.Kind), strings.ToLower(string(result.Outcome))).Inc()
	metrics.WorkflowDuration.WithLabelValues(string(req.Kind)).Observe(elapsed)
	return result, nil
}

func (c *Consumer) process(ctx context.Context, req *Request, msg Message) (*Result, error) {
	log := c.log.WithFields(map[string]interface{}{
		"workflow":  string(req.Kind),
		"key":       req.Key(),
		"date":      req.Date,
		"messageId": msg.MessageID,
	})

	// Duplicate deliveries and repeat requests land here: the artifact
	// already exists, so the work is done.
	if _, found, err := c.cache.Lookup(ctx, req.Key(), req.Date); err != nil {
		return nil, err
	} else if found {
		log.Info("artifact already exists, skipping generation", nil)
		if err := c.queue.Acknowledge(ctx, msg.ReceiptHandle); err != nil {
			return nil, err
		}
		return &Result{Workflow: req.Kind, Outcome: OutcomeSkipped, Message: "already exists", Acked: true}, nil
	}

	var content []byte
	var genErr error
	switch req.Kind {
	case KindNewsSummaryGenerate:
		content, genErr = c.generateNewsSummary(ctx, req)
	case KindNewsletterSend:
		content, genErr = c.generateNewsletter(ctx, req)
	default:
		genErr = fmt.Errorf("unknown job kind: %q", req.Kind)
	}
	if genErr != nil {
		if isTerminal(genErr) {
			log.WithError(genErr).Warn("job cannot succeed, acknowledging", nil)
			if err := c.queue.Acknowledge(ctx, msg.ReceiptHandle); err != nil {
				return nil, err
			}
			return &Result{Workflow: req.Kind, Outcome: OutcomeFailure, Message: genErr.Error(), Acked: true}, nil
		}
		return nil, genErr
	}

	// Send before store: a crash between the two costs a duplicate email
	// on redelivery, never a stored artifact with no email behind it.
	if req.Kind == KindNewsletterSend && c.mailer != nil {
		subject := fmt.Sprintf("Your portfolio newsletter for %s", req.Date)
		if err := c.mailer.Send(ctx, req.Email, subject, string(content)); err != nil {
			return nil, err
		}
	}

	location, err := c.cache.Store(ctx, req.Key(), req.Date, content)
	if err != nil {
		return nil, err
	}

	if err := c.queue.Acknowledge(ctx, msg.ReceiptHandle); err != nil {
		return nil, err
	}

	log.Info("job processed", map[string]interface{}{"location": location})
	return &Result{Workflow: req.Kind, Outcome: OutcomeSuccess, Location: location, Acked: true}, nil
}

func (c *Consumer) generateNewsSummary(ctx context.Context, req *Request) ([]byte, error) {
	articles, err := c.news.Fetch(ctx, req.Symbol, req.Date)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, terminalError{fmt.Errorf("no articles found for %s on %s", req.Symbol, req.Date)}
		}
		return nil, fmt.Errorf("news fetch failed: %w", err)
	}
	if len(articles) == 0 {
		return nil, terminalError{fmt.Errorf("no articles found for %s on %s", req.Symbol, req.Date)}
	}

	prompt := newsSummaryPrompt(req.Symbol, articles)
	summary, err := c.llm.Invoke(ctx, c.modelID, prompt)
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}
	return []byte(summary), nil
}

func (c *Consumer) generateNewsletter(ctx context.Context, req *Request) ([]byte, error) {
	if _, err := c.store.Get(ctx, storage.TableUsers, req.Email); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, terminalError{fmt.Errorf("user %s does not exist", req.Email)}
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	rows, err := c.store.Query(ctx, storage.TableStocks, req.Email+"#")
	if err != nil {
		return nil, fmt.Errorf("holdings query failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, terminalError{fmt.Errorf("user %s has no tracked stocks", req.Email)}
	}

	holdings := make([]models.Holding, 0, len(rows))
	for _, raw := range rows {
		var h models.Holding
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("failed to decode holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	quotes := make([]models.Quote, 0, len(holdings))
	for _, h := range holdings {
		quote, err := c.market.Quote(ctx, h.Symbol)
		if err != nil {
			return nil, fmt.Errorf("quote fetch failed for %s: %w", h.Symbol, err)
		}
		quotes = append(quotes, quote)
	}

	prompt := newsletterPrompt(req.Email, holdings, quotes)
	body, err := c.llm.Invoke(ctx, c.modelID, prompt)
	if err != nil {
		return nil, fmt.Errorf("newsletter generation failed: %w", err)
	}
	return []byte(body), nil
}

// Poll drains the queue until the context is cancelled. Transport errors
// are logged and the loop backs off; the unacknowledged messages come
// back through redelivery.
func (c *Consumer) Poll(ctx context.Context, maxMessages int32, idleWait time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := c.queue.Receive(ctx, maxMessages)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).Error("receive failed, backing off", nil)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idleWait):
			}
			continue
		}

		if len(messages) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idleWait):
			}
			continue
		}

		for _, msg := range messages {
			if _, err := c.Process(ctx, msg); err != nil {
				c.log.WithError(err).Error("job processing failed, leaving for redelivery", map[string]interface{}{
					"messageId": msg.MessageID,
				})
			}
		}
	}
}

// terminalError marks a business dead-end: redelivery can never turn it
// into a success, so the consumer acknowledges and records a failure.
type terminalError struct{ err error }

func (e terminalError) Error() string { return e.err.Error() }
func (e terminalError) Unwrap() error { return e.err }

func isTerminal(err error) bool {
	var t terminalError
	return errors.As(err, &t)
}

func newsSummaryPrompt(symbol string, articles []models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize today's news for the stock %s in a short markdown briefing.\n", symbol)
	b.WriteString("Focus on what moved the stock and what investors should watch.\n\nArticles:\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "- %s (%s): %s\n", a.Title, a.Source, a.Summary)
	}
	return b.String()
}

func newsletterPrompt(email string, holdings []models.Holding, quotes []models.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a personal markdown investment newsletter for %s.\n", email)
	b.WriteString("Cover each holding with its latest quote and a one-paragraph outlook.\n\nPortfolio:\n")
	for i, h := range holdings {
		q := quotes[i]
		fmt.Fprintf(&b, "- %s: %.2f shares, last price %.2f (%.2f%%)\n", h.Symbol, h.Quantity, q.Price, q.ChangePercent)
	}
	return b.String()
}
