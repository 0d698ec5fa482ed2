package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"finpulse/internal/common/logger"
	"finpulse/internal/models"
	"finpulse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Collaborators
// ==========================

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, req *Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockQueue) Receive(ctx context.Context, max int32) ([]Message, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockQueue) Acknowledge(ctx context.Context, receiptHandle string) error {
	args := m.Called(ctx, receiptHandle)
	return args.Error(0)
}

type MockNewsProvider struct {
	mock.Mock
}

func (m *MockNewsProvider) Fetch(ctx context.Context, symbol, date string) ([]models.Article, error) {
	args := m.Called(ctx, symbol, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Article), args.Error(1)
}

type MockMarketData struct {
	mock.Mock
}

func (m *MockMarketData) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(models.Quote), args.Error(1)
}

type MockInference struct {
	mock.Mock
}

func (m *MockInference) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	args := m.Called(ctx, modelID, prompt)
	return args.String(0), args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// ==========================
// Test Helpers
// ==========================

type consumerFixture struct {
	consumer *Consumer
	queue    *MockQueue
	cache    *Cache
	store    *storage.MemoryStore
	news     *MockNewsProvider
	market   *MockMarketData
	llm      *MockInference
	mailer   *MockEmailSender
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()

	f := &consumerFixture{
		queue:  &MockQueue{},
		cache:  NewCache(NewMemoryObjectStore(), "test-bucket", "artifacts/news"),
		store:  storage.NewMemoryStore(),
		news:   &MockNewsProvider{},
		market: &MockMarketData{},
		llm:    &MockInference{},
		mailer: &MockEmailSender{},
	}
	f.consumer = NewConsumer(ConsumerOptions{
		Queue:   f.queue,
		Cache:   f.cache,
		Store:   f.store,
		News:    f.news,
		Market:  f.market,
		LLM:     f.llm,
		Mailer:  f.mailer,
		ModelID: "anthropic.claude-v2",
		Logger:  logger.NewTestLogger(t),
	})
	return f
}

func newsSummaryMessage(t *testing.T, symbol string) Message {
	t.Helper()
	body, err := json.Marshal(NewNewsSummaryRequest(symbol))
	require.NoError(t, err)
	return Message{MessageID: "m1", ReceiptHandle: "rh-1", Body: string(body)}
}

func newsletterMessage(t *testing.T, email string) Message {
	t.Helper()
	body, err := json.Marshal(NewNewsletterRequest(email))
	require.NoError(t, err)
	return Message{MessageID: "m2", ReceiptHandle: "rh-2", Body: string(body)}
}

func seedUserWithHolding(t *testing.T, store *storage.MemoryStore, email, symbol string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, storage.TableUsers, email, models.User{
		Email: email, Username: "tester", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Put(ctx, storage.TableStocks, storage.HoldingKey(email, symbol), models.Holding{
		Symbol: symbol, Quantity: 3, AddedAt: time.Now().UTC(),
	}))
}

// ==========================
// News Summary Workflow
// ==========================

func TestConsumer_NewsSummaryGeneratesAndStores(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	msg := newsSummaryMessage(t, "AAPL")

	f.news.On("Fetch", mock.Anything, "AAPL", mock.Anything).Return([]models.Article{
		{Title: "Apple ships something", Source: "wire", Summary: "details"},
	}, nil)
	f.llm.On("Invoke", mock.Anything, "anthropic.claude-v2", mock.Anything).
		Return("## AAPL summary", nil)
	f.queue.On("Acknowledge", mock.Anything, "rh-1").Return(nil)

	result, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.True(t, result.Acked)

	// The artifact is readable immediately after the ack.
	content, found, err := f.cache.Lookup(ctx, "AAPL", DateStamp(time.Now()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "## AAPL summary", string(content))
	f.queue.AssertNumberOfCalls(t, "Acknowledge", 1)
}

func TestConsumer_DuplicateDeliverySkipsGeneration(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	msg := newsSummaryMessage(t, "AAPL")

	f.news.On("Fetch", mock.Anything, "AAPL", mock.Anything).Return([]models.Article{
		{Title: "Apple ships something"},
	}, nil).Once()
	f.llm.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return("summary", nil).Once()
	f.queue.On("Acknowledge", mock.Anything, "rh-1").Return(nil)

	_, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)

	// Redelivery of the same work: no second fetch, no second inference,
	// but the duplicate still gets acknowledged.
	result, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.True(t, result.Acked)

	f.news.AssertNumberOfCalls(t, "Fetch", 1)
	f.llm.AssertNumberOfCalls(t, "Invoke", 1)
	f.queue.AssertNumberOfCalls(t, "Acknowledge", 2)
}

func TestConsumer_NoArticlesIsTerminalAndAcked(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	msg := newsSummaryMessage(t, "OBSCURE")

	f.news.On("Fetch", mock.Anything, "OBSCURE", mock.Anything).Return(nil, ErrNoData)
	f.queue.On("Acknowledge", mock.Anything, "rh-1").Return(nil)

	result, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.True(t, result.Acked, "a job that can never succeed must not poison the queue")

	f.llm.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsumer_TransportErrorLeavesMessageUnacked(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	msg := newsSummaryMessage(t, "AAPL")

	f.news.On("Fetch", mock.Anything, "AAPL", mock.Anything).
		Return(nil, fmt.Errorf("upstream timeout"))

	_, err := f.consumer.Process(ctx, msg)
	require.Error(t, err)

	f.queue.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
}

func TestConsumer_UnparseableBodyIsDropped(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()

	f.queue.On("Acknowledge", mock.Anything, "rh-bad").Return(nil)

	result, err := f.consumer.Process(ctx, Message{MessageID: "bad", ReceiptHandle: "rh-bad", Body: "{garbage"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.True(t, result.Acked)
}

// ==========================
// Newsletter Workflow
// ==========================

func TestConsumer_NewsletterGeneratesSendsAndStores(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	seedUserWithHolding(t, f.store, "reader@example.com", "AAPL")
	msg := newsletterMessage(t, "reader@example.com")

	f.market.On("Quote", mock.Anything, "AAPL").
		Return(models.Quote{Symbol: "AAPL", Price: 187.2, ChangePercent: 1.1}, nil)
	f.llm.On("Invoke", mock.Anything, "anthropic.claude-v2", mock.Anything).
		Return("# Your newsletter", nil)
	f.mailer.On("Send", mock.Anything, "reader@example.com", mock.Anything, "# Your newsletter").Return(nil)
	f.queue.On("Acknowledge", mock.Anything, "rh-2").Return(nil)

	result, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)

	f.mailer.AssertExpectations(t)
	f.market.AssertExpectations(t)
}

func TestConsumer_NewsletterForUnknownUserIsTerminal(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	msg := newsletterMessage(t, "ghost@example.com")

	f.queue.On("Acknowledge", mock.Anything, "rh-2").Return(nil)

	result, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.True(t, result.Acked)

	f.llm.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConsumer_NewsletterWithNoHoldingsIsTerminal(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, storage.TableUsers, "empty@example.com", models.User{
		Email: "empty@example.com",
	}))
	msg := newsletterMessage(t, "empty@example.com")

	f.queue.On("Acknowledge", mock.Anything, "rh-2").Return(nil)

	result, err := f.consumer.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.True(t, result.Acked)
}

func TestConsumer_EmailFailurePropagatesForRedelivery(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	seedUserWithHolding(t, f.store, "reader@example.com", "AAPL")
	msg := newsletterMessage(t, "reader@example.com")

	f.market.On("Quote", mock.Anything, "AAPL").Return(models.Quote{Symbol: "AAPL"}, nil)
	f.llm.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return("body", nil)
	f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("ses throttled"))

	_, err := f.consumer.Process(ctx, msg)
	require.Error(t, err)

	// Nothing stored and nothing acked: redelivery retries the whole job.
	_, found, lookupErr := f.cache.Lookup(ctx, "reader@example.com", DateStamp(time.Now()))
	require.NoError(t, lookupErr)
	assert.False(t, found)
	f.queue.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
}
