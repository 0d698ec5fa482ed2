package news

import (
	"context"
	"testing"
	"time"

	"finpulse/internal/api"
	"finpulse/internal/common/errors"
	"finpulse/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, req *jobs.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockQueue) Receive(ctx context.Context, max int32) ([]jobs.Message, error) {
	args := m.Called(ctx, max)
	return nil, args.Error(1)
}

func (m *MockQueue) Acknowledge(ctx context.Context, receiptHandle string) error {
	args := m.Called(ctx, receiptHandle)
	return args.Error(0)
}

func newsRequest(symbol string) *api.Request {
	req := &api.Request{Path: "/news", HTTPMethod: "GET", QueryStringParameters: map[string]string{}}
	if symbol != "" {
		req.QueryStringParameters["symbol"] = symbol
	}
	return req
}

func TestGetNewsSummary_MissingSymbolIsBadRequest(t *testing.T) {
	h := NewGetNewsSummary(jobs.NewCache(jobs.NewMemoryObjectStore(), "b", "p"), &MockQueue{})

	err := h.Validate(context.Background(), newsRequest(""))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBadRequest))
}

func TestGetNewsSummary_CacheHitServesArtifact(t *testing.T) {
	cache := jobs.NewCache(jobs.NewMemoryObjectStore(), "b", "p")
	queue := &MockQueue{}
	ctx := context.Background()

	_, err := cache.Store(ctx, "AAPL", jobs.DateStamp(time.Now()), []byte("## today's summary"))
	require.NoError(t, err)

	h := NewGetNewsSummary(cache, queue)
	resp, err := h.Execute(ctx, newsRequest("aapl"), nil)
	require.NoError(t, err)

	assert.Equal(t, api.StatusSuccess, resp.Status)
	assert.Equal(t, "## today's summary", resp.Data["summary"])
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestGetNewsSummary_CacheMissEnqueuesExactlyOne(t *testing.T) {
	cache := jobs.NewCache(jobs.NewMemoryObjectStore(), "b", "p")
	queue := &MockQueue{}
	queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(req *jobs.Request) bool {
		return req.Kind == jobs.KindNewsSummaryGenerate && req.Symbol == "AAPL"
	})).Return("mid-1", nil)

	h := NewGetNewsSummary(cache, queue)
	resp, err := h.Execute(context.Background(), newsRequest("AAPL"), nil)
	require.NoError(t, err)

	// A miss is still a Success; the caller polls for the artifact.
	assert.Equal(t, api.StatusSuccess, resp.Status)
	assert.Equal(t, "Generating news summary...", resp.Message)
	assert.NotContains(t, resp.Data, "summary")
	queue.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestGetNewsSummary_EnqueueFailurePropagates(t *testing.T) {
	cache := jobs.NewCache(jobs.NewMemoryObjectStore(), "b", "p")
	queue := &MockQueue{}
	queue.On("Enqueue", mock.Anything, mock.Anything).Return("", assert.AnError)

	h := NewGetNewsSummary(cache, queue)
	_, err := h.Execute(context.Background(), newsRequest("AAPL"), nil)
	require.Error(t, err)
}
