package newsletter

import (
	"context"
	"testing"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
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

func TestRequestNewsletter_EnqueuesForCallingUser(t *testing.T) {
	queue := &MockQueue{}
	queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(req *jobs.Request) bool {
		return req.Kind == jobs.KindNewsletterSend && req.Email == "reader@example.com"
	})).Return("mid-1", nil)

	h := NewRequestNewsletter(queue)
	resp, err := h.Execute(context.Background(), &api.Request{}, &auth.Claims{
		UserID: "reader@example.com", Email: "reader@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, api.StatusSuccess, resp.Status)
	queue.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestRequestNewsletter_EnqueueFailurePropagates(t *testing.T) {
	queue := &MockQueue{}
	queue.On("Enqueue", mock.Anything, mock.Anything).Return("", assert.AnError)

	h := NewRequestNewsletter(queue)
	_, err := h.Execute(context.Background(), &api.Request{}, &auth.Claims{Email: "reader@example.com"})
	require.Error(t, err)
}
