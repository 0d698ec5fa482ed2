package jobs

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSQSAPI struct {
	mock.Mock
}

func (m *MockSQSAPI) SendMessage(ctx context.Context, input *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.SendMessageOutput), args.Error(1)
}

func (m *MockSQSAPI) ReceiveMessage(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSAPI) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

func TestSQSQueue_EnqueueSerializesRequest(t *testing.T) {
	api := &MockSQSAPI{}
	queue := NewSQSQueue(api, "https://sqs.example/q")

	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		return aws.ToString(in.QueueUrl) == "https://sqs.example/q" &&
			assert.Contains(t, aws.ToString(in.MessageBody), `"NEWS_SUMMARY_GENERATE"`)
	})).Return(&sqs.SendMessageOutput{MessageId: aws.String("mid-1")}, nil)

	id, err := queue.Enqueue(context.Background(), NewNewsSummaryRequest("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, "mid-1", id)
}

func TestSQSQueue_EnqueueRejectsInvalidRequest(t *testing.T) {
	api := &MockSQSAPI{}
	queue := NewSQSQueue(api, "https://sqs.example/q")

	_, err := queue.Enqueue(context.Background(), &Request{Kind: KindNewsSummaryGenerate, Date: "2026-08-30"})
	require.Error(t, err)
	api.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestSQSQueue_AcknowledgeIsIdempotent(t *testing.T) {
	tests := []struct {
		name      string
		deleteErr error
		wantErr   bool
	}{
		{name: "clean delete", deleteErr: nil, wantErr: false},
		{name: "expired receipt", deleteErr: fmt.Errorf("api error ReceiptHandleIsInvalid: handle expired"), wantErr: false},
		{name: "already deleted", deleteErr: fmt.Errorf("InvalidParameterValue: unknown receipt"), wantErr: false},
		{name: "genuine transport failure", deleteErr: fmt.Errorf("connection reset"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &MockSQSAPI{}
			queue := NewSQSQueue(api, "https://sqs.example/q")

			if tt.deleteErr != nil {
				api.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil, tt.deleteErr)
			} else {
				api.On("DeleteMessage", mock.Anything, mock.Anything).Return(&sqs.DeleteMessageOutput{}, nil)
			}

			err := queue.Acknowledge(context.Background(), "rh-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
