package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Message is one delivered queue message. ReceiptHandle is the opaque
// acknowledgement handle valid only for this delivery.
type Message struct {
	MessageID     string
	ReceiptHandle string
	Body          string
}

// Queue is the at-least-once job-request transport. There is no ordering
// and no queue-level dedup; consumers absorb duplicates through the
// artifact cache.
type Queue interface {
	// Enqueue serializes the request as JSON and sends it; a transport
	// rejection surfaces as-is, retry policy is a deployment concern.
	Enqueue(ctx context.Context, req *Request) (string, error)
	// Receive returns up to max messages, possibly none.
	Receive(ctx context.Context, max int32) ([]Message, error)
	// Acknowledge deletes the message so it is not redelivered. It is
	// idempotent: acknowledging an expired or already-deleted receipt is
	// not an error.
	Acknowledge(ctx context.Context, receiptHandle string) error
}

// sqsAPI is the slice of the SQS client the queue needs; the wrapper in
// internal/common/aws satisfies it.
type sqsAPI interface {
	SendMessage(ctx context.Context, input *sqs.SendMessageInput) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue is the managed-queue implementation.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
}

func NewSQSQueue(client sqsAPI, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL}
}

func (q *SQSQueue) Enqueue(ctx context.Context, req *Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to serialize job request: %w", err)
	}

	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job request: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int32) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			MessageID:     aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
		})
	}
	return messages, nil
}

func (q *SQSQueue) Acknowledge(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		// Expired or already-consumed receipts surface as
		// ReceiptHandleIsInvalid; at-least-once delivery makes that
		// outcome routine, not an error.
		if strings.Contains(err.Error(), "ReceiptHandleIsInvalid") ||
			strings.Contains(err.Error(), "InvalidParameterValue") {
			return nil
		}
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	return nil
}
