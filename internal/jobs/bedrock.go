package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type bedrockAPI interface {
	InvokeModel(ctx context.Context, input *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockInference implements Inference over the managed model runtime
// using the Anthropic text-completion body shape.
type BedrockInference struct {
	client    bedrockAPI
	maxTokens int
}

func NewBedrockInference(client bedrockAPI) *BedrockInference {
	return &BedrockInference{client: client, maxTokens: 2048}
}

type anthropicRequest struct {
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
}

type anthropicResponse struct {
	Completion string `json:"completion"`
}

func (b *BedrockInference) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Prompt:            fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
		MaxTokensToSample: b.maxTokens,
		Temperature:       0.5,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build model request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("model invocation failed: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse model response: %w", err)
	}
	return resp.Completion, nil
}
