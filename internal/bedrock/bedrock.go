// Package bedrock wraps the Bedrock Runtime InvokeModel API behind a small
// text-in, text-out interface so the analysis stages never touch the wire
// format directly.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/retry"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	maxOutputTokens  = 4096
)

// Invoker sends one prompt to a foundation model and returns its text reply.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Client implements Invoker against the Bedrock Runtime.
type Client struct {
	runtime *bedrockruntime.Client
	modelID string
	policy  retry.Policy
}

var _ Invoker = (*Client)(nil)

// NewClient builds an Invoker for the given model. Transient failures get a
// longer retry leash than the default policy because Bedrock on-demand quotas
// are shared across the whole pipeline.
func NewClient(cfg aws.Config, modelID string) *Client {
	return &Client{
		runtime: bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		policy: retry.Policy{
			MaxAttempts: 8,
			BaseDelay:   2 * time.Second,
			Jitter:      true,
		},
	}
}

// anthropic-messages request/response shapes. Only the fields the pipeline
// reads are declared.
type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

// Invoke sends the prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxOutputTokens,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal model request: %w", err)
	}

	log.Debug().
		Str("modelId", c.modelID).
		Int("promptLength", len(prompt)).
		Msg("Invoking model")

	var out *bedrockruntime.InvokeModelOutput
	err = c.policy.Do(ctx, "bedrock:InvokeModel", func(ctx context.Context) error {
		var err error
		out, err = c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        body,
		})
		if err != nil && isPermanent(err) {
			return retry.Abort(err)
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke model %s: %w", c.modelID, err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("model %s returned no text content", c.modelID)
	}

	log.Debug().Int("responseLength", len(text)).Msg("Model response received")
	return text, nil
}

// isPermanent reports whether err can never succeed on retry. Everything
// else, including throttling, model timeouts, internal server errors, and
// plain network failures, is waited out by the policy.
func isPermanent(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ValidationException", "AccessDeniedException", "ResourceNotFoundException":
		return true
	}
	return false
}
