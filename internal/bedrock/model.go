package bedrock

import "os"

// Bedrock Model IDs
//
// | Model Name        | Model ID                                    | Use Case                    |
// |-------------------|---------------------------------------------|-----------------------------|
// | Claude 3.5 Sonnet | anthropic.claude-3-5-sonnet-20241022-v2:0   | Best reasoning per dollar   |
// | Claude 3.5 Haiku  | anthropic.claude-3-5-haiku-20241022-v1:0    | High-throughput, lowest cost|
// | Claude 3 Opus     | anthropic.claude-3-opus-20240229-v1:0       | Hardest analysis tasks      |
const (
	// ModelClaude35Sonnet is the best reasoning-per-dollar option.
	ModelClaude35Sonnet = "anthropic.claude-3-5-sonnet-20241022-v2:0"

	// ModelClaude35Haiku is for high-throughput, lowest-cost runs.
	ModelClaude35Haiku = "anthropic.claude-3-5-haiku-20241022-v1:0"

	// ModelClaude3Opus is for the hardest analysis tasks.
	ModelClaude3Opus = "anthropic.claude-3-opus-20240229-v1:0"
)

// DefaultModelID is the model used when no override is configured.
const DefaultModelID = ModelClaude35Sonnet

// GetModelID returns the Bedrock model to use, resolved from:
// 1. BEDROCK_MODEL_ID environment variable (if set)
// 2. Default: Claude 3.5 Sonnet
//
// Deployments normally set BEDROCK_MODEL_ID from the SSM parameter at
// cold start so one parameter change rolls the whole pipeline.
func GetModelID() string {
	if env := os.Getenv("BEDROCK_MODEL_ID"); env != "" {
		return env
	}
	return DefaultModelID
}
