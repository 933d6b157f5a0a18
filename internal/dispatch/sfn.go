package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/analysis"
	"github.com/fpang/case-insights/internal/retry"
)

// Starter launches the analysis workflow for one annotated case.
type Starter interface {
	StartAnalysis(ctx context.Context, accountID, displayID string) (string, error)
}

// SFNStarter implements Starter against Step Functions. Each case gets its
// own execution; the state machine drives the four analysis stages.
type SFNStarter struct {
	client          *sfn.Client
	stateMachineARN string
	policy          retry.Policy
}

var _ Starter = (*SFNStarter)(nil)

// NewSFNStarter builds a Starter for the given state machine.
func NewSFNStarter(cfg aws.Config, stateMachineARN string) *SFNStarter {
	return &SFNStarter{
		client:          sfn.NewFromConfig(cfg),
		stateMachineARN: stateMachineARN,
		policy:          retry.Default,
	}
}

// StartAnalysis starts an execution whose input is the summary-stage task.
// Returns the execution ARN.
func (s *SFNStarter) StartAnalysis(ctx context.Context, accountID, displayID string) (string, error) {
	input, err := json.Marshal(analysis.Task{
		Type:      analysis.TaskCaseSummary,
		AccountID: accountID,
		CaseID:    displayID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution input: %w", err)
	}

	// Execution names must be unique per state machine for 90 days.
	name := fmt.Sprintf("case-%s-%s", displayID, uuid.NewString()[:8])

	var out *sfn.StartExecutionOutput
	err = s.policy.Do(ctx, "sfn:StartExecution", func(ctx context.Context) error {
		var err error
		out, err = s.client.StartExecution(ctx, &sfn.StartExecutionInput{
			StateMachineArn: aws.String(s.stateMachineARN),
			Name:            aws.String(name),
			Input:           aws.String(string(input)),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to start analysis for case %s: %w", displayID, err)
	}

	arn := aws.ToString(out.ExecutionArn)
	log.Info().
		Str("accountId", accountID).
		Str("displayId", displayID).
		Str("executionArn", arn).
		Msg("Analysis execution started")
	return arn, nil
}
