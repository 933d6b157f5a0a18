// Package main provides the Lambda entry point for the AI analysis stages.
//
// One function serves all four state-machine tasks, dispatched by task type:
//   - case-summary: summarize the communication thread
//   - rca-analysis: categorize the root cause from the summary
//   - lifecycle-analysis: categorize the prevention opportunity
//   - update-metadata: merge the three outputs into the ProcessedCase
//
// Each invocation returns the enriched task for the next state. Any stage
// error fails the execution; the state machine's retry restarts the case
// from the summary stage.
//
// Memory: 512 MB
// Timeout: 5 minutes
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/analysis"
	"github.com/fpang/case-insights/internal/bedrock"
	"github.com/fpang/case-insights/internal/events"
	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
)

var coldStart = true

var (
	runner  *analysis.Runner
	emitter events.Emitter
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	runner = &analysis.Runner{
		Store:   lambdaboot.InitCaseStore(aws.Config),
		Ledger:  lambdaboot.InitLedger(aws.Config),
		Invoker: lambdaboot.InitBedrock(aws.Config, aws.SSM),
	}
	if bus := os.Getenv("PIPELINE_EVENT_BUS"); bus != "" {
		emitter = events.NewBusEmitter(aws.Config, bus)
	} else {
		emitter = events.NopEmitter{}
	}

	lambdaboot.StartupLog("analysis-lambda", initStart).
		S3Bucket("raw", os.Getenv("CASE_RAW_BUCKET")).
		S3Bucket("processed", os.Getenv("CASE_PROCESSED_BUCKET")).
		DynamoTable("caseStatus", os.Getenv("CASE_STATUS_TABLE")).
		SSMParam("modelId", logging.EnvOrDefault("SSM_MODEL_ID_PARAM", "/case-insights/prod/bedrock-model-id")).
		Config("model", bedrock.GetModelID()).
		Feature("pipelineEvents", os.Getenv("PIPELINE_EVENT_BUS") != "").
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, task analysis.Task) (analysis.Task, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "analysis-lambda").Msg("Cold start — first invocation")
	}

	stageStart := time.Now()
	out, err := runner.Run(ctx, task)

	rec := metrics.New().
		Dimension("Stage", "Analysis").
		Property("taskType", task.Type).
		Property("accountId", task.AccountID).
		Property("caseId", task.CaseID).
		Metric("StageDuration", float64(time.Since(stageStart).Milliseconds()), metrics.UnitMilliseconds)
	if err != nil {
		rec.Count("StageFailures")
	}
	rec.Flush()

	if err != nil {
		return out, err
	}

	if task.Type == analysis.TaskUpdateMetadata {
		event := events.CaseProcessed{
			AccountID:   out.AccountID,
			DisplayID:   out.CaseID,
			RCACategory: out.RCACategory,
			ProcessedAt: time.Now().UTC(),
		}
		// Completion already committed; a failed notification must not fail
		// the execution.
		if err := emitter.EmitCaseProcessed(ctx, event); err != nil {
			log.Warn().Err(err).Str("caseId", out.CaseID).Msg("CaseProcessed event not emitted")
		}
	}

	return out, nil
}
