// Package main provides the Lambda entry point for analysis orchestration
// start.
//
// Consumes the analysis queue: for each annotated case, starts one state
// machine execution that drives the four analysis stages.
//
// Memory: 128 MB
// Timeout: 2 minutes
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/dispatch"
	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
	"github.com/fpang/case-insights/internal/queue"
)

var coldStart = true

var starter dispatch.Starter

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	starter = dispatch.NewSFNStarter(aws.Config, lambdaboot.MustEnv("CASE_ANALYSIS_STATE_MACHINE_ARN"))

	lambdaboot.StartupLog("analysis-start-lambda", initStart).
		StateMachine("caseAnalysis", os.Getenv("CASE_ANALYSIS_STATE_MACHINE_ARN")).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event events.SQSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "analysis-start-lambda").Msg("Cold start — first invocation")
	}

	started := 0
	for _, record := range event.Records {
		var msg queue.AnalysisMessage
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			log.Error().Err(err).Str("messageId", record.MessageId).Msg("Malformed analysis message")
			continue
		}
		if msg.AccountID == "" || msg.DisplayID == "" {
			log.Error().Str("messageId", record.MessageId).Msg("Analysis message missing identifiers")
			continue
		}

		if _, err := starter.StartAnalysis(ctx, msg.AccountID, msg.DisplayID); err != nil {
			log.Error().Err(err).
				Str("accountId", msg.AccountID).
				Str("displayId", msg.DisplayID).
				Msg("Failed to start analysis execution")
			return err
		}
		started++
	}

	metrics.New().
		Dimension("Stage", "AnalysisStart").
		Metric("ExecutionsStarted", float64(started), metrics.UnitCount).
		Flush()
	return nil
}
