// Package main provides the Lambda entry point for case annotation.
//
// Consumes the annotation queue: for each case message, fetches the full
// communication thread through the cross-account role, stores it beside the
// raw case, and enqueues the case for analysis start.
//
// Memory: 256 MB
// Timeout: 5 minutes
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/annotator"
	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
	"github.com/fpang/case-insights/internal/queue"
)

var coldStart = true

var worker *annotator.Annotator

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	worker = &annotator.Annotator{
		Broker:   lambdaboot.InitBroker(aws.Config),
		Store:    lambdaboot.InitCaseStore(aws.Config),
		Ledger:   lambdaboot.InitLedger(aws.Config),
		Analysis: lambdaboot.InitQueue(aws.Config, "CASE_SUMMARY_QUEUE_URL"),
	}

	lambdaboot.StartupLog("case-annotation-lambda", initStart).
		S3Bucket("raw", os.Getenv("CASE_RAW_BUCKET")).
		DynamoTable("caseStatus", os.Getenv("CASE_STATUS_TABLE")).
		SQSQueue("caseSummary", os.Getenv("CASE_SUMMARY_QUEUE_URL")).
		Config("supportRole", os.Getenv("SUPPORT_ROLE_NAME")).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event events.SQSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "case-annotation-lambda").Msg("Cold start — first invocation")
	}

	annotated := 0
	for _, record := range event.Records {
		var msg queue.CaseMessage
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			log.Error().Err(err).Str("messageId", record.MessageId).Msg("Malformed case message")
			continue
		}

		if err := worker.ProcessCase(ctx, msg); err != nil {
			log.Error().Err(err).
				Str("accountId", msg.AccountID).
				Str("displayId", msg.DisplayID).
				Msg("Case annotation failed")
			return err
		}
		annotated++
	}

	metrics.New().
		Dimension("Stage", "CaseAnnotation").
		Metric("CasesAnnotated", float64(annotated), metrics.UnitCount).
		Flush()
	return nil
}
