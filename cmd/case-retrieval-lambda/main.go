// Package main provides the Lambda entry point for case retrieval.
//
// Consumes the account work queue: for each account message, assumes the
// cross-account role, lists resolved cases in the trailing window, stores
// new raw cases, and enqueues them for annotation. Accounts without the role
// or the Support API entitlement are skipped, not failed.
//
// Memory: 256 MB
// Timeout: 10 minutes
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
	"github.com/fpang/case-insights/internal/queue"
	"github.com/fpang/case-insights/internal/retriever"
)

var coldStart = true

var worker *retriever.Retriever

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	worker = &retriever.Retriever{
		Broker:      lambdaboot.InitBroker(aws.Config),
		Store:       lambdaboot.InitCaseStore(aws.Config),
		Ledger:      lambdaboot.InitLedger(aws.Config),
		Annotations: lambdaboot.InitQueue(aws.Config, "CASE_ANNOTATION_QUEUE_URL"),
	}

	lambdaboot.StartupLog("case-retrieval-lambda", initStart).
		S3Bucket("raw", os.Getenv("CASE_RAW_BUCKET")).
		S3Bucket("processed", os.Getenv("CASE_PROCESSED_BUCKET")).
		DynamoTable("caseStatus", os.Getenv("CASE_STATUS_TABLE")).
		SQSQueue("caseAnnotation", os.Getenv("CASE_ANNOTATION_QUEUE_URL")).
		Config("supportRole", os.Getenv("SUPPORT_ROLE_NAME")).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event events.SQSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "case-retrieval-lambda").Msg("Cold start — first invocation")
	}

	for _, record := range event.Records {
		var msg queue.AccountMessage
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			log.Error().Err(err).Str("messageId", record.MessageId).Msg("Malformed account message")
			continue
		}
		if msg.AccountID == "" {
			log.Error().Str("messageId", record.MessageId).Msg("Account message missing accountId")
			continue
		}

		log.Info().Str("accountId", msg.AccountID).Msg("Processing account")
		newCases, err := worker.ProcessAccount(ctx, msg.AccountID)
		if err != nil {
			log.Error().Err(err).Str("accountId", msg.AccountID).Msg("Account processing failed")
			return err
		}

		metrics.New().
			Dimension("Stage", "CaseRetrieval").
			Property("accountId", msg.AccountID).
			Metric("NewCases", float64(newCases), metrics.UnitCount).
			Flush()
	}
	return nil
}
