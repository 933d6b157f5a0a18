// Package main provides the Lambda entry point for account dispatch.
//
// Triggered by the S3 ObjectCreated event on the account snapshot: reads the
// snapshot and fans one work item per account onto the account queue.
//
// Memory: 128 MB
// Timeout: 2 minutes
package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/dispatch"
	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
)

var coldStart = true

var (
	snapshots  *casestore.SnapshotStore
	dispatcher *dispatch.Dispatcher
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	snapshots = casestore.NewSnapshotStore(
		s3.NewFromConfig(aws.Config),
		lambdaboot.MustEnv("ACCOUNT_LIST_BUCKET"),
	)
	dispatcher = &dispatch.Dispatcher{
		Accounts: lambdaboot.InitQueue(aws.Config, "ACTIVE_ACCOUNTS_QUEUE_URL"),
	}

	lambdaboot.StartupLog("account-reader-lambda", initStart).
		S3Bucket("accountList", os.Getenv("ACCOUNT_LIST_BUCKET")).
		SQSQueue("activeAccounts", os.Getenv("ACTIVE_ACCOUNTS_QUEUE_URL")).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event events.S3Event) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "account-reader-lambda").Msg("Cold start — first invocation")
	}

	for _, record := range event.Records {
		if !strings.HasPrefix(record.EventName, "ObjectCreated") {
			continue
		}
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		log.Info().Str("bucket", bucket).Str("key", key).Msg("Processing snapshot event")

		snap, err := snapshots.Read(ctx, bucket, key)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("Snapshot read failed")
			return err
		}

		dispatched, err := dispatcher.DispatchSnapshot(ctx, snap)
		if err != nil {
			log.Error().Err(err).Int("dispatched", dispatched).Msg("Snapshot dispatch failed")
			return err
		}

		metrics.New().
			Dimension("Stage", "AccountDispatch").
			Metric("AccountsDispatched", float64(dispatched), metrics.UnitCount).
			Flush()
	}
	return nil
}
