// Package main provides the Lambda entry point for account enumeration.
//
// Runs on a daily schedule: lists the organization's active accounts and
// fully replaces the account snapshot object in S3. The snapshot write fires
// an S3 event that triggers the account reader.
//
// Memory: 128 MB
// Timeout: 2 minutes
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
	"github.com/fpang/case-insights/internal/orgclient"
)

var coldStart = true

var (
	accounts  orgclient.AccountLister
	snapshots *casestore.SnapshotStore
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	accounts = orgclient.New(aws.Config)
	snapshots = casestore.NewSnapshotStore(
		s3.NewFromConfig(aws.Config),
		lambdaboot.MustEnv("ACCOUNT_LIST_BUCKET"),
	)

	lambdaboot.StartupLog("account-lookup-lambda", initStart).
		S3Bucket("accountList", os.Getenv("ACCOUNT_LIST_BUCKET")).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "account-lookup-lambda").Msg("Cold start — first invocation")
	}

	active, err := accounts.ListActiveAccounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Account enumeration failed")
		return err
	}

	snap := &casestore.AccountSnapshot{
		Accounts:  active,
		Timestamp: time.Now().UTC(),
		Count:     len(active),
	}
	if err := snapshots.Write(ctx, snap); err != nil {
		log.Error().Err(err).Msg("Snapshot write failed")
		return err
	}

	metrics.New().
		Dimension("Stage", "AccountLookup").
		Metric("ActiveAccounts", float64(len(active)), metrics.UnitCount).
		Flush()

	log.Info().Int("accounts", len(active)).Msg("Account snapshot written")
	return nil
}
