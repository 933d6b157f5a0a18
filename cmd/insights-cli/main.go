// Package main provides the operator CLI for the case-insights pipeline.
//
// Subcommands:
//   - status: show per-case pipeline states for an account
//   - sweep: run the cleanup sweeper from a workstation, dry-run by default
//   - export: bundle processed cases into a zstd-compressed ZIP archive
package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
	"github.com/fpang/case-insights/internal/logging"
)

// CLI flags
var (
	rawBucketFlag       string
	processedBucketFlag string
	statusTableFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "insights-cli",
	Short: "Operator tooling for the support-case insights pipeline",
	Long: `insights-cli inspects and maintains the support-case insights pipeline
from a workstation, using the same storage layer as the Lambdas.

Credentials come from the default AWS config chain. The raw and processed
bucket names and the status table name default to the CASE_RAW_BUCKET,
CASE_PROCESSED_BUCKET, and CASE_STATUS_TABLE environment variables.

Examples:
  insights-cli status --account 111122223333
  insights-cli sweep --grace-window 48h --max-deletions 50
  insights-cli sweep --live
  insights-cli export --out cases.zip
  insights-cli export --account 111122223333 --out team-a.zip`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rawBucketFlag, "raw-bucket", os.Getenv("CASE_RAW_BUCKET"), "Raw case bucket")
	rootCmd.PersistentFlags().StringVar(&processedBucketFlag, "processed-bucket", os.Getenv("CASE_PROCESSED_BUCKET"), "Processed case bucket")
	rootCmd.PersistentFlags().StringVar(&statusTableFlag, "status-table", os.Getenv("CASE_STATUS_TABLE"), "Case status DynamoDB table")

	rootCmd.AddCommand(statusCmd, sweepCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initStores builds the shared storage clients from flags. Fatals on missing
// required configuration so subcommands can assume a working setup.
func initStores(needLedger bool) (context.Context, *casestore.S3Store, ledger.StatusStore) {
	logging.Init()
	ctx := context.Background()

	if rawBucketFlag == "" || processedBucketFlag == "" {
		log.Fatal().Msg("Raw and processed buckets are required (flags or CASE_RAW_BUCKET / CASE_PROCESSED_BUCKET)")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	store := casestore.NewS3Store(s3.NewFromConfig(cfg), rawBucketFlag, processedBucketFlag)

	var statuses ledger.StatusStore
	if needLedger {
		if statusTableFlag == "" {
			log.Fatal().Msg("Status table is required (flag or CASE_STATUS_TABLE)")
		}
		statuses = ledger.NewDynamoStore(dynamodb.NewFromConfig(cfg), statusTableFlag)
	}
	return ctx, store, statuses
}

// requireFlag exits with a usage error when a required string flag is empty.
func requireFlag(cmd *cobra.Command, name, value string) {
	if value == "" {
		fmt.Fprintf(os.Stderr, "Error: --%s is required\n\n", name)
		_ = cmd.Usage()
		os.Exit(2)
	}
}
