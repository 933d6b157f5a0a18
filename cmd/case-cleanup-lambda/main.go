// Package main provides the Lambda entry point for the cleanup sweeper.
//
// Runs on a daily schedule after the pipeline's normal latency has passed:
// removes partial records of cases that never reached the processed state
// within the grace window, bounded by a per-run deletion cap.
//
// Memory: 256 MB
// Timeout: 15 minutes
package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/events"
	"github.com/fpang/case-insights/internal/lambdaboot"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/metrics"
	"github.com/fpang/case-insights/internal/sweeper"
)

var coldStart = true

var (
	sw      *sweeper.Sweeper
	emitter events.Emitter
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	cfg := sweeperConfig()
	sw = &sweeper.Sweeper{
		Store:  lambdaboot.InitCaseStore(aws.Config),
		Ledger: lambdaboot.InitLedger(aws.Config),
		Config: cfg,
	}
	if bus := os.Getenv("PIPELINE_EVENT_BUS"); bus != "" {
		emitter = events.NewBusEmitter(aws.Config, bus)
	} else {
		emitter = events.NopEmitter{}
	}

	lambdaboot.StartupLog("case-cleanup-lambda", initStart).
		S3Bucket("raw", os.Getenv("CASE_RAW_BUCKET")).
		S3Bucket("processed", os.Getenv("CASE_PROCESSED_BUCKET")).
		DynamoTable("caseStatus", os.Getenv("CASE_STATUS_TABLE")).
		Config("graceWindow", cfg.GraceWindow.String()).
		Config("maxDeletions", strconv.Itoa(cfg.MaxDeletions)).
		Feature("dryRun", cfg.DryRun).
		Log()
}

// sweeperConfig reads the sweep parameters from the environment. Defaults:
// 24h grace window, 1000 deletions per run, live mode.
func sweeperConfig() sweeper.Config {
	cfg := sweeper.Config{
		GraceWindow:  24 * time.Hour,
		MaxDeletions: 1000,
		DryRun:       strings.EqualFold(os.Getenv("DRY_RUN"), "true"),
	}
	if v := os.Getenv("GRACE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal().Err(err).Str("value", v).Msg("Invalid GRACE_WINDOW")
		}
		cfg.GraceWindow = d
	}
	if v := os.Getenv("MAX_DELETIONS_PER_RUN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatal().Err(err).Str("value", v).Msg("Invalid MAX_DELETIONS_PER_RUN")
		}
		cfg.MaxDeletions = n
	}
	for _, id := range strings.Split(os.Getenv("EXCLUDED_ACCOUNTS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.ExcludedAccounts = append(cfg.ExcludedAccounts, id)
		}
	}
	return cfg
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context) (sweeper.Summary, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "case-cleanup-lambda").Msg("Cold start — first invocation")
	}

	summary, err := sw.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Cleanup run failed")
		return summary, err
	}

	if !summary.DryRun {
		metrics.NewInNamespace(metrics.Namespace + "/Cleanup").
			Metric("AccountsProcessed", float64(summary.AccountsProcessed), metrics.UnitCount).
			Metric("CasesScanned", float64(summary.CasesScanned), metrics.UnitCount).
			Metric("CasesRemoved", float64(summary.CasesRemoved), metrics.UnitCount).
			Metric("Errors", float64(summary.Errors), metrics.UnitCount).
			Flush()
	}

	event := events.CleanupSummary{
		AccountsProcessed: summary.AccountsProcessed,
		CasesScanned:      summary.CasesScanned,
		CasesRemoved:      summary.CasesRemoved,
		Errors:            summary.Errors,
		DryRun:            summary.DryRun,
		CompletedAt:       time.Now().UTC(),
	}
	if err := emitter.EmitCleanupSummary(ctx, event); err != nil {
		log.Warn().Err(err).Msg("CleanupSummary event not emitted")
	}

	return summary, nil
}
