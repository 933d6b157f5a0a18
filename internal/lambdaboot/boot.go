// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the pipeline needs some subset of: AWS config, the case
// store, a work queue, the status ledger, the Bedrock model ID, and startup
// logging. This package extracts the common init patterns so each Lambda's
// init() is a short composition of helpers. Helpers fatal on missing
// configuration; a Lambda that cannot reach its dependencies should die at
// cold start, not per invocation.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/bedrock"
	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
	"github.com/fpang/case-insights/internal/logging"
	"github.com/fpang/case-insights/internal/queue"
	"github.com/fpang/case-insights/internal/supportapi"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// MustEnv returns the value of the named environment variable, fataling if
// it is empty.
func MustEnv(name string) string {
	value := os.Getenv(name)
	if value == "" {
		log.Fatal().Str("envVar", name).Msg("Environment variable is required")
	}
	return value
}

// InitCaseStore creates the S3 case store from the CASE_RAW_BUCKET and
// CASE_PROCESSED_BUCKET environment variables.
func InitCaseStore(cfg aws.Config) *casestore.S3Store {
	return casestore.NewS3Store(
		s3.NewFromConfig(cfg),
		MustEnv("CASE_RAW_BUCKET"),
		MustEnv("CASE_PROCESSED_BUCKET"),
	)
}

// InitQueue creates an SQS queue sender from the named queue URL env var.
func InitQueue(cfg aws.Config, queueURLEnvVar string) *queue.SQSQueue {
	return queue.NewSQSQueue(sqs.NewFromConfig(cfg), MustEnv(queueURLEnvVar))
}

// InitLedger creates the DynamoDB status ledger from the CASE_STATUS_TABLE
// environment variable.
func InitLedger(cfg aws.Config) *ledger.DynamoStore {
	return ledger.NewDynamoStore(dynamodb.NewFromConfig(cfg), MustEnv("CASE_STATUS_TABLE"))
}

// InitBroker creates the cross-account Support API broker from the
// SUPPORT_ROLE_NAME environment variable.
func InitBroker(cfg aws.Config) *supportapi.STSBroker {
	return supportapi.NewSTSBroker(cfg, MustEnv("SUPPORT_ROLE_NAME"))
}

// InitBedrock creates the Bedrock invoker with the resolved model ID.
func InitBedrock(cfg aws.Config, ssmClient *ssm.Client) *bedrock.Client {
	LoadModelID(ssmClient)
	return bedrock.NewClient(cfg, bedrock.GetModelID())
}

// LoadModelID fetches the Bedrock model ID from SSM Parameter Store if
// BEDROCK_MODEL_ID is not already set. Non-fatal: a missing parameter falls
// back to the package default so analysis keeps working while the parameter
// is being provisioned.
func LoadModelID(ssmClient *ssm.Client) {
	if os.Getenv("BEDROCK_MODEL_ID") != "" {
		return
	}
	paramName := os.Getenv("SSM_MODEL_ID_PARAM")
	if paramName == "" {
		paramName = "/case-insights/prod/bedrock-model-id"
	}
	ssmStart := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name: &paramName,
	})
	if err != nil {
		log.Warn().Err(err).Str("param", paramName).Str("default", bedrock.DefaultModelID).
			Msg("Model ID not found in SSM, using default")
		return
	}
	os.Setenv("BEDROCK_MODEL_ID", *result.Parameter.Value)
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("Bedrock model ID loaded from SSM")
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
