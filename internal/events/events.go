// Package events publishes pipeline milestones to EventBridge so other teams
// can subscribe to case completions and cleanup outcomes without polling S3.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"
)

// Source is the EventBridge source field for all pipeline events.
const Source = "case-insights"

// Detail types emitted by the pipeline.
const (
	DetailTypeCaseProcessed  = "CaseProcessed"
	DetailTypeCleanupSummary = "CleanupSummary"
)

// CaseProcessed announces a case reaching the processed state.
type CaseProcessed struct {
	AccountID   string    `json:"accountId"`
	DisplayID   string    `json:"displayId"`
	RCACategory string    `json:"rcaCategory"`
	ProcessedAt time.Time `json:"processedAt"`
}

// CleanupSummary announces the outcome of one sweeper run.
type CleanupSummary struct {
	AccountsProcessed int       `json:"accountsProcessed"`
	CasesScanned      int       `json:"casesScanned"`
	CasesRemoved      int       `json:"casesRemoved"`
	Errors            int       `json:"errors"`
	DryRun            bool      `json:"dryRun"`
	CompletedAt       time.Time `json:"completedAt"`
}

// Emitter publishes pipeline events.
type Emitter interface {
	EmitCaseProcessed(ctx context.Context, event CaseProcessed) error
	EmitCleanupSummary(ctx context.Context, event CleanupSummary) error
}

// BusEmitter implements Emitter against EventBridge.
type BusEmitter struct {
	client *eventbridge.Client
	bus    string
}

var _ Emitter = (*BusEmitter)(nil)

// NewBusEmitter creates an emitter for the named event bus. An empty bus
// name targets the account's default bus.
func NewBusEmitter(cfg aws.Config, bus string) *BusEmitter {
	return &BusEmitter{client: eventbridge.NewFromConfig(cfg), bus: bus}
}

func (e *BusEmitter) EmitCaseProcessed(ctx context.Context, event CaseProcessed) error {
	return e.put(ctx, DetailTypeCaseProcessed, event)
}

func (e *BusEmitter) EmitCleanupSummary(ctx context.Context, event CleanupSummary) error {
	return e.put(ctx, DetailTypeCleanupSummary, event)
}

func (e *BusEmitter) put(ctx context.Context, detailType string, event interface{}) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", detailType, err)
	}

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(Source),
		DetailType: aws.String(detailType),
		Detail:     aws.String(string(detail)),
	}
	if e.bus != "" {
		entry.EventBusName = aws.String(e.bus)
	}

	result, err := e.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("detailType", detailType).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, e := range result.Entries {
			if e.ErrorCode != nil || e.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(e.ErrorCode)).
					Str("errorMessage", aws.ToString(e.ErrorMessage)).
					Str("detailType", detailType).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
			}
		}
	}

	log.Debug().Str("detailType", detailType).Msg("Pipeline event emitted")
	return nil
}

// NopEmitter discards events. Used when no event bus is configured.
type NopEmitter struct{}

var _ Emitter = NopEmitter{}

func (NopEmitter) EmitCaseProcessed(ctx context.Context, event CaseProcessed) error   { return nil }
func (NopEmitter) EmitCleanupSummary(ctx context.Context, event CleanupSummary) error { return nil }
