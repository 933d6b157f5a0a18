// Package analysis runs the four AI stages over an annotated case: summary,
// root-cause categorization, lifecycle-improvement categorization, and the
// final metadata merge that produces the ProcessedCase.
//
// Stages are driven one invocation at a time by the state machine, with each
// stage's output threaded to the next through the Task payload. A parse
// failure in any stage is a hard error for that run; the case stays
// incomplete and the state machine's retry restarts from the summary stage.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/bedrock"
	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/jsonutil"
	"github.com/fpang/case-insights/internal/ledger"
)

// Task type identifiers dispatched by the state machine.
const (
	TaskCaseSummary       = "case-summary"
	TaskRCAAnalysis       = "rca-analysis"
	TaskLifecycleAnalysis = "lifecycle-analysis"
	TaskUpdateMetadata    = "update-metadata"
)

// Task is the payload passed between state-machine stages. Each stage fills
// in its own output fields and returns the enriched task for the next state.
type Task struct {
	Type      string `json:"type"`
	AccountID string `json:"accountId"`
	CaseID    string `json:"caseId"`
	DisplayID string `json:"displayId,omitempty"`

	CaseSummary       string `json:"caseSummary,omitempty"`
	RCACategory       string `json:"rcaCategory,omitempty"`
	RCAReason         string `json:"rcaReason,omitempty"`
	LifecycleCategory string `json:"lifecycleCategory,omitempty"`
	LifecycleReason   string `json:"lifecycleReason,omitempty"`
}

// Key returns the storage key for the task's case.
func (t Task) Key() casestore.Key {
	return casestore.Key{AccountID: t.AccountID, CaseID: t.CaseID}
}

// rcaResult is the structured output required from the root-cause stage.
type rcaResult struct {
	Category string `json:"RCA_Category"`
	Reason   string `json:"RCA_Reason"`
}

// lifecycleResult is the structured output required from the lifecycle stage.
type lifecycleResult struct {
	Category string `json:"Lifecycle_Category"`
	Reason   string `json:"Lifecycle_Reason"`
}

// Runner executes analysis stages against storage and the model.
type Runner struct {
	Store   casestore.Store
	Ledger  ledger.StatusStore
	Invoker bedrock.Invoker

	// Now is the clock for result timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Run dispatches one task to its stage and returns the task enriched with
// that stage's output.
func (r *Runner) Run(ctx context.Context, task Task) (Task, error) {
	if task.AccountID == "" || task.CaseID == "" {
		return task, fmt.Errorf("task missing accountId or caseId")
	}

	log.Info().
		Str("type", task.Type).
		Str("accountId", task.AccountID).
		Str("caseId", task.CaseID).
		Msg("Running analysis stage")

	switch task.Type {
	case TaskCaseSummary:
		return r.runSummary(ctx, task)
	case TaskRCAAnalysis:
		return r.runRCA(ctx, task)
	case TaskLifecycleAnalysis:
		return r.runLifecycle(ctx, task)
	case TaskUpdateMetadata:
		return r.runUpdateMetadata(ctx, task)
	default:
		return task, fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (r *Runner) runSummary(ctx context.Context, task Task) (Task, error) {
	annotation, err := r.Store.GetAnnotation(ctx, task.Key())
	if err != nil {
		return task, fmt.Errorf("failed to read annotation: %w", err)
	}
	if annotation == nil {
		return task, fmt.Errorf("no annotation for case %s/%s", task.AccountID, task.CaseID)
	}

	reply, err := r.Invoker.Invoke(ctx, summaryPrompt(annotation.Communications))
	if err != nil {
		return task, fmt.Errorf("summary stage failed: %w", err)
	}

	summary := strings.TrimSpace(jsonutil.StripMarkdownFences(reply))
	if summary == "" {
		return task, fmt.Errorf("summary stage produced empty output for case %s/%s", task.AccountID, task.CaseID)
	}

	if err := r.Ledger.Transition(ctx, task.AccountID, task.CaseID, ledger.StateSummarized); err != nil {
		return task, err
	}

	task.CaseSummary = summary
	log.Info().Int("summaryLength", len(summary)).Msg("Case summary generated")
	return task, nil
}

func (r *Runner) runRCA(ctx context.Context, task Task) (Task, error) {
	if task.CaseSummary == "" {
		return task, fmt.Errorf("rca stage requires a case summary")
	}

	reply, err := r.Invoker.Invoke(ctx, rcaPrompt(task.CaseSummary))
	if err != nil {
		return task, fmt.Errorf("rca stage failed: %w", err)
	}

	result, err := jsonutil.ParseJSON[rcaResult](reply)
	if err != nil {
		return task, fmt.Errorf("rca stage returned unparseable output: %w", err)
	}
	if result.Category == "" || result.Reason == "" {
		return task, fmt.Errorf("rca stage returned incomplete result (category %q)", result.Category)
	}

	if err := r.Ledger.Transition(ctx, task.AccountID, task.CaseID, ledger.StateRCADone); err != nil {
		return task, err
	}

	task.RCACategory = result.Category
	task.RCAReason = result.Reason
	log.Info().Str("rcaCategory", result.Category).Msg("Root cause categorized")
	return task, nil
}

func (r *Runner) runLifecycle(ctx context.Context, task Task) (Task, error) {
	if task.CaseSummary == "" {
		return task, fmt.Errorf("lifecycle stage requires a case summary")
	}

	reply, err := r.Invoker.Invoke(ctx, lifecyclePrompt(task.CaseSummary))
	if err != nil {
		return task, fmt.Errorf("lifecycle stage failed: %w", err)
	}

	result, err := jsonutil.ParseJSON[lifecycleResult](reply)
	if err != nil {
		return task, fmt.Errorf("lifecycle stage returned unparseable output: %w", err)
	}
	if result.Category == "" || result.Reason == "" {
		return task, fmt.Errorf("lifecycle stage returned incomplete result (category %q)", result.Category)
	}

	if err := r.Ledger.Transition(ctx, task.AccountID, task.CaseID, ledger.StateLifecycleDone); err != nil {
		return task, err
	}

	task.LifecycleCategory = result.Category
	task.LifecycleReason = result.Reason
	log.Info().Str("lifecycleCategory", result.Category).Msg("Lifecycle opportunity categorized")
	return task, nil
}

// runUpdateMetadata merges the three AI outputs into the ProcessedCase. The
// ProcessedCase write is the completion signal; the ledger transition to
// COMPLETE follows it so a crash between the two writes leaves the case
// complete, never falsely incomplete.
func (r *Runner) runUpdateMetadata(ctx context.Context, task Task) (Task, error) {
	if task.CaseSummary == "" || task.RCACategory == "" || task.RCAReason == "" ||
		task.LifecycleCategory == "" || task.LifecycleReason == "" {
		return task, fmt.Errorf("metadata update requires all stage outputs for case %s/%s", task.AccountID, task.CaseID)
	}

	raw, err := r.Store.GetRaw(ctx, task.Key())
	if err != nil {
		return task, fmt.Errorf("failed to read raw case: %w", err)
	}
	if raw == nil {
		return task, fmt.Errorf("no raw case for %s/%s", task.AccountID, task.CaseID)
	}

	now := r.now()
	processed := &casestore.ProcessedCase{
		RawCase:                *raw,
		Summary:                task.CaseSummary,
		RCACategory:            task.RCACategory,
		RCAReason:              task.RCAReason,
		RCARetrievalDate:       now,
		LifecycleCategory:      task.LifecycleCategory,
		LifecycleReason:        task.LifecycleReason,
		LifecycleRetrievalDate: now,
	}

	if err := r.Store.PutProcessed(ctx, task.Key(), processed); err != nil {
		return task, fmt.Errorf("failed to write processed case: %w", err)
	}

	if err := r.Ledger.Transition(ctx, task.AccountID, task.CaseID, ledger.StateComplete); err != nil {
		return task, err
	}

	log.Info().
		Str("accountId", task.AccountID).
		Str("caseId", task.CaseID).
		Msg("Case processing complete")
	return task, nil
}

// RunAll executes the full four-stage sequence for one case. The state
// machine drives stages individually in production; RunAll backs the CLI's
// local reprocessing path and exercises the same code.
func (r *Runner) RunAll(ctx context.Context, accountID, caseID string) error {
	task := Task{AccountID: accountID, CaseID: caseID}
	for _, stage := range []string{TaskCaseSummary, TaskRCAAnalysis, TaskLifecycleAnalysis, TaskUpdateMetadata} {
		task.Type = stage
		var err error
		task, err = r.Run(ctx, task)
		if err != nil {
			return err
		}
	}
	return nil
}
