// Package annotator implements the per-case annotation stage: fetch the full
// communication thread for a retrieved case, persist it beside the raw case
// record, and enqueue the case for AI analysis.
package annotator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
	"github.com/fpang/case-insights/internal/queue"
	"github.com/fpang/case-insights/internal/supportapi"
)

// Annotator processes one case per work item. Re-annotation overwrites the
// stored annotation with equivalent data, so redelivery is harmless.
type Annotator struct {
	Broker   supportapi.Broker
	Store    casestore.Store
	Ledger   ledger.StatusStore
	Analysis queue.Queue
}

// ProcessCase fetches communications for the case and enqueues it for
// analysis.
func (a *Annotator) ProcessCase(ctx context.Context, msg queue.CaseMessage) error {
	if msg.AccountID == "" || msg.CaseID == "" || msg.DisplayID == "" {
		return fmt.Errorf("case message missing required fields: %+v", msg)
	}

	entry, err := a.Ledger.Get(ctx, msg.AccountID, msg.DisplayID)
	if err != nil {
		return fmt.Errorf("failed to read ledger for case %s: %w", msg.DisplayID, err)
	}
	if entry != nil && entry.State != ledger.StateRetrieved && entry.State != ledger.StateAnnotated {
		// The case is already in analysis or done. A redelivered annotation
		// message must not rewind it or enqueue a second run.
		log.Info().
			Str("accountId", msg.AccountID).
			Str("displayId", msg.DisplayID).
			Str("state", string(entry.State)).
			Msg("Case already past annotation, ignoring redelivered message")
		return nil
	}

	client, err := a.Broker.ForAccount(ctx, msg.AccountID)
	if err != nil {
		return fmt.Errorf("failed to get case client for account %s: %w", msg.AccountID, err)
	}

	comms, err := client.Communications(ctx, msg.CaseID)
	if err != nil {
		return fmt.Errorf("failed to fetch communications for case %s: %w", msg.DisplayID, err)
	}

	key := casestore.Key{AccountID: msg.AccountID, CaseID: msg.DisplayID}
	if err := a.Store.PutAnnotation(ctx, key, &casestore.Annotation{Communications: comms}); err != nil {
		return fmt.Errorf("failed to store annotation for case %s: %w", msg.DisplayID, err)
	}
	if err := a.Ledger.Transition(ctx, msg.AccountID, msg.DisplayID, ledger.StateAnnotated); err != nil {
		return err
	}

	if _, err := a.Analysis.Send(ctx, queue.AnalysisMessage{
		AccountID: msg.AccountID,
		DisplayID: msg.DisplayID,
	}); err != nil {
		return fmt.Errorf("failed to enqueue case %s for analysis: %w", msg.DisplayID, err)
	}

	log.Info().
		Str("accountId", msg.AccountID).
		Str("displayId", msg.DisplayID).
		Int("communications", len(comms)).
		Msg("Case annotated")
	return nil
}
