// Package retriever implements the per-account case retrieval stage: list
// resolved cases in the trailing window, skip anything already seen, persist
// new raw cases, and enqueue them for annotation.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
	"github.com/fpang/case-insights/internal/queue"
	"github.com/fpang/case-insights/internal/supportapi"
)

// Retriever processes one account per work item. Safe to re-run for the
// same account: existing cases are skipped, so duplicate queue deliveries
// produce no new writes.
type Retriever struct {
	Broker      supportapi.Broker
	Store       casestore.Store
	Ledger      ledger.StatusStore
	Annotations queue.Queue

	// Window is the trailing retrieval window. Defaults to
	// supportapi.ResolvedWindow.
	Window time.Duration

	// Now is the clock for retrieval timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (r *Retriever) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Retriever) window() time.Duration {
	if r.Window > 0 {
		return r.Window
	}
	return supportapi.ResolvedWindow
}

// ProcessAccount retrieves new resolved cases for one account and returns the
// number of cases enqueued for annotation. Accounts without the cross-account
// role or without Support API entitlement are skipped with a zero count.
func (r *Retriever) ProcessAccount(ctx context.Context, accountID string) (int, error) {
	client, err := r.Broker.ForAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, supportapi.ErrRoleUnavailable) {
			log.Warn().Str("accountId", accountID).Msg("Cross-account role not provisioned, skipping account")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get case client for account %s: %w", accountID, err)
	}

	cases, err := client.ListResolvedCases(ctx, r.now().Add(-r.window()))
	if err != nil {
		if errors.Is(err, supportapi.ErrNotEntitled) {
			log.Warn().Str("accountId", accountID).Msg("Account has no Support API entitlement, skipping")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list cases for account %s: %w", accountID, err)
	}
	if len(cases) == 0 {
		log.Info().Str("accountId", accountID).Msg("No resolved cases in window")
		return 0, nil
	}

	// One listing of the processed namespace covers the whole account.
	processed, err := r.Store.ListProcessedCaseIDs(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to list processed cases for account %s: %w", accountID, err)
	}

	log.Info().
		Str("accountId", accountID).
		Int("cases", len(cases)).
		Int("alreadyProcessed", len(processed)).
		Msg("Retrieved resolved cases")

	newCount := 0
	for _, c := range cases {
		if processed[c.DisplayID] {
			continue
		}

		key := casestore.Key{AccountID: accountID, CaseID: c.DisplayID}

		// A ledger entry in any state means the case is in flight or done;
		// redelivery must not restart it.
		entry, err := r.Ledger.Get(ctx, accountID, c.DisplayID)
		if err != nil {
			return newCount, fmt.Errorf("ledger lookup failed for case %s: %w", c.DisplayID, err)
		}
		if entry != nil {
			log.Debug().
				Str("accountId", accountID).
				Str("displayId", c.DisplayID).
				Str("state", string(entry.State)).
				Msg("Case already tracked, skipping")
			continue
		}

		rc := c
		rc.RetrievalDate = r.now()
		if err := r.Store.PutRaw(ctx, key, &rc); err != nil {
			return newCount, fmt.Errorf("failed to store case %s: %w", c.DisplayID, err)
		}
		if err := r.Ledger.Transition(ctx, accountID, c.DisplayID, ledger.StateRetrieved); err != nil {
			return newCount, err
		}

		if _, err := r.Annotations.Send(ctx, queue.CaseMessage{
			AccountID: accountID,
			CaseID:    c.CaseID,
			DisplayID: c.DisplayID,
		}); err != nil {
			return newCount, fmt.Errorf("failed to enqueue case %s for annotation: %w", c.DisplayID, err)
		}

		newCount++
		log.Info().Str("accountId", accountID).Str("displayId", c.DisplayID).Msg("New case retrieved")
	}

	log.Info().Str("accountId", accountID).Int("newCases", newCount).Msg("Account retrieval finished")
	return newCount, nil
}
