// Package dispatch covers the pipeline's fan-out points: the account
// dispatcher that turns a snapshot into per-account work items, and the
// analysis starter that launches one state-machine execution per annotated
// case.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/queue"
)

// Dispatcher fans an account snapshot out onto the account work queue.
type Dispatcher struct {
	Accounts queue.Queue
}

// DispatchSnapshot sends one AccountMessage per account and returns the
// number dispatched. A send failure stops the run; queue redelivery of the
// snapshot event re-dispatches all accounts, which downstream idempotency
// absorbs.
func (d *Dispatcher) DispatchSnapshot(ctx context.Context, snap *casestore.AccountSnapshot) (int, error) {
	for i, account := range snap.Accounts {
		msgID, err := d.Accounts.Send(ctx, queue.AccountMessage{
			AccountID:   account.ID,
			AccountName: account.Name,
		})
		if err != nil {
			return i, fmt.Errorf("failed to dispatch account %s: %w", account.ID, err)
		}
		log.Debug().Str("accountId", account.ID).Str("messageId", msgID).Msg("Account dispatched")
	}

	log.Info().Int("accounts", len(snap.Accounts)).Msg("Snapshot dispatched")
	return len(snap.Accounts), nil
}
