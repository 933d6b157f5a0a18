// Package sweeper implements the scheduled cleanup of incomplete cases. A
// case retrieved but never completed (no ProcessedCase) past the grace window
// gets its partial records removed so the next retrieval run starts it fresh.
package sweeper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
)

// Config controls one sweep run.
type Config struct {
	// GraceWindow is the minimum age of an incomplete case before it is
	// eligible for deletion.
	GraceWindow time.Duration

	// MaxDeletions caps deletions per run. Candidates beyond the cap are
	// left for the next run.
	MaxDeletions int

	// ExcludedAccounts are never swept.
	ExcludedAccounts []string

	// DryRun logs deletions without performing them.
	DryRun bool
}

// Summary is the outcome of one sweep run.
type Summary struct {
	AccountsProcessed int           `json:"accountsProcessed"`
	CasesScanned      int           `json:"casesScanned"`
	CasesRemoved      int           `json:"casesRemoved"`
	ObjectsRemoved    int           `json:"objectsRemoved"`
	Errors            int           `json:"errors"`
	DryRun            bool          `json:"dryRun"`
	Duration          time.Duration `json:"-"`
}

// Sweeper scans the raw namespace for stuck cases and removes them.
type Sweeper struct {
	Store  casestore.Store
	Ledger ledger.StatusStore
	Config Config

	// Now is the clock for grace-window checks. Defaults to time.Now.
	Now func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Sweeper) excluded(accountID string) bool {
	for _, id := range s.Config.ExcludedAccounts {
		if id == accountID {
			return true
		}
	}
	return false
}

// Run performs one sweep and returns its summary. Individual case failures
// are counted, not fatal; the run always reports what it did.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	start := s.now()
	summary := Summary{DryRun: s.Config.DryRun}

	accounts, err := s.Store.ListRawAccounts(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list accounts: %w", err)
	}

	var candidates []casestore.Key
	for _, accountID := range accounts {
		if s.excluded(accountID) {
			log.Info().Str("accountId", accountID).Msg("Account excluded from cleanup")
			continue
		}
		summary.AccountsProcessed++

		accountCandidates, scanned, err := s.findCandidates(ctx, accountID)
		if err != nil {
			log.Error().Err(err).Str("accountId", accountID).Msg("Failed to scan account")
			summary.Errors++
			continue
		}
		summary.CasesScanned += scanned
		candidates = append(candidates, accountCandidates...)
	}

	// Deterministic ordering so repeated capped runs make forward progress.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].AccountID != candidates[j].AccountID {
			return candidates[i].AccountID < candidates[j].AccountID
		}
		return candidates[i].CaseID < candidates[j].CaseID
	})

	if max := s.Config.MaxDeletions; max > 0 && len(candidates) > max {
		log.Warn().
			Int("candidates", len(candidates)).
			Int("maxDeletions", max).
			Msg("Candidate set exceeds deletion cap, truncating")
		candidates = candidates[:max]
	}

	for _, key := range candidates {
		if s.Config.DryRun {
			log.Info().
				Str("accountId", key.AccountID).
				Str("caseId", key.CaseID).
				Msg("DRY RUN: would delete incomplete case")
			summary.CasesRemoved++
			continue
		}

		deleted, err := s.Store.DeleteCase(ctx, key)
		if err != nil {
			log.Error().Err(err).
				Str("accountId", key.AccountID).
				Str("caseId", key.CaseID).
				Msg("Failed to delete case")
			summary.Errors++
			continue
		}
		if err := s.Ledger.Delete(ctx, key.AccountID, key.CaseID); err != nil {
			log.Error().Err(err).
				Str("accountId", key.AccountID).
				Str("caseId", key.CaseID).
				Msg("Failed to delete ledger entry")
			summary.Errors++
			continue
		}

		summary.CasesRemoved++
		summary.ObjectsRemoved += deleted
		log.Info().
			Str("accountId", key.AccountID).
			Str("caseId", key.CaseID).
			Int("objects", deleted).
			Msg("Incomplete case removed")
	}

	summary.Duration = s.now().Sub(start)
	log.Info().
		Bool("dryRun", summary.DryRun).
		Int("accountsProcessed", summary.AccountsProcessed).
		Int("casesScanned", summary.CasesScanned).
		Int("casesRemoved", summary.CasesRemoved).
		Int("errors", summary.Errors).
		Dur("duration", summary.Duration).
		Msg("Cleanup run finished")
	return summary, nil
}

// findCandidates returns the account's incomplete cases older than the grace
// window, plus the number of cases scanned. A case with a ProcessedCase is
// never a candidate.
func (s *Sweeper) findCandidates(ctx context.Context, accountID string) ([]casestore.Key, int, error) {
	caseIDs, err := s.Store.ListRawCaseIDs(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list raw cases: %w", err)
	}
	processed, err := s.Store.ListProcessedCaseIDs(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list processed cases: %w", err)
	}

	cutoff := s.now().Add(-s.Config.GraceWindow)
	var candidates []casestore.Key
	for _, caseID := range caseIDs {
		if processed[caseID] {
			continue
		}

		key := casestore.Key{AccountID: accountID, CaseID: caseID}
		raw, err := s.Store.GetRaw(ctx, key)
		if err != nil {
			return candidates, len(caseIDs), fmt.Errorf("failed to read case %s: %w", caseID, err)
		}
		// A missing data.json with other fragments present is a partial
		// write; its age is unknowable, treat it as stuck.
		if raw != nil && !raw.RetrievalDate.Before(cutoff) {
			continue
		}

		candidates = append(candidates, key)
	}
	return candidates, len(caseIDs), nil
}
