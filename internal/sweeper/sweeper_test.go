package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
)

var testNow = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestSweeper(cfg Config) (*Sweeper, *casestore.MemStore, *ledger.MemStore) {
	store := casestore.NewMemStore()
	statuses := ledger.NewMemStore()
	return &Sweeper{
		Store:  store,
		Ledger: statuses,
		Config: cfg,
		Now:    func() time.Time { return testNow },
	}, store, statuses
}

func putRaw(t *testing.T, store *casestore.MemStore, key casestore.Key, age time.Duration) {
	t.Helper()
	err := store.PutRaw(context.Background(), key, &casestore.RawCase{
		CaseID:        key.CaseID,
		DisplayID:     key.CaseID,
		RetrievalDate: testNow.Add(-age),
	})
	if err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
}

func putProcessed(t *testing.T, store *casestore.MemStore, key casestore.Key) {
	t.Helper()
	err := store.PutProcessed(context.Background(), key, &casestore.ProcessedCase{
		RawCase: casestore.RawCase{CaseID: key.CaseID},
		Summary: "done",
	})
	if err != nil {
		t.Fatalf("PutProcessed: %v", err)
	}
}

func TestSweepRemovesStuckCase(t *testing.T) {
	sw, store, statuses := newTestSweeper(Config{GraceWindow: 24 * time.Hour, MaxDeletions: 100})
	key := casestore.Key{AccountID: "111122223333", CaseID: "c-stuck"}
	putRaw(t, store, key, 10*24*time.Hour)
	if err := statuses.Transition(context.Background(), key.AccountID, key.CaseID, ledger.StateRetrieved); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CasesRemoved != 1 {
		t.Errorf("CasesRemoved = %d, want 1", summary.CasesRemoved)
	}

	raw, _ := store.GetRaw(context.Background(), key)
	if raw != nil {
		t.Error("raw case still present after sweep")
	}
	entry, _ := statuses.Get(context.Background(), key.AccountID, key.CaseID)
	if entry != nil {
		t.Error("ledger entry still present after sweep")
	}
}

func TestSweepNeverDeletesProcessedCase(t *testing.T) {
	sw, store, _ := newTestSweeper(Config{GraceWindow: time.Hour, MaxDeletions: 100})
	key := casestore.Key{AccountID: "111122223333", CaseID: "c-done"}
	putRaw(t, store, key, 30*24*time.Hour)
	putProcessed(t, store, key)

	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CasesRemoved != 0 {
		t.Errorf("CasesRemoved = %d, want 0", summary.CasesRemoved)
	}
	if pc, _ := store.GetProcessed(context.Background(), key); pc == nil {
		t.Error("processed case deleted")
	}
}

func TestSweepRespectsGraceWindow(t *testing.T) {
	sw, store, _ := newTestSweeper(Config{GraceWindow: 24 * time.Hour, MaxDeletions: 100})
	fresh := casestore.Key{AccountID: "111122223333", CaseID: "c-fresh"}
	putRaw(t, store, fresh, time.Hour)

	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CasesRemoved != 0 {
		t.Errorf("CasesRemoved = %d, want 0 for in-grace case", summary.CasesRemoved)
	}
	if raw, _ := store.GetRaw(context.Background(), fresh); raw == nil {
		t.Error("fresh case deleted inside grace window")
	}
}

func TestSweepBoundedByMaxDeletions(t *testing.T) {
	sw, store, _ := newTestSweeper(Config{GraceWindow: time.Hour, MaxDeletions: 2})
	keys := []casestore.Key{
		{AccountID: "111122223333", CaseID: "c-1"},
		{AccountID: "111122223333", CaseID: "c-2"},
		{AccountID: "111122223333", CaseID: "c-3"},
		{AccountID: "111122223333", CaseID: "c-4"},
	}
	for _, key := range keys {
		putRaw(t, store, key, 48*time.Hour)
	}

	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CasesRemoved != 2 {
		t.Errorf("CasesRemoved = %d, want 2", summary.CasesRemoved)
	}

	// Sorted order means the lowest case IDs go first.
	if raw, _ := store.GetRaw(context.Background(), keys[0]); raw != nil {
		t.Error("c-1 should have been deleted")
	}
	if raw, _ := store.GetRaw(context.Background(), keys[3]); raw == nil {
		t.Error("c-4 should have survived the capped run")
	}
}

func TestSweepSkipsExcludedAccounts(t *testing.T) {
	sw, store, _ := newTestSweeper(Config{
		GraceWindow:      time.Hour,
		MaxDeletions:     100,
		ExcludedAccounts: []string{"999988887777"},
	})
	excluded := casestore.Key{AccountID: "999988887777", CaseID: "c-x"}
	swept := casestore.Key{AccountID: "111122223333", CaseID: "c-y"}
	putRaw(t, store, excluded, 48*time.Hour)
	putRaw(t, store, swept, 48*time.Hour)

	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CasesRemoved != 1 {
		t.Errorf("CasesRemoved = %d, want 1", summary.CasesRemoved)
	}
	if raw, _ := store.GetRaw(context.Background(), excluded); raw == nil {
		t.Error("excluded account's case was deleted")
	}
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	sw, store, _ := newTestSweeper(Config{GraceWindow: time.Hour, MaxDeletions: 100, DryRun: true})
	key := casestore.Key{AccountID: "111122223333", CaseID: "c-dry"}
	putRaw(t, store, key, 48*time.Hour)

	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.DryRun {
		t.Error("summary not flagged as dry run")
	}
	if summary.CasesRemoved != 1 {
		t.Errorf("CasesRemoved = %d, want 1 (counted, not performed)", summary.CasesRemoved)
	}
	if raw, _ := store.GetRaw(context.Background(), key); raw == nil {
		t.Error("dry run deleted a case")
	}
}
