package retriever

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fpang/case-insights/internal/casestore"
	"github.com/fpang/case-insights/internal/ledger"
	"github.com/fpang/case-insights/internal/queue"
	"github.com/fpang/case-insights/internal/supportapi"
)

// fakeBroker serves canned cases per account, or a canned error.
type fakeBroker struct {
	cases map[string][]casestore.RawCase
	err   error
}

func (b *fakeBroker) ForAccount(ctx context.Context, accountID string) (supportapi.CaseClient, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &fakeClient{cases: b.cases[accountID]}, nil
}

type fakeClient struct {
	cases []casestore.RawCase
	err   error
}

func (c *fakeClient) ListResolvedCases(ctx context.Context, after time.Time) ([]casestore.RawCase, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.cases, nil
}

func (c *fakeClient) Communications(ctx context.Context, caseID string) ([]casestore.Communication, error) {
	return nil, nil
}

func newTestRetriever(broker supportapi.Broker) (*Retriever, *casestore.MemStore, *ledger.MemStore, *queue.MemQueue) {
	store := casestore.NewMemStore()
	statuses := ledger.NewMemStore()
	annotations := queue.NewMemQueue()
	r := &Retriever{
		Broker:      broker,
		Store:       store,
		Ledger:      statuses,
		Annotations: annotations,
		Now:         func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
	return r, store, statuses, annotations
}

func TestProcessAccountStoresNewCases(t *testing.T) {
	broker := &fakeBroker{cases: map[string][]casestore.RawCase{
		"111122223333": {
			{CaseID: "case-long-1", DisplayID: "1001", Subject: "s1", Status: "resolved"},
			{CaseID: "case-long-2", DisplayID: "1002", Subject: "s2", Status: "resolved"},
		},
	}}
	r, store, statuses, annotations := newTestRetriever(broker)

	n, err := r.ProcessAccount(context.Background(), "111122223333")
	if err != nil {
		t.Fatalf("ProcessAccount: %v", err)
	}
	if n != 2 {
		t.Errorf("new cases = %d, want 2", n)
	}

	raw, err := store.GetRaw(context.Background(), casestore.Key{AccountID: "111122223333", CaseID: "1001"})
	if err != nil || raw == nil {
		t.Fatalf("GetRaw: %v, %v", raw, err)
	}
	if raw.RetrievalDate.IsZero() {
		t.Error("retrieval date not stamped")
	}

	entry, _ := statuses.Get(context.Background(), "111122223333", "1001")
	if entry == nil || entry.State != ledger.StateRetrieved {
		t.Errorf("ledger entry = %v, want RETRIEVED", entry)
	}

	msgs, err := queue.Drain[queue.CaseMessage](annotations)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("annotation messages = %d, want 2", len(msgs))
	}
	if msgs[0].CaseID != "case-long-1" || msgs[0].DisplayID != "1001" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
}

func TestProcessAccountIsIdempotent(t *testing.T) {
	broker := &fakeBroker{cases: map[string][]casestore.RawCase{
		"111122223333": {{CaseID: "case-long-1", DisplayID: "1001", Status: "resolved"}},
	}}
	r, store, _, annotations := newTestRetriever(broker)

	if _, err := r.ProcessAccount(context.Background(), "111122223333"); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Duplicate delivery of the same work item.
	n, err := r.ProcessAccount(context.Background(), "111122223333")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Errorf("second run produced %d new cases, want 0", n)
	}

	ids, _ := store.ListRawCaseIDs(context.Background(), "111122223333")
	if len(ids) != 1 {
		t.Errorf("raw case count = %d, want 1", len(ids))
	}
	msgs, _ := queue.Drain[queue.CaseMessage](annotations)
	if len(msgs) != 1 {
		t.Errorf("annotation messages = %d, want 1", len(msgs))
	}
}

func TestProcessAccountSkipsProcessedCases(t *testing.T) {
	broker := &fakeBroker{cases: map[string][]casestore.RawCase{
		"111122223333": {
			{CaseID: "case-long-1", DisplayID: "1001", Status: "resolved"},
			{CaseID: "case-long-2", DisplayID: "1002", Status: "resolved"},
		},
	}}
	r, store, _, annotations := newTestRetriever(broker)
	err := store.PutProcessed(context.Background(),
		casestore.Key{AccountID: "111122223333", CaseID: "1001"},
		&casestore.ProcessedCase{Summary: "done"})
	if err != nil {
		t.Fatalf("PutProcessed: %v", err)
	}

	n, err := r.ProcessAccount(context.Background(), "111122223333")
	if err != nil {
		t.Fatalf("ProcessAccount: %v", err)
	}
	if n != 1 {
		t.Errorf("new cases = %d, want 1", n)
	}
	msgs, _ := queue.Drain[queue.CaseMessage](annotations)
	if len(msgs) != 1 || msgs[0].DisplayID != "1002" {
		t.Errorf("unexpected annotation messages: %+v", msgs)
	}
}

func TestProcessAccountSkipsUnprovisionedRole(t *testing.T) {
	broker := &fakeBroker{err: fmt.Errorf("assume: %w", supportapi.ErrRoleUnavailable)}
	r, _, _, _ := newTestRetriever(broker)

	n, err := r.ProcessAccount(context.Background(), "111122223333")
	if err != nil {
		t.Fatalf("expected graceful skip, got %v", err)
	}
	if n != 0 {
		t.Errorf("new cases = %d, want 0", n)
	}
}

func TestProcessAccountSkipsUnentitledAccount(t *testing.T) {
	store := casestore.NewMemStore()
	r := &Retriever{
		Broker:      &entitlementBroker{},
		Store:       store,
		Ledger:      ledger.NewMemStore(),
		Annotations: queue.NewMemQueue(),
	}

	n, err := r.ProcessAccount(context.Background(), "111122223333")
	if err != nil {
		t.Fatalf("expected graceful skip, got %v", err)
	}
	if n != 0 {
		t.Errorf("new cases = %d, want 0", n)
	}
}

type entitlementBroker struct{}

func (b *entitlementBroker) ForAccount(ctx context.Context, accountID string) (supportapi.CaseClient, error) {
	return &fakeClient{err: fmt.Errorf("describe: %w", supportapi.ErrNotEntitled)}, nil
}
