package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/fpang/case-insights/internal/casestore"
)

func TestWriteArchiveBundlesProcessedCases(t *testing.T) {
	store := casestore.NewMemStore()
	ctx := context.Background()

	keys := []casestore.Key{
		{AccountID: "111122223333", CaseID: "1001"},
		{AccountID: "444455556666", CaseID: "2001"},
	}
	for _, key := range keys {
		err := store.PutProcessed(ctx, key, &casestore.ProcessedCase{
			RawCase:     casestore.RawCase{CaseID: key.CaseID, DisplayID: key.CaseID},
			Summary:     "summary",
			RCACategory: "Other",
		})
		if err != nil {
			t.Fatalf("PutProcessed: %v", err)
		}
	}
	// An in-flight case must not appear in the export.
	err := store.PutRaw(ctx, casestore.Key{AccountID: "111122223333", CaseID: "stuck"}, &casestore.RawCase{CaseID: "stuck"})
	if err != nil {
		t.Fatalf("PutRaw: %v", err)
	}

	var buf bytes.Buffer
	e := &Exporter{Store: store}
	count, err := e.WriteArchive(ctx, &buf, nil)
	if err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	if count != 2 {
		t.Errorf("exported %d cases, want 2", count)
	}
	if buf.Len() == 0 {
		t.Error("archive is empty")
	}
}

func TestWriteArchiveFiltersAccounts(t *testing.T) {
	store := casestore.NewMemStore()
	ctx := context.Background()
	for _, key := range []casestore.Key{
		{AccountID: "111122223333", CaseID: "1001"},
		{AccountID: "444455556666", CaseID: "2001"},
	} {
		if err := store.PutProcessed(ctx, key, &casestore.ProcessedCase{Summary: "s"}); err != nil {
			t.Fatalf("PutProcessed: %v", err)
		}
	}

	var buf bytes.Buffer
	e := &Exporter{Store: store}
	count, err := e.WriteArchive(ctx, &buf, []string{"444455556666"})
	if err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	if count != 1 {
		t.Errorf("exported %d cases, want 1", count)
	}
}
