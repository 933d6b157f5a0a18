package casestore

import (
	"context"
	"testing"
	"time"
)

func TestMemStore_RawRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	key := Key{AccountID: "123", CaseID: "c1"}

	got, err := s.GetRaw(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for absent RawCase")
	}

	rc := &RawCase{CaseID: "case-abc", DisplayID: "c1", Subject: "EC2 down", RetrievalDate: time.Now().UTC()}
	if err := s.PutRaw(ctx, key, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err = s.GetRaw(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Subject != "EC2 down" {
		t.Errorf("unexpected RawCase: %+v", got)
	}
}

func TestMemStore_ListRawAccountsAndCases(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.PutRaw(ctx, Key{AccountID: "222", CaseID: "b"}, &RawCase{})
	s.PutRaw(ctx, Key{AccountID: "111", CaseID: "a2"}, &RawCase{})
	s.PutRaw(ctx, Key{AccountID: "111", CaseID: "a1"}, &RawCase{})

	accounts, err := s.ListRawAccounts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 || accounts[0] != "111" || accounts[1] != "222" {
		t.Errorf("unexpected accounts: %v", accounts)
	}

	ids, err := s.ListRawCaseIDs(ctx, "111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a1" || ids[1] != "a2" {
		t.Errorf("unexpected case IDs: %v", ids)
	}
}

func TestMemStore_ProcessedSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.PutProcessed(ctx, Key{AccountID: "111", CaseID: "a1"}, &ProcessedCase{Summary: "done"})

	ids, err := s.ListProcessedCaseIDs(ctx, "111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ids["a1"] || len(ids) != 1 {
		t.Errorf("unexpected processed set: %v", ids)
	}

	other, err := s.ListProcessedCaseIDs(ctx, "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty set for unknown account, got %v", other)
	}
}

func TestMemStore_DeleteCaseRemovesAllFragments(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	key := Key{AccountID: "111", CaseID: "a1"}
	s.PutRaw(ctx, key, &RawCase{})
	s.PutAnnotation(ctx, key, &Annotation{Communications: []Communication{{Body: "hi"}}})
	s.PutProcessed(ctx, key, &ProcessedCase{})

	n, err := s.DeleteCase(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted objects, got %d", n)
	}

	if rc, _ := s.GetRaw(ctx, key); rc != nil {
		t.Error("RawCase survived deletion")
	}
	if a, _ := s.GetAnnotation(ctx, key); a != nil {
		t.Error("annotation survived deletion")
	}
	if pc, _ := s.GetProcessed(ctx, key); pc != nil {
		t.Error("ProcessedCase survived deletion")
	}
}
