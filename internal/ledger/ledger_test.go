package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestCanTransitionTo_ForwardOrder(t *testing.T) {
	order := []State{StateRetrieved, StateAnnotated, StateSummarized, StateRCADone, StateLifecycleDone, StateComplete}
	for i := 0; i < len(order)-1; i++ {
		if !order[i].CanTransitionTo(order[i+1]) {
			t.Errorf("expected %s -> %s to be legal", order[i], order[i+1])
		}
	}
}

func TestCanTransitionTo_SelfTransition(t *testing.T) {
	for _, s := range []State{StateRetrieved, StateAnnotated, StateComplete} {
		if !s.CanTransitionTo(s) {
			t.Errorf("expected %s -> %s (redelivery) to be legal", s, s)
		}
	}
}

func TestCanTransitionTo_NoSkippingEarlyStages(t *testing.T) {
	if StateRetrieved.CanTransitionTo(StateSummarized) {
		t.Error("RETRIEVED must not skip directly to SUMMARIZED")
	}
	if StateRetrieved.CanTransitionTo(StateComplete) {
		t.Error("RETRIEVED must not skip directly to COMPLETE")
	}
}

func TestCanTransitionTo_AnalysisRestart(t *testing.T) {
	// A failed run restarts from SUMMARY; later states rewind to SUMMARIZED.
	if !StateRCADone.CanTransitionTo(StateSummarized) {
		t.Error("expected RCA_DONE -> SUMMARIZED (restart) to be legal")
	}
	if !StateLifecycleDone.CanTransitionTo(StateSummarized) {
		t.Error("expected LIFECYCLE_DONE -> SUMMARIZED (restart) to be legal")
	}
}

func TestCanTransitionTo_CompleteIsTerminal(t *testing.T) {
	if StateComplete.CanTransitionTo(StateSummarized) {
		t.Error("COMPLETE must not rewind to SUMMARIZED")
	}
	if StateComplete.CanTransitionTo(StateRetrieved) {
		t.Error("COMPLETE must not rewind to RETRIEVED")
	}
}

func TestMemStore_TransitionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.Transition(ctx, "111", "c1", StateRetrieved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Transition(ctx, "111", "c1", StateAnnotated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, err := s.Get(ctx, "111", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil || entry.State != StateAnnotated {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestMemStore_FirstTransitionMustBeRetrieved(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	err := s.Transition(ctx, "111", "c1", StateAnnotated)
	var bad *ErrBadTransition
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
}

func TestMemStore_IllegalTransitionRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.Transition(ctx, "111", "c1", StateRetrieved)

	err := s.Transition(ctx, "111", "c1", StateComplete)
	var bad *ErrBadTransition
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
	if bad.From != StateRetrieved || bad.To != StateComplete {
		t.Errorf("unexpected transition in error: %+v", bad)
	}
}

func TestMemStore_ListByAccountSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.Transition(ctx, "111", "c2", StateRetrieved)
	s.Transition(ctx, "111", "c1", StateRetrieved)
	s.Transition(ctx, "222", "x1", StateRetrieved)

	entries, err := s.ListByAccount(ctx, "111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].CaseID != "c1" || entries[1].CaseID != "c2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestMemStore_DeleteAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.Delete(ctx, "111", "ghost"); err != nil {
		t.Errorf("unexpected error deleting absent entry: %v", err)
	}
}

func TestTransitionCondition_NewEntry(t *testing.T) {
	expr, names, values := transitionCondition(nil)
	if expr != "attribute_not_exists(PK)" {
		t.Errorf("condition = %q, want attribute_not_exists(PK)", expr)
	}
	if names != nil || values != nil {
		t.Errorf("unexpected attribute bindings for new entry: %v, %v", names, values)
	}
}

func TestTransitionCondition_PinsObservedState(t *testing.T) {
	expr, names, values := transitionCondition(&Entry{State: StateAnnotated})
	if expr != "#state = :from" {
		t.Errorf("condition = %q, want #state = :from", expr)
	}
	if names["#state"] != "state" {
		t.Errorf("attribute names = %v", names)
	}
	from, ok := values[":from"].(*types.AttributeValueMemberS)
	if !ok || from.Value != string(StateAnnotated) {
		t.Errorf(":from = %v, want %s", values[":from"], StateAnnotated)
	}
}
