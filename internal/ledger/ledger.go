// Package ledger tracks per-case pipeline state in DynamoDB. The S3 record
// layout only distinguishes "has RawCase" from "has ProcessedCase", which
// conflates in-flight with failed; the ledger makes every intermediate stage
// transition inspectable and queryable without scanning S3.
//
// The ProcessedCase object remains the completion signal consumed downstream.
// The ledger is observability plus a re-entrancy guard: the retriever skips
// any case with a ledger entry, whatever its state.
package ledger

import (
	"context"
	"fmt"
	"time"
)

// State is the tagged pipeline state of one case.
type State string

// Pipeline states, in transition order.
const (
	StateRetrieved     State = "RETRIEVED"
	StateAnnotated     State = "ANNOTATED"
	StateSummarized    State = "SUMMARIZED"
	StateRCADone       State = "RCA_DONE"
	StateLifecycleDone State = "LIFECYCLE_DONE"
	StateComplete      State = "COMPLETE"
)

// stateOrder maps each state to its position in the pipeline.
var stateOrder = map[State]int{
	StateRetrieved:     0,
	StateAnnotated:     1,
	StateSummarized:    2,
	StateRCADone:       3,
	StateLifecycleDone: 4,
	StateComplete:      5,
}

// Valid reports whether s is a known pipeline state.
func (s State) Valid() bool {
	_, ok := stateOrder[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal. Forward
// moves to the immediate successor are always legal, as are self-transitions
// (redelivery re-runs a stage with equivalent writes). A restarted analysis
// run may rewind an in-flight case back to SUMMARIZED (the state machine does
// not resume mid-run), so any transition between ANNOTATED and LIFECYCLE_DONE
// is also accepted. COMPLETE is terminal.
func (s State) CanTransitionTo(next State) bool {
	cur, ok := stateOrder[s]
	if !ok || !next.Valid() {
		return false
	}
	nxt := stateOrder[next]
	if nxt == cur {
		return true
	}
	if s == StateComplete {
		return false
	}
	if nxt == cur+1 {
		return true
	}
	// Analysis restart: anywhere in [ANNOTATED, LIFECYCLE_DONE] may move to
	// SUMMARIZED or later analysis states.
	return cur >= stateOrder[StateAnnotated] && nxt >= stateOrder[StateSummarized] && nxt <= stateOrder[StateComplete]
}

// Entry is one case's ledger record.
type Entry struct {
	AccountID string    `json:"accountId" dynamodbav:"-"`
	CaseID    string    `json:"caseId" dynamodbav:"-"`
	State     State     `json:"state" dynamodbav:"state"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// ErrBadTransition is returned when a requested state change violates the
// pipeline order.
type ErrBadTransition struct {
	From, To State
}

func (e *ErrBadTransition) Error() string {
	return fmt.Sprintf("illegal state transition %s -> %s", e.From, e.To)
}

// StatusStore persists case states. Each method is safe for concurrent use.
//
// Get returns (nil, nil) when no entry exists for the key.
type StatusStore interface {
	// Get retrieves the ledger entry for a case. Returns nil, nil if absent.
	Get(ctx context.Context, accountID, caseID string) (*Entry, error)

	// Transition moves a case to the given state, validating the move against
	// the current entry. A missing entry is only valid for StateRetrieved.
	Transition(ctx context.Context, accountID, caseID string, to State) error

	// ListByAccount returns all ledger entries for an account.
	ListByAccount(ctx context.Context, accountID string) ([]*Entry, error)

	// Delete removes a case's ledger entry. Deleting an absent entry is a no-op.
	Delete(ctx context.Context, accountID, caseID string) error
}
