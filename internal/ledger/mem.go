package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memKey struct {
	accountID, caseID string
}

// MemStore is an in-memory StatusStore for tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[memKey]*Entry
}

// Compile-time interface check.
var _ StatusStore = (*MemStore)(nil)

// NewMemStore creates an empty in-memory ledger.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[memKey]*Entry)}
}

func (m *MemStore) Get(ctx context.Context, accountID, caseID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[memKey{accountID, caseID}]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MemStore) Transition(ctx context.Context, accountID, caseID string, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{accountID, caseID}
	current, ok := m.entries[k]
	if !ok {
		if to != StateRetrieved {
			return &ErrBadTransition{From: "", To: to}
		}
	} else if !current.State.CanTransitionTo(to) {
		return &ErrBadTransition{From: current.State, To: to}
	}
	m.entries[k] = &Entry{
		AccountID: accountID,
		CaseID:    caseID,
		State:     to,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MemStore) ListByAccount(ctx context.Context, accountID string) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []*Entry
	for k, e := range m.entries {
		if k.accountID == accountID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CaseID < entries[j].CaseID })
	return entries, nil
}

func (m *MemStore) Delete(ctx context.Context, accountID, caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memKey{accountID, caseID})
	return nil
}
