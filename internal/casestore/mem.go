package casestore

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by tests and the pipeline harness.
// It mirrors the S3 layout closely enough that key-layout bugs surface:
// records are held under their full object keys.
type MemStore struct {
	mu        sync.Mutex
	raw       map[string][]byte // serialized objects, keyed by S3-style key
	processed map[string][]byte

	rawCases    map[Key]*RawCase
	annotations map[Key]*Annotation
	processedBy map[Key]*ProcessedCase
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		raw:         make(map[string][]byte),
		processed:   make(map[string][]byte),
		rawCases:    make(map[Key]*RawCase),
		annotations: make(map[Key]*Annotation),
		processedBy: make(map[Key]*ProcessedCase),
	}
}

func (m *MemStore) GetRaw(ctx context.Context, key Key) (*RawCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.rawCases[key]
	if !ok {
		return nil, nil
	}
	cp := *rc
	return &cp, nil
}

func (m *MemStore) PutRaw(ctx context.Context, key Key, rc *RawCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rc
	m.rawCases[key] = &cp
	m.raw[DataKey(key)] = nil
	return nil
}

func (m *MemStore) GetAnnotation(ctx context.Context, key Key) (*Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.annotations[key]
	if !ok {
		return nil, nil
	}
	cp := *a
	cp.Communications = append([]Communication(nil), a.Communications...)
	return &cp, nil
}

func (m *MemStore) PutAnnotation(ctx context.Context, key Key, a *Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	cp.Communications = append([]Communication(nil), a.Communications...)
	m.annotations[key] = &cp
	m.raw[AnnotationKey(key)] = nil
	return nil
}

func (m *MemStore) ListRawAccounts(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	for key := range m.rawCases {
		seen[key.AccountID] = true
	}
	accounts := make([]string, 0, len(seen))
	for id := range seen {
		accounts = append(accounts, id)
	}
	sort.Strings(accounts)
	return accounts, nil
}

func (m *MemStore) ListRawCaseIDs(ctx context.Context, accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for key := range m.rawCases {
		if key.AccountID == accountID {
			ids = append(ids, key.CaseID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemStore) GetProcessed(ctx context.Context, key Key) (*ProcessedCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.processedBy[key]
	if !ok {
		return nil, nil
	}
	cp := *pc
	return &cp, nil
}

func (m *MemStore) PutProcessed(ctx context.Context, key Key, pc *ProcessedCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pc
	m.processedBy[key] = &cp
	m.processed[DataKey(key)] = nil
	return nil
}

func (m *MemStore) ListProcessedCaseIDs(ctx context.Context, accountID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool)
	for key := range m.processedBy {
		if key.AccountID == accountID {
			ids[key.CaseID] = true
		}
	}
	return ids, nil
}

func (m *MemStore) DeleteCase(ctx context.Context, key Key) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	if _, ok := m.rawCases[key]; ok {
		delete(m.rawCases, key)
		delete(m.raw, DataKey(key))
		deleted++
	}
	if _, ok := m.annotations[key]; ok {
		delete(m.annotations, key)
		delete(m.raw, AnnotationKey(key))
		deleted++
	}
	if _, ok := m.processedBy[key]; ok {
		delete(m.processedBy, key)
		delete(m.processed, DataKey(key))
		deleted++
	}
	return deleted, nil
}
