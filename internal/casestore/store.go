// Package casestore provides durable storage for support-case records. It
// replaces direct S3 calls in the Lambda handlers with a Store interface so
// the pipeline stages are testable without live AWS services.
//
// Records are partitioned account-first for efficient enumeration:
//
//	account_number={accountId}/case_number={caseId}/data.json
//	account_number={accountId}/case_number={caseId}/annotation.json
//
// The same layout exists in two namespaces backed by separate buckets: raw
// (written by retrieval and annotation) and processed (written only by the
// final analysis stage). A case's presence in the processed namespace is the
// sole completion signal; no stage ever writes to both namespaces in one
// operation.
package casestore

import (
	"context"
	"time"
)

// Key uniquely identifies a support case across the organization.
type Key struct {
	AccountID string
	CaseID    string
}

// RawCase is the support-case metadata persisted by the retrieval stage.
// Its existence under a Key means the case has been seen; the retriever
// must skip any case whose RawCase already exists.
type RawCase struct {
	CaseID        string    `json:"caseId"`
	DisplayID     string    `json:"displayId"`
	Subject       string    `json:"subject"`
	ServiceCode   string    `json:"serviceCode"`
	CategoryCode  string    `json:"categoryCode"`
	SeverityCode  string    `json:"severityCode"`
	SubmittedBy   string    `json:"submittedBy"`
	TimeCreated   string    `json:"timeCreated"`
	Status        string    `json:"status"`
	RetrievalDate time.Time `json:"Case_Retrieval_Date"`
}

// Communication is one message on a support case.
type Communication struct {
	Body        string `json:"body"`
	TimeCreated string `json:"timeCreated"`
	SubmittedBy string `json:"submittedBy"`
}

// Annotation is the communication history fetched by the annotation stage.
// It is stored beside the RawCase in the raw namespace; re-annotation
// overwrites it with equivalent data, so the stage is safe to retry.
type Annotation struct {
	Communications []Communication `json:"communications"`
}

// ProcessedCase is the RawCase plus the three AI-derived results. It is
// written once, by the metadata-update stage, only after all analysis stages
// produced parseable output.
type ProcessedCase struct {
	RawCase
	Summary                string    `json:"Case_Summary"`
	RCACategory            string    `json:"RCA_Category"`
	RCAReason              string    `json:"RCA_Reason"`
	RCARetrievalDate       time.Time `json:"RCA_Retrieval_Date"`
	LifecycleCategory      string    `json:"Lifecycle_Category"`
	LifecycleReason        string    `json:"Lifecycle_Reason"`
	LifecycleRetrievalDate time.Time `json:"Lifecycle_Retrieval_Date"`
}

// Store is the durable key-value interface over the raw and processed
// namespaces. Each method is safe for concurrent use.
//
// All Get methods return (nil, nil) when the record does not exist.
// All Put methods perform full-object replacement (last-writer-wins).
type Store interface {
	// --- Raw namespace ---

	// GetRaw retrieves the RawCase for a key. Returns nil, nil if not found.
	GetRaw(ctx context.Context, key Key) (*RawCase, error)

	// PutRaw creates or replaces the RawCase for a key.
	PutRaw(ctx context.Context, key Key, rc *RawCase) error

	// GetAnnotation retrieves the annotation for a key. Returns nil, nil if not found.
	GetAnnotation(ctx context.Context, key Key) (*Annotation, error)

	// PutAnnotation creates or replaces the annotation for a key.
	PutAnnotation(ctx context.Context, key Key, a *Annotation) error

	// ListRawAccounts enumerates account IDs that have at least one raw case.
	ListRawAccounts(ctx context.Context) ([]string, error)

	// ListRawCaseIDs enumerates case IDs present in the raw namespace for an account.
	ListRawCaseIDs(ctx context.Context, accountID string) ([]string, error)

	// --- Processed namespace ---

	// GetProcessed retrieves the ProcessedCase for a key. Returns nil, nil if not found.
	GetProcessed(ctx context.Context, key Key) (*ProcessedCase, error)

	// PutProcessed creates or replaces the ProcessedCase for a key.
	PutProcessed(ctx context.Context, key Key, pc *ProcessedCase) error

	// ListProcessedCaseIDs returns the set of case IDs already processed for
	// an account. One prefix listing instead of a HeadObject per case; the
	// retriever's de-duplication check.
	ListProcessedCaseIDs(ctx context.Context, accountID string) (map[string]bool, error)

	// --- Cleanup ---

	// DeleteCase removes every object for a key from both namespaces,
	// including partial fragments. Returns the number of objects removed.
	DeleteCase(ctx context.Context, key Key) (int, error)
}
