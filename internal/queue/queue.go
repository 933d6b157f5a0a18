// Package queue abstracts the work queues between pipeline stages. Lambda
// consumers receive messages as SQS event batches; producers send through
// the Queue interface so stage logic can be exercised against an in-memory
// queue with redelivery and dead-letter semantics in tests.
package queue

import "context"

// AccountMessage is the work item emitted by the account dispatcher:
// one per account per snapshot.
type AccountMessage struct {
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName,omitempty"`
}

// CaseMessage is the work item emitted by the retriever for each newly-seen
// case, consumed by the annotation stage.
type CaseMessage struct {
	AccountID string `json:"accountId"`
	CaseID    string `json:"caseId"`
	DisplayID string `json:"displayId"`
}

// AnalysisMessage is the work item emitted by the annotator, consumed by the
// analysis-start stage. It carries the same case identity; the display ID is
// the storage partition component.
type AnalysisMessage struct {
	AccountID string `json:"accountId"`
	DisplayID string `json:"displayId"`
}

// Queue sends JSON-serializable messages to a work queue. Delivery is
// at-least-once; consumers must be idempotent.
type Queue interface {
	// Send enqueues one message. The returned ID identifies the message for
	// logging only.
	Send(ctx context.Context, msg interface{}) (string, error)
}
