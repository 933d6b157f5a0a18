package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemMessage is one delivery attempt's view of a queued message.
type MemMessage struct {
	ID       string
	Body     []byte
	Attempts int
}

// MemQueue is an in-memory Queue with at-least-once redelivery semantics for
// tests: a message a consumer fails is requeued until its attempt count
// reaches MaxAttempts, then moved to the dead-letter slice.
type MemQueue struct {
	// MaxAttempts bounds delivery attempts before dead-lettering (default 3).
	MaxAttempts int

	mu      sync.Mutex
	nextID  int
	pending []*MemMessage
	dead    []*MemMessage
}

// Compile-time interface check.
var _ Queue = (*MemQueue)(nil)

// NewMemQueue creates an empty in-memory queue with the default attempt bound.
func NewMemQueue() *MemQueue {
	return &MemQueue{MaxAttempts: 3}
}

func (q *MemQueue) Send(ctx context.Context, msg interface{}) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal queue message: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	id := fmt.Sprintf("mem-%d", q.nextID)
	q.pending = append(q.pending, &MemMessage{ID: id, Body: body})
	return id, nil
}

// Receive pops the oldest pending message, incrementing its attempt count.
// Returns nil when the queue is empty.
func (q *MemQueue) Receive() *MemMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	msg.Attempts++
	return msg
}

// Ack acknowledges a received message; it will not be redelivered.
func (q *MemQueue) Ack(msg *MemMessage) {}

// Nack returns a failed message to the queue, or dead-letters it once its
// attempts are exhausted.
func (q *MemQueue) Nack(msg *MemMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if msg.Attempts >= q.MaxAttempts {
		q.dead = append(q.dead, msg)
		return
	}
	q.pending = append(q.pending, msg)
}

// Len returns the number of pending messages.
func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DeadLettered returns the messages that exhausted their delivery attempts.
func (q *MemQueue) DeadLettered() []*MemMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*MemMessage(nil), q.dead...)
}

// Drain receives and acknowledges every pending message, decoding each into
// a fresh T. Useful for asserting on a stage's emitted work items.
func Drain[T any](q *MemQueue) ([]T, error) {
	var out []T
	for {
		msg := q.Receive()
		if msg == nil {
			return out, nil
		}
		var decoded T
		if err := json.Unmarshal(msg.Body, &decoded); err != nil {
			return nil, fmt.Errorf("decode drained message %s: %w", msg.ID, err)
		}
		q.Ack(msg)
		out = append(out, decoded)
	}
}
