package queue

import (
	"context"
	"testing"
)

func TestMemQueue_SendReceiveAck(t *testing.T) {
	q := NewMemQueue()
	if _, err := q.Send(context.Background(), AccountMessage{AccountID: "111"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := q.Receive()
	if msg == nil {
		t.Fatal("expected a message")
	}
	q.Ack(msg)

	if q.Receive() != nil {
		t.Error("expected queue to be empty after ack")
	}
}

func TestMemQueue_NackRedelivers(t *testing.T) {
	q := NewMemQueue()
	q.Send(context.Background(), CaseMessage{AccountID: "111", DisplayID: "c1"})

	msg := q.Receive()
	q.Nack(msg)

	redelivered := q.Receive()
	if redelivered == nil {
		t.Fatal("expected redelivery after nack")
	}
	if redelivered.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", redelivered.Attempts)
	}
}

func TestMemQueue_DeadLetterAfterMaxAttempts(t *testing.T) {
	q := NewMemQueue()
	q.MaxAttempts = 2
	q.Send(context.Background(), CaseMessage{AccountID: "111", DisplayID: "c1"})

	for i := 0; i < 2; i++ {
		msg := q.Receive()
		if msg == nil {
			t.Fatalf("expected delivery %d", i+1)
		}
		q.Nack(msg)
	}

	if q.Receive() != nil {
		t.Error("expected no further redelivery after dead-lettering")
	}
	dead := q.DeadLettered()
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered message, got %d", len(dead))
	}
	if dead[0].Attempts != 2 {
		t.Errorf("expected 2 attempts on dead letter, got %d", dead[0].Attempts)
	}
}

func TestDrain_DecodesMessages(t *testing.T) {
	q := NewMemQueue()
	q.Send(context.Background(), CaseMessage{AccountID: "111", DisplayID: "c1"})
	q.Send(context.Background(), CaseMessage{AccountID: "111", DisplayID: "c2"})

	msgs, err := Drain[CaseMessage](q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].DisplayID != "c1" || msgs[1].DisplayID != "c2" {
		t.Errorf("unexpected drained messages: %+v", msgs)
	}
}
