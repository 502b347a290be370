package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
)

func testViolation(rule string) *models.Violation {
	return &models.Violation{
		ID:         uuid.New(),
		TenantID:   "acme",
		RuleID:     uuid.New(),
		RuleName:   rule,
		Scope:      models.ScopePerUser,
		Identifier: "u1",
		Endpoint:   "/api/v1/widgets",
		Method:     "POST",
		Action:     models.ActionBlock,
		WasBlocked: true,
		OccurredAt: time.Now().UTC(),
	}
}

func TestMemoryQueuePublishConsume(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	want := testViolation("burst")
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs, _, err := q.Consume(ctx, 1)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case msg := <-msgs:
		got := msg.GetViolation()
		if got.ID != want.ID || got.RuleName != "burst" {
			t.Errorf("consumed violation = %+v, want %+v", got, want)
		}
		if err := msg.Ack(); err != nil {
			t.Errorf("Ack() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemoryQueueNackRequeues(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Publish(ctx, testViolation("burst")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs, _, err := q.Consume(ctx, 1)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	msg := <-msgs
	if err := msg.Nack(true); err != nil {
		t.Fatalf("Nack() error = %v", err)
	}

	// The requeued message is delivered again
	select {
	case again := <-msgs:
		if again.GetViolation().ID != msg.GetViolation().ID {
			t.Error("requeued message has different identity")
		}
		_ = again.Ack()
	case <-time.After(time.Second):
		t.Fatal("requeued message never redelivered")
	}
}

func TestMemoryQueueClosedRejectsPublish(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue()
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.Publish(context.Background(), testViolation("x")); err == nil {
		t.Error("Publish() on closed queue should fail")
	}
	if err := q.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on closed queue should fail")
	}
}

func TestRecorderPublishesToQueue(t *testing.T) {
	t.Parallel()
	q := NewMemoryQueue()
	rec := NewRecorder(q)

	if err := rec.Record(context.Background(), testViolation("burst")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1", q.Len())
	}
}
