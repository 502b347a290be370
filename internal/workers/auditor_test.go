package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/quotaguard/quotaguard/internal/models"
)

type fakeMessage struct {
	violation *models.Violation
	acked     bool
	nacked    bool
	requeued  bool
	ackErr    error
}

func (m *fakeMessage) Ack() error {
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = true
	return nil
}

func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *fakeMessage) GetViolation() *models.Violation {
	return m.violation
}

type fakeViolationStore struct {
	inserted []*models.Violation
	err      error
}

func (f *fakeViolationStore) Insert(ctx context.Context, v *models.Violation) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, v)
	return nil
}

func (f *fakeViolationStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]*models.Violation, error) {
	return f.inserted, nil
}

func sampleViolation() *models.Violation {
	return &models.Violation{
		ID:         uuid.New(),
		TenantID:   "acme",
		RuleID:     uuid.New(),
		RuleName:   "user-burst",
		Scope:      models.ScopePerUser,
		Identifier: "u1",
		WasBlocked: true,
	}
}

func TestProcessMessagePersistsAndAcks(t *testing.T) {
	t.Parallel()
	store := &fakeViolationStore{}
	auditor := NewViolationAuditor(store, nil)
	msg := &fakeMessage{violation: sampleViolation()}

	if err := auditor.ProcessMessage(context.Background(), msg); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d violations, want 1", len(store.inserted))
	}
	if !msg.acked || msg.nacked {
		t.Errorf("acked = %v, nacked = %v, want ack only", msg.acked, msg.nacked)
	}
}

func TestProcessMessageRequeuesOnInsertFailure(t *testing.T) {
	t.Parallel()
	store := &fakeViolationStore{err: errors.New("connection reset")}
	auditor := NewViolationAuditor(store, nil)
	msg := &fakeMessage{violation: sampleViolation()}

	if err := auditor.ProcessMessage(context.Background(), msg); err == nil {
		t.Fatal("ProcessMessage() should report the insert failure")
	}
	if !msg.nacked || !msg.requeued {
		t.Errorf("nacked = %v, requeued = %v, want requeue", msg.nacked, msg.requeued)
	}
	if msg.acked {
		t.Error("message must not be acked on failure")
	}
}

func TestProcessMessageDeadLettersEmptyPayload(t *testing.T) {
	t.Parallel()
	auditor := NewViolationAuditor(&fakeViolationStore{}, nil)
	msg := &fakeMessage{violation: nil}

	if err := auditor.ProcessMessage(context.Background(), msg); err == nil {
		t.Fatal("ProcessMessage() should report the empty payload")
	}
	if !msg.nacked || msg.requeued {
		t.Errorf("nacked = %v, requeued = %v, want dead-letter without requeue", msg.nacked, msg.requeued)
	}
}

func TestProcessMessageAckFailure(t *testing.T) {
	t.Parallel()
	store := &fakeViolationStore{}
	auditor := NewViolationAuditor(store, nil)
	msg := &fakeMessage{violation: sampleViolation(), ackErr: errors.New("channel closed")}

	if err := auditor.ProcessMessage(context.Background(), msg); err == nil {
		t.Fatal("ProcessMessage() should surface ack failures")
	}
	// The record was persisted; it must not be requeued as that would duplicate it
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d violations, want 1", len(store.inserted))
	}
	if msg.nacked {
		t.Error("message must not be nacked after successful insert")
	}
}
