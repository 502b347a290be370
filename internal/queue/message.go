package queue

import (
	"github.com/quotaguard/quotaguard/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps a violation record with its delivery information
type Message struct {
	Violation *models.Violation

	deliveryTag uint64
	channel     *amqp.Channel

	// ackFn/nackFn are set by the in-memory queue used in tests
	ackFn  func() error
	nackFn func(requeue bool) error
}

// Ack acknowledges the message
func (m *Message) Ack() error {
	if m.ackFn != nil {
		return m.ackFn()
	}
	return m.channel.Ack(m.deliveryTag, false)
}

// Nack negatively acknowledges the message
func (m *Message) Nack(requeue bool) error {
	if m.nackFn != nil {
		return m.nackFn(requeue)
	}
	return m.channel.Nack(m.deliveryTag, false, requeue)
}

// GetViolation returns the wrapped violation record
func (m *Message) GetViolation() *models.Violation {
	return m.Violation
}

var _ MessageInterface = (*Message)(nil)
