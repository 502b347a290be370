package workers

import (
	"context"
	"fmt"

	"github.com/quotaguard/quotaguard/internal/database"
	logpkg "github.com/quotaguard/quotaguard/internal/logger"
	"github.com/quotaguard/quotaguard/internal/queue"
	"go.uber.org/zap"
)

// ViolationAuditor drains the violation queue into Postgres. It is the
// consuming half of the audit pipeline: the server publishes violation
// records at admission time and this worker persists them off the hot path.
type ViolationAuditor struct {
	repo   database.ViolationRepositoryInterface
	logger *zap.Logger
}

// NewViolationAuditor creates a new violation auditor
func NewViolationAuditor(repo database.ViolationRepositoryInterface, logger *zap.Logger) *ViolationAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViolationAuditor{repo: repo, logger: logger}
}

// ProcessMessage persists one violation record and acknowledges the
// message. Insert failures are treated as transient: the message is
// requeued so a database blip does not lose audit records. Messages with
// no violation payload are dead-lettered.
func (a *ViolationAuditor) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	v := msg.GetViolation()
	if v == nil {
		if err := msg.Nack(false); err != nil {
			return fmt.Errorf("failed to dead-letter empty message: %w", err)
		}
		return fmt.Errorf("message has no violation payload")
	}

	if err := a.repo.Insert(ctx, v); err != nil {
		a.logger.Warn("violation_insert_failed_requeueing",
			zap.String("violation_id", v.ID.String()),
			zap.String("rule_id", v.RuleID.String()),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to requeue after insert error: %w", nackErr)
		}
		return fmt.Errorf("failed to insert violation: %w", err)
	}

	if err := msg.Ack(); err != nil {
		// The insert succeeded; a redelivery would duplicate the record.
		// Log loudly but do not requeue ourselves.
		a.logger.Error("violation_ack_failed",
			zap.String("violation_id", v.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to ack message: %w", err)
	}

	a.logger.Debug("violation_persisted",
		zap.String("violation_id", v.ID.String()),
		zap.String("tenant_id", logpkg.SanitizeIdentifier(v.TenantID)),
		zap.String("rule_name", logpkg.SanitizeString(v.RuleName, 255)),
		zap.Bool("was_blocked", v.WasBlocked),
	)
	return nil
}
