package ratelimit

import (
	"context"
	"time"

	"github.com/quotaguard/quotaguard/internal/models"
)

// windowEvaluator performs the count-only phase of the sliding window
// check for one rule and one derived identifier. It never writes:
// recording happens separately after the whole admission decision
// succeeds, so a request rejected by a higher-priority rule does not
// pollute the counters of rules it never used.
type windowEvaluator struct {
	store CounterStore
}

// evaluate returns whether one more request would be admitted under the
// rule, and the current count. The window is closed on both ends: an entry
// landing exactly on [now-window, now] boundaries counts. Admission uses
// strict less-than, so the limit-th admitted request fills the window and
// the next one is denied.
func (w *windowEvaluator) evaluate(ctx context.Context, rule *models.Rule, tenantID, identifier string, now time.Time) (bool, int, error) {
	key, err := DeriveKey(tenantID, rule.Scope, identifier, rule.ID, rule.EndpointPattern)
	if err != nil {
		return false, 0, err
	}

	count, err := w.store.CountInWindow(ctx, key, now.Add(-rule.Window()), now)
	if err != nil {
		return false, 0, err
	}

	return count < rule.MaxRequests, count, nil
}
