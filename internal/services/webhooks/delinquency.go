package webhooks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// DelinquencyTracker maintains the per-webhook consecutive-failure streak
// and deactivates webhooks that stay broken. Deactivation requires both
// conditions: the streak has reached the failure threshold AND has
// persisted for the failure window. A burst of rapid retries alone never
// disables a webhook; neither does an occasional failure that keeps
// resetting the count.
type DelinquencyTracker struct {
	delinquency repository.DelinquencyRepository
	webhooks    repository.WebhookRepository
	clock       Clock
	log         *logger.Logger
}

func NewDelinquencyTracker(repos *repository.Repositories, clock Clock, log *logger.Logger) *DelinquencyTracker {
	if clock == nil {
		clock = systemClock{}
	}
	return &DelinquencyTracker{
		delinquency: repos.Delinquency,
		webhooks:    repos.Webhooks,
		clock:       clock,
		log:         log,
	}
}

// RecordOutcome is called after every delivery attempt. Success resets
// the streak; failure increments it atomically and evaluates the
// deactivation rule against the clock.
func (t *DelinquencyTracker) RecordOutcome(ctx context.Context, webhookID uuid.UUID, succeeded bool) error {
	now := t.clock.Now()
	if succeeded {
		return t.delinquency.ResetStreak(ctx, webhookID, now)
	}

	tracker, err := t.delinquency.RecordFailure(ctx, webhookID, now)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}

	if !tracker.Delinquent(now) {
		return nil
	}

	if err := t.webhooks.SetActive(ctx, webhookID, false); err != nil {
		return fmt.Errorf("deactivate webhook: %w", err)
	}
	// Clear the streak with the deactivation so a manual reactivation
	// starts from zero instead of inheriting the stale count.
	if err := t.delinquency.ResetStreak(ctx, webhookID, now); err != nil {
		return fmt.Errorf("reset streak after deactivation: %w", err)
	}
	t.log.Warnf("webhook %s deactivated after %d consecutive failures since %s",
		webhookID, tracker.ConsecutiveFailuresCount, tracker.FirstFailureAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
