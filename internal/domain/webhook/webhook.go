package webhook

import (
	"time"

	"github.com/google/uuid"
)

// PayloadFormat selects how deliveries serialize the event.
type PayloadFormat string

const (
	// FormatJSON is the generic JSON payload.
	FormatJSON PayloadFormat = "JSON"
	// FormatSlack posts a URL-encoded form body compatible with
	// Slack-style incoming hooks.
	FormatSlack PayloadFormat = "SLACK"
	// FormatCampfire posts an HTML fragment for chat-room integrations.
	FormatCampfire PayloadFormat = "CAMPFIRE"
)

// Webhook is a per-board outbound subscription. Only events whose action
// is in Actions and whose board matches trigger a delivery; inactive
// webhooks never trigger.
type Webhook struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	BoardID   uuid.UUID
	URL       string
	Secret    string
	Actions   []string
	Format    PayloadFormat
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscribedTo reports whether the webhook's action allow-list contains
// the tag.
func (w Webhook) SubscribedTo(action string) bool {
	for _, a := range w.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// DeliveryState is the delivery attempt state machine:
// pending -> in_progress -> completed | errored. The state reflects the
// last attempt only; retries are fresh executions against the same row.
type DeliveryState string

const (
	DeliveryPending    DeliveryState = "PENDING"
	DeliveryInProgress DeliveryState = "IN_PROGRESS"
	DeliveryCompleted  DeliveryState = "COMPLETED"
	DeliveryErrored    DeliveryState = "ERRORED"
)

// Delivery is one attempt record per (webhook, event) pair.
type Delivery struct {
	ID              uuid.UUID
	WebhookID       uuid.UUID
	EventID         uuid.UUID
	State           DeliveryState
	Attempts        int
	RequestHeaders  string
	RequestBody     string
	ResponseStatus  int
	ResponseHeaders string
	ResponseBody    string
	NextAttemptAt   time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DelinquencyTracker is the per-webhook failure streak. The webhook is
// deactivated exactly when the streak reaches FailureThreshold AND has
// persisted for at least FailureWindow.
type DelinquencyTracker struct {
	WebhookID                uuid.UUID
	ConsecutiveFailuresCount int
	FirstFailureAt           *time.Time
	UpdatedAt                time.Time
}

const (
	FailureThreshold = 10
	FailureWindow    = time.Hour
)

// Delinquent reports whether both deactivation conditions hold at now.
func (t DelinquencyTracker) Delinquent(now time.Time) bool {
	if t.ConsecutiveFailuresCount < FailureThreshold {
		return false
	}
	if t.FirstFailureAt == nil {
		return false
	}
	return now.Sub(*t.FirstFailureAt) >= FailureWindow
}
