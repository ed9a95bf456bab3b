package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of an outbox message
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Topic routes an outbox message to its fan-out handler. Notification
// and webhook dispatch for one event are two independent messages so a
// failure in one never blocks the other.
type Topic string

const (
	TopicNotifications Topic = "NOTIFICATIONS"
	TopicWebhooks      Topic = "WEBHOOKS"
	TopicPush          Topic = "PUSH"
)

// Message stores fan-out work written in the same transaction as the row
// it refers to, then delivered by the outbox worker after commit.
type Message struct {
	ID          uuid.UUID
	Topic       Topic
	AggregateID uuid.UUID
	Payload     []byte
	Status      Status
	RetryCount  int
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}
