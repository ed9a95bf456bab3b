package notification

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies what a notification points back to.
type SourceKind string

const (
	SourceEvent   SourceKind = "EVENT"
	SourceMention SourceKind = "MENTION"
)

// Notification is one (source, recipient) pair. Rows are created only by
// notifier dispatch; the pipeline never mutates them afterwards (read
// state is driven by the user).
type Notification struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	RecipientID uuid.UUID
	CreatorID   uuid.UUID
	SourceKind  SourceKind
	SourceID    uuid.UUID
	Title       string
	Body        string
	ReadAt      *time.Time
	BundleID    uuid.NullUUID
	CreatedAt   time.Time
}

func (n Notification) Read() bool {
	return n.ReadAt != nil
}

// BundleStatus is the digest container state machine.
type BundleStatus string

const (
	BundleAccumulating BundleStatus = "ACCUMULATING"
	BundleProcessing   BundleStatus = "PROCESSING"
	BundleDelivered    BundleStatus = "DELIVERED"
)

// Bundle accumulates a user's notifications over the bundling window and
// is mailed as one digest by the scheduled sweep.
type Bundle struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	UserID      uuid.UUID
	Status      BundleStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
}
