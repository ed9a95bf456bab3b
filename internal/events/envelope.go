package events

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEnvelope is the wire shape pushed over the live feed when a
// notification is created for a user.
type NotificationEnvelope struct {
	NotificationID uuid.UUID `json:"notification_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	CreatorID      uuid.UUID `json:"creator_id"`
	SourceKind     string    `json:"source_kind"`
	SourceID       uuid.UUID `json:"source_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserChannel is the pub/sub channel carrying one user's live feed.
func UserChannel(userID uuid.UUID) string {
	return "notifications:user:" + userID.String()
}

// UserChannelPattern matches every user feed channel.
const UserChannelPattern = "notifications:user:*"
