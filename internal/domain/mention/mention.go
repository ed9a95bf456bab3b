package mention

import (
	"time"

	"github.com/google/uuid"
)

// Mention records one "@user" reference inside a comment. It is the
// second notification source next to Event.
type Mention struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	BoardID         uuid.UUID
	CardID          uuid.UUID
	CommentID       uuid.UUID
	MentionerID     uuid.UUID
	MentionedUserID uuid.UUID
	CreatedAt       time.Time
}
