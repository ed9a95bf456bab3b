package board

import (
	"time"

	"github.com/google/uuid"
)

// Board represents the boards table. Boards are the scoping key for
// events, webhooks and watcher sets.
type Board struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
