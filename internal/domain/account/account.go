package account

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a tenant account
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// Account represents the accounts table. Every board, user, event and
// webhook belongs to exactly one account; a cancelled account stops all
// outbound traffic (webhooks, web push) for its boards.
type Account struct {
	ID        uuid.UUID
	Name      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Account) Cancelled() bool {
	return a.Status == StatusCancelled
}
