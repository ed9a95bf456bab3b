package card

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/user"
)

// Card represents the cards table. Only the state the event pipeline
// depends on is modeled here; the rest of the card lives in the main
// application.
type Card struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	BoardID      uuid.UUID
	Title        string
	Description  string
	Column       string
	AssigneeIDs  []uuid.UUID
	PublishedAt  sql.NullTime
	ClosedAt     sql.NullTime
	LastActiveAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Card) Published() bool {
	return c.PublishedAt.Valid
}

func (c *Card) EventablePrefix() string { return "card" }

func (c *Card) EventableRef() (event.EventableKind, uuid.UUID) {
	return event.EventableCard, c.ID
}

func (c *Card) EventAccountID() uuid.UUID { return c.AccountID }

func (c *Card) EventBoardID() uuid.UUID { return c.BoardID }

// ShouldTrackEvent suppresses events for drafts: until a card is
// published nothing it does is worth recording, except the publish
// transition itself.
func (c *Card) ShouldTrackEvent(_ context.Context, suffix string, _ user.User) bool {
	if suffix == "published" {
		return true
	}
	return c.Published()
}
