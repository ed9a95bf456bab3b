package comment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/user"
)

// Comment represents the comments table. System comments are synthesized
// by the pipeline itself to narrate card transitions; they never produce
// events of their own.
type Comment struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	BoardID   uuid.UUID
	CardID    uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	System    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Comment) EventablePrefix() string { return "comment" }

func (c *Comment) EventableRef() (event.EventableKind, uuid.UUID) {
	return event.EventableComment, c.ID
}

func (c *Comment) EventAccountID() uuid.UUID { return c.AccountID }

func (c *Comment) EventBoardID() uuid.UUID { return c.BoardID }

// ShouldTrackEvent suppresses system-authored comments; recording those
// would loop the pipeline back into itself.
func (c *Comment) ShouldTrackEvent(_ context.Context, _ string, actor user.User) bool {
	return !c.System && !actor.System()
}
