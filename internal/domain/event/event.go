package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/user"
)

// EventableKind identifies the variant of the eventable union.
type EventableKind string

const (
	EventableCard    EventableKind = "CARD"
	EventableComment EventableKind = "COMMENT"
)

// Event is an immutable record of "this actor did this action to this
// entity". Creation is the only mutation; rows are never updated and
// only removed by cascade when the parent entity is destroyed.
type Event struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	BoardID       uuid.UUID
	Action        Action
	CreatorID     uuid.UUID
	EventableKind EventableKind
	EventableID   uuid.UUID
	Particulars   Particulars
	CreatedAt     time.Time
}

// Eventable is the capability shared by domain types that originate
// Events. Implementations are a closed set (Card, Comment); reactions to
// a recorded event live in the recorder service so domain types stay
// free of persistence concerns.
type Eventable interface {
	// EventablePrefix namespaces action suffixes ("card", "comment").
	EventablePrefix() string
	EventableRef() (EventableKind, uuid.UUID)
	// EventAccountID is the owning tenant.
	EventAccountID() uuid.UUID
	// EventBoardID is the board used for event scoping.
	EventBoardID() uuid.UUID
	// ShouldTrackEvent decides whether this action by this actor should
	// produce an Event at all.
	ShouldTrackEvent(ctx context.Context, suffix string, actor user.User) bool
}
