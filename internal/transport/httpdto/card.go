package httpdto

import (
	"time"

	"fizzy/internal/domain/event"
)

// PublishCardRequest is used for POST /cards/:id/publish
type PublishCardRequest struct {
	MentionedUserIDs []string `json:"mentioned_user_ids,omitempty"`
}

// MoveCardRequest is used for POST /cards/:id/move
type MoveCardRequest struct {
	ToColumn string `json:"to_column" binding:"required"`
}

// AssignCardRequest is used for POST /cards/:id/assign and /unassign
type AssignCardRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}

// RenameCardRequest is used for POST /cards/:id/rename
type RenameCardRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateDescriptionRequest is used for POST /cards/:id/description
type UpdateDescriptionRequest struct {
	Description string `json:"description"`
}

// CreateCommentRequest is used for POST /cards/:id/comments
type CreateCommentRequest struct {
	Body             string   `json:"body" binding:"required"`
	MentionedUserIDs []string `json:"mentioned_user_ids,omitempty"`
}

// EventResponse echoes the event an operation recorded.
type EventResponse struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	BoardID       string `json:"board_id"`
	EventableKind string `json:"eventable_kind"`
	EventableID   string `json:"eventable_id"`
	CreatorID     string `json:"creator_id"`
	CreatedAt     string `json:"created_at"`
}

func NewEventResponse(e *event.Event) EventResponse {
	return EventResponse{
		ID:            e.ID.String(),
		Action:        string(e.Action),
		BoardID:       e.BoardID.String(),
		EventableKind: string(e.EventableKind),
		EventableID:   e.EventableID.String(),
		CreatorID:     e.CreatorID.String(),
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CommentResponse is returned after POST /cards/:id/comments
type CommentResponse struct {
	ID        string `json:"id"`
	CardID    string `json:"card_id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}
