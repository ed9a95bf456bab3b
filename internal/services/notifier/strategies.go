package notifier

import (
	"context"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
)

// strategy resolves the candidate recipients for one event. Actor
// exclusion, de-duplication and ordering are applied afterwards by the
// dispatcher, so strategies only express who is relevant.
type strategy interface {
	recipients(ctx context.Context, e *event.Event) ([]user.User, error)
}

// assignedStrategy notifies the newly assigned users.
type assignedStrategy struct {
	users repository.UserRepository
}

func (s assignedStrategy) recipients(ctx context.Context, e *event.Event) ([]user.User, error) {
	assigned, ok := e.Particulars.(event.Assigned)
	if !ok {
		return nil, nil
	}
	return s.users.GetByIDs(ctx, assigned.AssigneeIDs)
}

// publishedStrategy notifies board watchers minus anyone mentioned in the
// card (mentions get their own, more specific notification), plus the
// card's assignees.
type publishedStrategy struct {
	users repository.UserRepository
	cards repository.CardRepository
}

func (s publishedStrategy) recipients(ctx context.Context, e *event.Event) ([]user.User, error) {
	watchers, err := s.users.BoardWatchers(ctx, e.BoardID)
	if err != nil {
		return nil, err
	}

	mentioned := make(map[uuid.UUID]bool)
	if published, ok := e.Particulars.(event.Published); ok {
		for _, id := range published.MentionedUserIDs {
			mentioned[id] = true
		}
	}

	var candidates []user.User
	for _, w := range watchers {
		if !mentioned[w.ID] {
			candidates = append(candidates, w)
		}
	}

	c, err := s.cards.GetByID(ctx, e.EventableID)
	if err != nil {
		// The card may already be gone; watchers alone still get told.
		return candidates, nil
	}
	assignees, err := s.users.GetByIDs(ctx, c.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	return append(candidates, assignees...), nil
}

// commentCreatedStrategy notifies the card's watchers minus the users
// mentioned in that comment.
type commentCreatedStrategy struct {
	users    repository.UserRepository
	comments repository.CommentRepository
}

func (s commentCreatedStrategy) recipients(ctx context.Context, e *event.Event) ([]user.User, error) {
	posted, _ := e.Particulars.(event.CommentPosted)
	mentioned := make(map[uuid.UUID]bool, len(posted.MentionedUserIDs))
	for _, id := range posted.MentionedUserIDs {
		mentioned[id] = true
	}

	c, err := s.comments.GetByID(ctx, e.EventableID)
	if err != nil {
		return nil, err
	}
	watchers, err := s.users.CardWatchers(ctx, c.CardID)
	if err != nil {
		return nil, err
	}

	var candidates []user.User
	for _, w := range watchers {
		if !mentioned[w.ID] {
			candidates = append(candidates, w)
		}
	}
	return candidates, nil
}

// boardWatchersStrategy is the default: everyone watching the board.
type boardWatchersStrategy struct {
	users repository.UserRepository
}

func (s boardWatchersStrategy) recipients(ctx context.Context, e *event.Event) ([]user.User, error) {
	return s.users.BoardWatchers(ctx, e.BoardID)
}
