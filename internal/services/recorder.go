package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"fizzy/internal/domain/card"
	"fizzy/internal/domain/comment"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/mention"
	"fizzy/internal/domain/outbox"
	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// Recorder appends events and wires their fan-out. Record runs inside the
// domain operation's transaction: the event row, the synchronous reaction
// (system comment, last-active touch, mention rows) and the two outbox
// messages all commit or roll back together. The asynchronous fan-out
// only ever sees committed events.
type Recorder struct {
	events   repository.EventRepository
	outbox   repository.OutboxRepository
	cards    repository.CardRepository
	comments repository.CommentRepository
	mentions repository.MentionRepository
	clock    Clock
	log      *logger.Logger
}

func NewRecorder(repos *repository.Repositories, clock Clock, log *logger.Logger) *Recorder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Recorder{
		events:   repos.Events,
		outbox:   repos.Outbox,
		cards:    repos.Cards,
		comments: repos.Comments,
		mentions: repos.Mentions,
		clock:    clock,
		log:      log,
	}
}

// Record writes one immutable event for the given action, or returns
// (nil, nil) when the eventable's policy suppresses it. On success the
// eventable's synchronous reaction has run and notification/webhook
// dispatch are enqueued as two independent outbox messages.
func (r *Recorder) Record(ctx context.Context, tx repository.DBTX, eventable event.Eventable, suffix string, actor user.User, particulars event.Particulars) (*event.Event, error) {
	if !eventable.ShouldTrackEvent(ctx, suffix, actor) {
		return nil, nil
	}

	kind, eventableID := eventable.EventableRef()
	e := &event.Event{
		ID:            uuid.New(),
		AccountID:     eventable.EventAccountID(),
		BoardID:       eventable.EventBoardID(),
		Action:        event.BuildAction(eventable.EventablePrefix(), suffix),
		CreatorID:     actor.ID,
		EventableKind: kind,
		EventableID:   eventableID,
		Particulars:   particulars,
		CreatedAt:     r.clock.Now(),
	}

	if err := r.events.Create(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := r.react(ctx, tx, e, eventable, actor); err != nil {
		// The reaction shares the event's transaction; its failure rolls
		// back the whole operation.
		return nil, fmt.Errorf("event reaction: %w", err)
	}

	for _, topic := range []outbox.Topic{outbox.TopicNotifications, outbox.TopicWebhooks} {
		if err := r.enqueue(ctx, tx, topic, e); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", topic, err)
		}
	}

	return e, nil
}

// react runs the eventable's synchronous post-creation hook. The set of
// eventable variants is closed, so the dispatch lives here rather than on
// the domain types, which keeps them free of persistence concerns.
func (r *Recorder) react(ctx context.Context, tx repository.DBTX, e *event.Event, eventable event.Eventable, actor user.User) error {
	switch source := eventable.(type) {
	case *card.Card:
		return r.reactToCard(ctx, tx, e, source, actor)
	case *comment.Comment:
		return r.reactToComment(ctx, tx, e, source)
	}
	return nil
}

func (r *Recorder) reactToCard(ctx context.Context, tx repository.DBTX, e *event.Event, c *card.Card, actor user.User) error {
	if body := systemCommentBody(e, actor); body != "" {
		sc := &comment.Comment{
			ID:        uuid.New(),
			AccountID: c.AccountID,
			BoardID:   c.BoardID,
			CardID:    c.ID,
			AuthorID:  actor.ID,
			Body:      body,
			System:    true,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.CreatedAt,
		}
		if err := r.comments.Create(ctx, tx, sc); err != nil {
			return err
		}
	}

	// The publish transition leaves the freshly-created stamp alone;
	// everything else counts as activity.
	if e.Action != event.ActionCardPublished {
		if err := r.cards.TouchLastActive(ctx, tx, c.ID, e.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) reactToComment(ctx context.Context, tx repository.DBTX, e *event.Event, c *comment.Comment) error {
	posted, ok := e.Particulars.(event.CommentPosted)
	if !ok {
		return nil
	}
	for _, mentionedID := range posted.MentionedUserIDs {
		m := &mention.Mention{
			ID:              uuid.New(),
			AccountID:       c.AccountID,
			BoardID:         c.BoardID,
			CardID:          c.CardID,
			CommentID:       c.ID,
			MentionerID:     c.AuthorID,
			MentionedUserID: mentionedID,
			CreatedAt:       e.CreatedAt,
		}
		if err := r.mentions.Create(ctx, tx, m); err != nil {
			return err
		}
	}
	if err := r.cards.TouchLastActive(ctx, tx, c.CardID, e.CreatedAt); err != nil {
		return err
	}
	return nil
}

type fanoutPayload struct {
	EventID uuid.UUID `json:"event_id"`
}

func (r *Recorder) enqueue(ctx context.Context, tx repository.DBTX, topic outbox.Topic, e *event.Event) error {
	payload, err := json.Marshal(fanoutPayload{EventID: e.ID})
	if err != nil {
		return err
	}
	now := r.clock.Now()
	return r.outbox.Create(ctx, tx, &outbox.Message{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: e.ID,
		Payload:     payload,
		Status:      outbox.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
