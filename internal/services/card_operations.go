package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/card"
	"fizzy/internal/domain/comment"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
	fizzy_errors "fizzy/pkg/errors"
)

// CardOperations are the domain entry points that feed the event
// pipeline. Each operation persists its state change and records the
// event inside one transaction; a recording failure rolls the whole
// operation back and surfaces to the caller.
type CardOperations struct {
	db       *sql.DB
	cards    repository.CardRepository
	comments repository.CommentRepository
	recorder *Recorder
	clock    Clock
}

func NewCardOperations(db *sql.DB, repos *repository.Repositories, recorder *Recorder, clock Clock) *CardOperations {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CardOperations{
		db:       db,
		cards:    repos.Cards,
		comments: repos.Comments,
		recorder: recorder,
		clock:    clock,
	}
}

// Publish moves a draft card to published and records card_published.
func (o *CardOperations) Publish(ctx context.Context, cardID uuid.UUID, actor user.User, mentionedUserIDs []uuid.UUID) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if c.Published() {
			return "", nil, fizzy_errors.ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET published_at = $1, updated_at = $1 WHERE id = $2`, now, c.ID); err != nil {
			return "", nil, err
		}
		c.PublishedAt = sql.NullTime{Time: now, Valid: true}
		return "published", event.Published{MentionedUserIDs: mentionedUserIDs}, nil
	})
}

// Close records card_closed.
func (o *CardOperations) Close(ctx context.Context, cardID uuid.UUID, actor user.User) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if c.ClosedAt.Valid {
			return "", nil, fizzy_errors.ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET closed_at = $1, updated_at = $1 WHERE id = $2`, now, c.ID); err != nil {
			return "", nil, err
		}
		return "closed", event.NoParticulars{}, nil
	})
}

// Reopen records card_reopened.
func (o *CardOperations) Reopen(ctx context.Context, cardID uuid.UUID, actor user.User) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if !c.ClosedAt.Valid {
			return "", nil, fizzy_errors.ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET closed_at = NULL, updated_at = $1 WHERE id = $2`, now, c.ID); err != nil {
			return "", nil, err
		}
		return "reopened", event.NoParticulars{}, nil
	})
}

// Move records card_moved with the old and new columns.
func (o *CardOperations) Move(ctx context.Context, cardID uuid.UUID, actor user.User, toColumn string) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		from := c.Column
		if from == toColumn {
			return "", nil, fizzy_errors.ErrInvalidInput
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET board_column = $1, updated_at = $2 WHERE id = $3`, toColumn, now, c.ID); err != nil {
			return "", nil, err
		}
		return "moved", event.Moved{FromColumn: from, ToColumn: toColumn}, nil
	})
}

// Assign records card_assigned with the newly assigned users.
func (o *CardOperations) Assign(ctx context.Context, cardID uuid.UUID, actor user.User, assigneeIDs []uuid.UUID) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if len(assigneeIDs) == 0 {
			return "", nil, fizzy_errors.ErrInvalidInput
		}
		merged := mergeIDs(c.AssigneeIDs, assigneeIDs)
		if err := updateAssignees(ctx, tx, c.ID, merged, now); err != nil {
			return "", nil, err
		}
		return "assigned", event.Assigned{AssigneeIDs: assigneeIDs}, nil
	})
}

// Unassign records card_unassigned.
func (o *CardOperations) Unassign(ctx context.Context, cardID uuid.UUID, actor user.User, removedIDs []uuid.UUID) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if len(removedIDs) == 0 {
			return "", nil, fizzy_errors.ErrInvalidInput
		}
		remove := make(map[uuid.UUID]bool, len(removedIDs))
		for _, id := range removedIDs {
			remove[id] = true
		}
		var kept []uuid.UUID
		for _, id := range c.AssigneeIDs {
			if !remove[id] {
				kept = append(kept, id)
			}
		}
		if err := updateAssignees(ctx, tx, c.ID, kept, now); err != nil {
			return "", nil, err
		}
		return "unassigned", event.Unassigned{AssigneeIDs: removedIDs}, nil
	})
}

// UpdateDescription records card_description_changed.
func (o *CardOperations) UpdateDescription(ctx context.Context, cardID uuid.UUID, actor user.User, description string) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if description == c.Description {
			return "", nil, fizzy_errors.ErrInvalidInput
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET description = $1, updated_at = $2 WHERE id = $3`, description, now, c.ID); err != nil {
			return "", nil, err
		}
		return "description_changed", event.NoParticulars{}, nil
	})
}

// Rename records card_title_changed with the old and new title.
func (o *CardOperations) Rename(ctx context.Context, cardID uuid.UUID, actor user.User, newTitle string) (*event.Event, error) {
	return o.transition(ctx, cardID, actor, func(tx repository.DBTX, c *card.Card, now time.Time) (string, event.Particulars, error) {
		if newTitle == "" || newTitle == c.Title {
			return "", nil, fizzy_errors.ErrInvalidInput
		}
		old := c.Title
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET title = $1, updated_at = $2 WHERE id = $3`, newTitle, now, c.ID); err != nil {
			return "", nil, err
		}
		return "title_changed", event.TitleChanged{Old: old, New: newTitle}, nil
	})
}

// AddComment persists a comment and records comment_created. Mentions in
// the body become mention rows via the recorder's reaction.
func (o *CardOperations) AddComment(ctx context.Context, cardID uuid.UUID, actor user.User, body string, mentionedUserIDs []uuid.UUID) (*comment.Comment, *event.Event, error) {
	if body == "" {
		return nil, nil, fizzy_errors.ErrInvalidInput
	}
	c, err := o.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}

	now := o.clock.Now()
	cm := &comment.Comment{
		ID:        uuid.New(),
		AccountID: c.AccountID,
		BoardID:   c.BoardID,
		CardID:    c.ID,
		AuthorID:  actor.ID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var recorded *event.Event
	err = repository.WithTx(ctx, o.db, func(tx repository.DBTX) error {
		if err := o.comments.Create(ctx, tx, cm); err != nil {
			return err
		}
		recorded, err = o.recorder.Record(ctx, tx, cm, "created", actor, event.CommentPosted{
			CommentID:        cm.ID,
			MentionedUserIDs: mentionedUserIDs,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return cm, recorded, nil
}

type transitionFunc func(tx repository.DBTX, c *card.Card, now time.Time) (suffix string, particulars event.Particulars, err error)

func (o *CardOperations) transition(ctx context.Context, cardID uuid.UUID, actor user.User, fn transitionFunc) (*event.Event, error) {
	c, err := o.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	var recorded *event.Event
	err = repository.WithTx(ctx, o.db, func(tx repository.DBTX) error {
		suffix, particulars, err := fn(tx, &c, o.clock.Now())
		if err != nil {
			return err
		}
		recorded, err = o.recorder.Record(ctx, tx, &c, suffix, actor, particulars)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

func updateAssignees(ctx context.Context, tx repository.DBTX, cardID uuid.UUID, assigneeIDs []uuid.UUID, now time.Time) error {
	data, err := encodeIDs(assigneeIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE cards SET assignee_ids = $1, updated_at = $2 WHERE id = $3`, data, now, cardID)
	return err
}

func encodeIDs(ids []uuid.UUID) ([]byte, error) {
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode assignee ids: %w", err)
	}
	return data, nil
}

func mergeIDs(existing, added []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(existing)+len(added))
	var merged []uuid.UUID
	for _, id := range append(append([]uuid.UUID{}, existing...), added...) {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}
