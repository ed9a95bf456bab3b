package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	fizzy_errors "fizzy/pkg/errors"
)

type eventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, account_id, board_id, action, creator_id, eventable_kind, eventable_id, particulars, created_at`

// Create appends one immutable event row. It accepts an explicit tx so
// the event commits together with the domain change that produced it.
func (r *eventRepository) Create(ctx context.Context, tx DBTX, e *event.Event) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	particulars, err := event.MarshalParticulars(e.Particulars)
	if err != nil {
		return err
	}
	_, err = execDB.ExecContext(ctx, `
        INSERT INTO events (`+eventColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `,
		e.ID,
		e.AccountID,
		e.BoardID,
		string(e.Action),
		e.CreatorID,
		string(e.EventableKind),
		e.EventableID,
		particulars,
		e.CreatedAt,
	)
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (event.Event, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+eventColumns+`
        FROM events
        WHERE id = $1
    `, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fizzy_errors.ErrNotFound
	}
	return e, err
}

// ListTimeline returns events on the given boards within [from, to),
// restricted to the action allow-list and optionally to one actor.
// Ordered chronologically ascending with eventable id as the descending
// tie-break for equal timestamps.
func (r *eventRepository) ListTimeline(ctx context.Context, boardIDs []uuid.UUID, from, to time.Time, actions []string, actorID uuid.NullUUID) ([]event.Event, error) {
	if len(boardIDs) == 0 || len(actions) == 0 {
		return nil, nil
	}

	args := []interface{}{from, to}
	query := `
        SELECT ` + eventColumns + `
        FROM events
        WHERE created_at >= $1 AND created_at < $2`

	query += fmt.Sprintf(" AND board_id IN (%s)", buildPlaceholders(len(args)+1, len(boardIDs)))
	for _, id := range boardIDs {
		args = append(args, id)
	}

	query += fmt.Sprintf(" AND action IN (%s)", buildPlaceholders(len(args)+1, len(actions)))
	for _, a := range actions {
		args = append(args, a)
	}

	if actorID.Valid {
		args = append(args, actorID.UUID)
		query += fmt.Sprintf(" AND creator_id = $%d", len(args))
	}

	query += " ORDER BY created_at ASC, eventable_id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		e           event.Event
		action      string
		kind        string
		particulars []byte
	)
	if err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.BoardID,
		&action,
		&e.CreatorID,
		&kind,
		&e.EventableID,
		&particulars,
		&e.CreatedAt,
	); err != nil {
		return event.Event{}, err
	}
	e.Action = event.Action(action)
	e.EventableKind = event.EventableKind(kind)
	p, err := event.UnmarshalParticulars(particulars)
	if err != nil {
		return event.Event{}, err
	}
	e.Particulars = p
	return e, nil
}
