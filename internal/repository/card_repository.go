package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/card"
	"fizzy/internal/domain/comment"
	"fizzy/internal/domain/mention"
	fizzy_errors "fizzy/pkg/errors"
)

type cardRepository struct {
	db DBTX
}

func NewCardRepository(db DBTX) CardRepository {
	return &cardRepository{db: db}
}

const cardColumns = `id, account_id, board_id, title, description, board_column, assignee_ids, published_at, closed_at, last_active_at, created_at, updated_at`

func (r *cardRepository) GetByID(ctx context.Context, id uuid.UUID) (card.Card, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+cardColumns+`
        FROM cards
        WHERE id = $1
    `, id)
	var (
		c           card.Card
		assigneeIDs []byte
	)
	err := row.Scan(
		&c.ID,
		&c.AccountID,
		&c.BoardID,
		&c.Title,
		&c.Description,
		&c.Column,
		&assigneeIDs,
		&c.PublishedAt,
		&c.ClosedAt,
		&c.LastActiveAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return card.Card{}, fizzy_errors.ErrNotFound
	}
	if err != nil {
		return card.Card{}, err
	}
	if len(assigneeIDs) > 0 {
		if err := json.Unmarshal(assigneeIDs, &c.AssigneeIDs); err != nil {
			return card.Card{}, err
		}
	}
	return c, nil
}

// TouchLastActive bumps the card's freshness stamp inside the caller's
// transaction.
func (r *cardRepository) TouchLastActive(ctx context.Context, tx DBTX, cardID uuid.UUID, at time.Time) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        UPDATE cards
        SET last_active_at = $1, updated_at = $1
        WHERE id = $2
    `, at, cardID)
	return err
}

type commentRepository struct {
	db DBTX
}

func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, tx DBTX, c *comment.Comment) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO comments (id, account_id, board_id, card_id, author_id, body, system, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, c.ID, c.AccountID, c.BoardID, c.CardID, c.AuthorID, c.Body, c.System, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (comment.Comment, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, account_id, board_id, card_id, author_id, body, system, created_at, updated_at
        FROM comments
        WHERE id = $1
    `, id)
	var c comment.Comment
	err := row.Scan(&c.ID, &c.AccountID, &c.BoardID, &c.CardID, &c.AuthorID, &c.Body, &c.System, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return comment.Comment{}, fizzy_errors.ErrNotFound
	}
	return c, err
}

type mentionRepository struct {
	db DBTX
}

func NewMentionRepository(db DBTX) MentionRepository {
	return &mentionRepository{db: db}
}

func (r *mentionRepository) Create(ctx context.Context, tx DBTX, m *mention.Mention) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO mentions (id, account_id, board_id, card_id, comment_id, mentioner_id, mentioned_user_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (comment_id, mentioned_user_id) DO NOTHING
    `, m.ID, m.AccountID, m.BoardID, m.CardID, m.CommentID, m.MentionerID, m.MentionedUserID, m.CreatedAt)
	return err
}

func (r *mentionRepository) ListForComment(ctx context.Context, commentID uuid.UUID) ([]mention.Mention, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, account_id, board_id, card_id, comment_id, mentioner_id, mentioned_user_id, created_at
        FROM mentions
        WHERE comment_id = $1
        ORDER BY created_at ASC
    `, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []mention.Mention
	for rows.Next() {
		var m mention.Mention
		if err := rows.Scan(&m.ID, &m.AccountID, &m.BoardID, &m.CardID, &m.CommentID, &m.MentionerID, &m.MentionedUserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}
