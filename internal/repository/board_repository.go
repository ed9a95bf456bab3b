package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"fizzy/internal/domain/board"
	fizzy_errors "fizzy/pkg/errors"
)

type boardRepository struct {
	db DBTX
}

func NewBoardRepository(db DBTX) BoardRepository {
	return &boardRepository{db: db}
}

func (r *boardRepository) GetByID(ctx context.Context, id uuid.UUID) (board.Board, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, account_id, name, created_at, updated_at
        FROM boards
        WHERE id = $1
    `, id)
	var b board.Board
	err := row.Scan(&b.ID, &b.AccountID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Board{}, fizzy_errors.ErrNotFound
	}
	return b, err
}
