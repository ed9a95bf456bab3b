package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fizzy/internal/domain/account"
	"fizzy/internal/domain/user"
	fizzy_errors "fizzy/pkg/errors"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, account_id, email, display_name, kind, active, time_zone, email_preference, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1
    `, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, fizzy_errors.ErrNotFound
	}
	return u, err
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
        SELECT %s
        FROM users
        WHERE id IN (%s)
        ORDER BY id ASC
    `, userColumns, buildPlaceholders(1, len(ids)))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx, query, args...)
}

// BoardWatchers returns the users watching a board. Watcher membership is
// maintained by the access-control layer; this is an opaque set-valued
// query as far as dispatch is concerned.
func (r *userRepository) BoardWatchers(ctx context.Context, boardID uuid.UUID) ([]user.User, error) {
	return r.list(ctx, `
        SELECT `+prefixColumns("u", userColumns)+`
        FROM users u
        JOIN board_watchers bw ON bw.user_id = u.id
        WHERE bw.board_id = $1
        ORDER BY u.id ASC
    `, boardID)
}

func (r *userRepository) CardWatchers(ctx context.Context, cardID uuid.UUID) ([]user.User, error) {
	return r.list(ctx, `
        SELECT `+prefixColumns("u", userColumns)+`
        FROM users u
        JOIN card_watchers cw ON cw.user_id = u.id
        WHERE cw.card_id = $1
        ORDER BY u.id ASC
    `, cardID)
}

// AccessibleBoardIDs returns the boards a user may see, for timeline
// filtering.
func (r *userRepository) AccessibleBoardIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT board_id
        FROM board_watchers
        WHERE user_id = $1
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepository) list(ctx context.Context, query string, args ...interface{}) ([]user.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u    user.User
		kind string
		pref string
	)
	if err := row.Scan(
		&u.ID,
		&u.AccountID,
		&u.Email,
		&u.DisplayName,
		&kind,
		&u.Active,
		&u.TimeZone,
		&pref,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return user.User{}, err
	}
	u.Kind = user.Kind(kind)
	u.EmailPreference = user.EmailPreference(pref)
	return u, nil
}

type pushSubscriptionRepository struct {
	db DBTX
}

func NewPushSubscriptionRepository(db DBTX) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

func (r *pushSubscriptionRepository) Create(ctx context.Context, s *user.PushSubscription) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id, endpoint) DO NOTHING
    `, s.ID, s.UserID, s.Endpoint, s.P256DH, s.Auth, s.CreatedAt)
	return err
}

func (r *pushSubscriptionRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]user.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, endpoint, p256dh, auth, created_at
        FROM push_subscriptions
        WHERE user_id = $1
        ORDER BY created_at ASC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []user.PushSubscription
	for rows.Next() {
		var s user.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256DH, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Delete removes a subscription, e.g. after the push provider reports it
// expired or invalid.
func (r *pushSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	return err
}

type accountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (account.Account, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, status, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `, id)
	var (
		a      account.Account
		status string
	)
	if err := row.Scan(&a.ID, &a.Name, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, fizzy_errors.ErrNotFound
		}
		return account.Account{}, err
	}
	a.Status = account.Status(status)
	return a, nil
}
