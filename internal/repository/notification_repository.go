package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/notification"
	fizzy_errors "fizzy/pkg/errors"
)

type notificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, account_id, recipient_id, creator_id, source_kind, source_id, title, body, read_at, bundle_id, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO notifications (`+notificationColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `,
		n.ID,
		n.AccountID,
		n.RecipientID,
		n.CreatorID,
		string(n.SourceKind),
		n.SourceID,
		n.Title,
		n.Body,
		n.ReadAt,
		n.BundleID,
		n.CreatedAt,
	)
	return err
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+notificationColumns+`
        FROM notifications
        WHERE id = $1
    `, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notification.Notification{}, fizzy_errors.ErrNotFound
	}
	return n, err
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]notification.Notification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE recipient_id = $1`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE notifications
        SET read_at = $1
        WHERE id = $2 AND recipient_id = $3 AND read_at IS NULL
    `, time.Now(), id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fizzy_errors.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE notifications
        SET read_at = $1
        WHERE recipient_id = $2 AND read_at IS NULL
    `, time.Now(), userID)
	return err
}

// ListUnreadInBundle powers the "deliverable?" check: a digest only goes
// out when the bundle still holds live, unread notifications at sweep
// time.
func (r *notificationRepository) ListUnreadInBundle(ctx context.Context, bundleID uuid.UUID) ([]notification.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+notificationColumns+`
        FROM notifications
        WHERE bundle_id = $1 AND read_at IS NULL
        ORDER BY created_at ASC
    `, bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func scanNotification(row rowScanner) (notification.Notification, error) {
	var (
		n    notification.Notification
		kind string
	)
	if err := row.Scan(
		&n.ID,
		&n.AccountID,
		&n.RecipientID,
		&n.CreatorID,
		&kind,
		&n.SourceID,
		&n.Title,
		&n.Body,
		&n.ReadAt,
		&n.BundleID,
		&n.CreatedAt,
	); err != nil {
		return notification.Notification{}, err
	}
	n.SourceKind = notification.SourceKind(kind)
	return n, nil
}

type bundleRepository struct {
	db DBTX
}

func NewBundleRepository(db DBTX) BundleRepository {
	return &bundleRepository{db: db}
}

const bundleColumns = `id, account_id, user_id, status, created_at, updated_at, delivered_at`

// FindOrCreateAccumulating returns the user's open bundle, creating one
// when the current window has none. The partial unique index on
// (user_id) WHERE status = 'ACCUMULATING' makes concurrent creators
// collapse onto one row.
func (r *bundleRepository) FindOrCreateAccumulating(ctx context.Context, accountID, userID uuid.UUID) (notification.Bundle, error) {
	for i := 0; i < 2; i++ {
		b, err := r.findAccumulating(ctx, userID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return notification.Bundle{}, err
		}

		now := time.Now()
		b = notification.Bundle{
			ID:        uuid.New(),
			AccountID: accountID,
			UserID:    userID,
			Status:    notification.BundleAccumulating,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err = r.db.ExecContext(ctx, `
            INSERT INTO notification_bundles (`+bundleColumns+`)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
        `, b.ID, b.AccountID, b.UserID, string(b.Status), b.CreatedAt, b.UpdatedAt, b.DeliveredAt)
		if err == nil {
			return b, nil
		}
		if !isUniqueViolation(err) {
			return notification.Bundle{}, err
		}
		// Lost the race; loop once more to pick up the winner's row.
	}
	return notification.Bundle{}, fizzy_errors.ErrConflict
}

func (r *bundleRepository) findAccumulating(ctx context.Context, userID uuid.UUID) (notification.Bundle, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+bundleColumns+`
        FROM notification_bundles
        WHERE user_id = $1 AND status = $2
    `, userID, string(notification.BundleAccumulating))
	return scanBundle(row)
}

func (r *bundleRepository) ListAccumulating(ctx context.Context, limit int) ([]notification.Bundle, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+bundleColumns+`
        FROM notification_bundles
        WHERE status = $1
        ORDER BY created_at ASC
        LIMIT $2
    `, string(notification.BundleAccumulating), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bundles []notification.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, rows.Err()
}

// MarkProcessing claims a bundle for one sweep run.
func (r *bundleRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE notification_bundles
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4
    `, string(notification.BundleProcessing), time.Now(), id, string(notification.BundleAccumulating))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrClaimLost
	}
	return nil
}

func (r *bundleRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
        UPDATE notification_bundles
        SET status = $1, delivered_at = $2, updated_at = $3
        WHERE id = $4
    `, string(notification.BundleDelivered), &now, now, id)
	return err
}

// MarkAccumulating releases a claimed bundle after a failed send so the
// next sweep picks it up again.
func (r *bundleRepository) MarkAccumulating(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE notification_bundles
        SET status = $1, updated_at = $2
        WHERE id = $3
    `, string(notification.BundleAccumulating), time.Now(), id)
	return err
}

func scanBundle(row rowScanner) (notification.Bundle, error) {
	var (
		b      notification.Bundle
		status string
	)
	if err := row.Scan(
		&b.ID,
		&b.AccountID,
		&b.UserID,
		&status,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeliveredAt,
	); err != nil {
		return notification.Bundle{}, err
	}
	b.Status = notification.BundleStatus(status)
	return b, nil
}
