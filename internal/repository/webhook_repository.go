package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/webhook"
	fizzy_errors "fizzy/pkg/errors"
)

type webhookRepository struct {
	db DBTX
}

func NewWebhookRepository(db DBTX) WebhookRepository {
	return &webhookRepository{db: db}
}

const webhookColumns = `id, account_id, board_id, url, secret, actions, format, active, created_at, updated_at`

func (r *webhookRepository) Create(ctx context.Context, w *webhook.Webhook) error {
	actions, err := json.Marshal(w.Actions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO webhooks (`+webhookColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `,
		w.ID,
		w.AccountID,
		w.BoardID,
		w.URL,
		w.Secret,
		actions,
		string(w.Format),
		w.Active,
		w.CreatedAt,
		w.UpdatedAt,
	)
	return err
}

func (r *webhookRepository) Update(ctx context.Context, w webhook.Webhook) error {
	actions, err := json.Marshal(w.Actions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        UPDATE webhooks
        SET url = $1, actions = $2, format = $3, active = $4, updated_at = $5
        WHERE id = $6
    `, w.URL, actions, string(w.Format), w.Active, time.Now(), w.ID)
	return err
}

func (r *webhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	return err
}

func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (webhook.Webhook, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+webhookColumns+`
        FROM webhooks
        WHERE id = $1
    `, id)
	w, err := scanWebhook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Webhook{}, fizzy_errors.ErrNotFound
	}
	return w, err
}

func (r *webhookRepository) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]webhook.Webhook, error) {
	return r.list(ctx, `
        SELECT `+webhookColumns+`
        FROM webhooks
        WHERE board_id = $1
        ORDER BY created_at ASC
    `, boardID)
}

// ListActiveForBoard returns dispatch candidates; inactive webhooks never
// trigger.
func (r *webhookRepository) ListActiveForBoard(ctx context.Context, boardID uuid.UUID) ([]webhook.Webhook, error) {
	return r.list(ctx, `
        SELECT `+webhookColumns+`
        FROM webhooks
        WHERE board_id = $1 AND active = TRUE
        ORDER BY created_at ASC
    `, boardID)
}

func (r *webhookRepository) list(ctx context.Context, query string, args ...interface{}) ([]webhook.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []webhook.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (r *webhookRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE webhooks
        SET active = $1, updated_at = $2
        WHERE id = $3
    `, active, time.Now(), id)
	return err
}

func scanWebhook(row rowScanner) (webhook.Webhook, error) {
	var (
		w       webhook.Webhook
		actions []byte
		format  string
	)
	if err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.BoardID,
		&w.URL,
		&w.Secret,
		&actions,
		&format,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return webhook.Webhook{}, err
	}
	w.Format = webhook.PayloadFormat(format)
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &w.Actions); err != nil {
			return webhook.Webhook{}, err
		}
	}
	return w, nil
}

type deliveryRepository struct {
	db DBTX
}

func NewDeliveryRepository(db DBTX) DeliveryRepository {
	return &deliveryRepository{db: db}
}

const deliveryColumns = `id, webhook_id, event_id, state, attempts, request_headers, request_body, response_status, response_headers, response_body, next_attempt_at, completed_at, created_at, updated_at`

// Create inserts one delivery per (webhook, event) pair. The unique index
// on (webhook_id, event_id) makes repeated dispatch of the same event a
// no-op; the bool reports whether a row was actually created.
func (r *deliveryRepository) Create(ctx context.Context, d *webhook.Delivery) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO webhook_deliveries (`+deliveryColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (webhook_id, event_id) DO NOTHING
    `,
		d.ID,
		d.WebhookID,
		d.EventID,
		string(d.State),
		d.Attempts,
		d.RequestHeaders,
		d.RequestBody,
		d.ResponseStatus,
		d.ResponseHeaders,
		d.ResponseBody,
		d.NextAttemptAt,
		d.CompletedAt,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *deliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (webhook.Delivery, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+deliveryColumns+`
        FROM webhook_deliveries
        WHERE id = $1
    `, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Delivery{}, fizzy_errors.ErrNotFound
	}
	return d, err
}

func (r *deliveryRepository) ListForWebhook(ctx context.Context, webhookID uuid.UUID, limit int) ([]webhook.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+deliveryColumns+`
        FROM webhook_deliveries
        WHERE webhook_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []webhook.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// deliveryReclaimAfter is how long an in_progress row may sit untouched
// before it is treated as abandoned by a crashed worker and reclaimed.
const deliveryReclaimAfter = 10 * time.Minute

// ClaimDue atomically moves due pending/errored deliveries to in_progress
// and returns them. The CTE update is the claim; two workers can never
// pick up the same row. In-progress rows older than the reclaim age are
// picked up again so a worker crash cannot strand a delivery.
func (r *deliveryRepository) ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]webhook.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
        WITH due AS (
            SELECT id FROM webhook_deliveries
            WHERE attempts < $4
              AND (
                  (state IN ($1, $2) AND next_attempt_at <= $3)
                  OR (state = $6 AND updated_at <= $7)
              )
            ORDER BY next_attempt_at ASC
            LIMIT $5
            FOR UPDATE SKIP LOCKED
        )
        UPDATE webhook_deliveries d
        SET state = $6, attempts = d.attempts + 1, updated_at = $3
        FROM due
        WHERE d.id = due.id
        RETURNING `+prefixColumns("d", deliveryColumns)+`
    `,
		string(webhook.DeliveryPending),
		string(webhook.DeliveryErrored),
		now,
		maxAttempts,
		limit,
		string(webhook.DeliveryInProgress),
		now.Add(-deliveryReclaimAfter),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []webhook.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (r *deliveryRepository) MarkCompleted(ctx context.Context, d webhook.Delivery) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
        UPDATE webhook_deliveries
        SET state = $1, request_headers = $2, request_body = $3,
            response_status = $4, response_headers = $5, response_body = $6,
            completed_at = $7, updated_at = $8
        WHERE id = $9
    `,
		string(webhook.DeliveryCompleted),
		d.RequestHeaders,
		d.RequestBody,
		d.ResponseStatus,
		d.ResponseHeaders,
		d.ResponseBody,
		&now,
		now,
		d.ID,
	)
	return err
}

func (r *deliveryRepository) MarkErrored(ctx context.Context, d webhook.Delivery, nextAttemptAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE webhook_deliveries
        SET state = $1, request_headers = $2, request_body = $3,
            response_status = $4, response_headers = $5, response_body = $6,
            next_attempt_at = $7, updated_at = $8
        WHERE id = $9
    `,
		string(webhook.DeliveryErrored),
		d.RequestHeaders,
		d.RequestBody,
		d.ResponseStatus,
		d.ResponseHeaders,
		d.ResponseBody,
		nextAttemptAt,
		time.Now(),
		d.ID,
	)
	return err
}

func scanDelivery(row rowScanner) (webhook.Delivery, error) {
	var (
		d     webhook.Delivery
		state string
	)
	if err := row.Scan(
		&d.ID,
		&d.WebhookID,
		&d.EventID,
		&state,
		&d.Attempts,
		&d.RequestHeaders,
		&d.RequestBody,
		&d.ResponseStatus,
		&d.ResponseHeaders,
		&d.ResponseBody,
		&d.NextAttemptAt,
		&d.CompletedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return webhook.Delivery{}, err
	}
	d.State = webhook.DeliveryState(state)
	return d, nil
}

type delinquencyRepository struct {
	db DBTX
}

func NewDelinquencyRepository(db DBTX) DelinquencyRepository {
	return &delinquencyRepository{db: db}
}

// RecordFailure applies an atomic increment-and-stamp and returns the
// streak as this attempt sees it. Concurrent deliveries of the same
// webhook serialize on the row, so the counter never loses updates.
func (r *delinquencyRepository) RecordFailure(ctx context.Context, webhookID uuid.UUID, now time.Time) (webhook.DelinquencyTracker, error) {
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO webhook_delinquency_trackers (webhook_id, consecutive_failures_count, first_failure_at, updated_at)
        VALUES ($1, 1, $2, $2)
        ON CONFLICT (webhook_id) DO UPDATE
        SET consecutive_failures_count = webhook_delinquency_trackers.consecutive_failures_count + 1,
            first_failure_at = COALESCE(webhook_delinquency_trackers.first_failure_at, EXCLUDED.first_failure_at),
            updated_at = EXCLUDED.updated_at
        RETURNING webhook_id, consecutive_failures_count, first_failure_at, updated_at
    `, webhookID, now)

	var t webhook.DelinquencyTracker
	if err := row.Scan(&t.WebhookID, &t.ConsecutiveFailuresCount, &t.FirstFailureAt, &t.UpdatedAt); err != nil {
		return webhook.DelinquencyTracker{}, err
	}
	return t, nil
}

// ResetStreak zeroes the counter and clears the first-failure stamp.
func (r *delinquencyRepository) ResetStreak(ctx context.Context, webhookID uuid.UUID, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO webhook_delinquency_trackers (webhook_id, consecutive_failures_count, first_failure_at, updated_at)
        VALUES ($1, 0, NULL, $2)
        ON CONFLICT (webhook_id) DO UPDATE
        SET consecutive_failures_count = 0,
            first_failure_at = NULL,
            updated_at = EXCLUDED.updated_at
    `, webhookID, now)
	return err
}
