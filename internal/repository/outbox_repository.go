package repository

import (
	"context"
	"time"

	"fizzy/internal/domain/outbox"
)

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, tx DBTX, msg *outbox.Message) error {
	execDB := tx
	if execDB == nil {
		execDB = r.db
	}
	_, err := execDB.ExecContext(ctx, `
        INSERT INTO outbox_messages (id, topic, aggregate_id, payload, status, retry_count, error, created_at, updated_at, processed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `,
		msg.ID,
		string(msg.Topic),
		msg.AggregateID,
		msg.Payload,
		string(msg.Status),
		msg.RetryCount,
		msg.Error,
		msg.CreatedAt,
		msg.UpdatedAt,
		msg.ProcessedAt,
	)
	return err
}

func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, topic, aggregate_id, payload, status, retry_count, error, created_at, updated_at, processed_at
        FROM outbox_messages
        WHERE status = $1 AND retry_count < $2
        ORDER BY created_at ASC
        LIMIT $3
    `, string(outbox.StatusPending), 10, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []outbox.Message
	for rows.Next() {
		var (
			m     outbox.Message
			topic string
			state string
		)
		if err := rows.Scan(
			&m.ID,
			&topic,
			&m.AggregateID,
			&m.Payload,
			&state,
			&m.RetryCount,
			&m.Error,
			&m.CreatedAt,
			&m.UpdatedAt,
			&m.ProcessedAt,
		); err != nil {
			return nil, err
		}
		m.Topic = outbox.Topic(topic)
		m.Status = outbox.Status(state)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkProcessing claims a pending message. The status guard makes the
// claim safe when several workers poll the same table.
func (r *outboxRepository) MarkProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE outbox_messages
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4
    `, string(outbox.StatusProcessing), time.Now(), id, string(outbox.StatusPending))
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

func (r *outboxRepository) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_messages
        SET status = $1, processed_at = $2, updated_at = $3
        WHERE id = $4
    `, string(outbox.StatusCompleted), &now, now, id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_messages
        SET status = $1, error = $2, updated_at = $3
        WHERE id = $4
    `, string(outbox.StatusFailed), errorMsg, time.Now(), id)
	return err
}

// Requeue returns a failed attempt to the pending pool with its retry
// count bumped so GetPending keeps skipping messages past the cap.
func (r *outboxRepository) Requeue(ctx context.Context, id string, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE outbox_messages
        SET status = $1, retry_count = retry_count + 1, error = $2, updated_at = $3
        WHERE id = $4
    `, string(outbox.StatusPending), errorMsg, time.Now(), id)
	return err
}
