package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/account"
	"fizzy/internal/domain/board"
	"fizzy/internal/domain/card"
	"fizzy/internal/domain/comment"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/mention"
	"fizzy/internal/domain/notification"
	"fizzy/internal/domain/outbox"
	"fizzy/internal/domain/user"
	"fizzy/internal/domain/webhook"
)

// ErrClaimLost signals that another worker claimed the row first.
var ErrClaimLost = errors.New("already claimed")

// ErrAlreadyClaimed reports whether err came from losing a claim race.
func ErrAlreadyClaimed(err error) bool {
	return errors.Is(err, ErrClaimLost)
}

type EventRepository interface {
	Create(ctx context.Context, tx DBTX, e *event.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (event.Event, error)
	ListTimeline(ctx context.Context, boardIDs []uuid.UUID, from, to time.Time, actions []string, actorID uuid.NullUUID) ([]event.Event, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, tx DBTX, msg *outbox.Message) error
	GetPending(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
	Requeue(ctx context.Context, id string, errorMsg string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	ListUnreadInBundle(ctx context.Context, bundleID uuid.UUID) ([]notification.Notification, error)
}

type BundleRepository interface {
	FindOrCreateAccumulating(ctx context.Context, accountID, userID uuid.UUID) (notification.Bundle, error)
	ListAccumulating(ctx context.Context, limit int) ([]notification.Bundle, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkAccumulating(ctx context.Context, id uuid.UUID) error
}

type WebhookRepository interface {
	Create(ctx context.Context, w *webhook.Webhook) error
	Update(ctx context.Context, w webhook.Webhook) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (webhook.Webhook, error)
	ListForBoard(ctx context.Context, boardID uuid.UUID) ([]webhook.Webhook, error)
	ListActiveForBoard(ctx context.Context, boardID uuid.UUID) ([]webhook.Webhook, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type DeliveryRepository interface {
	Create(ctx context.Context, d *webhook.Delivery) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (webhook.Delivery, error)
	ListForWebhook(ctx context.Context, webhookID uuid.UUID, limit int) ([]webhook.Delivery, error)
	ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]webhook.Delivery, error)
	MarkCompleted(ctx context.Context, d webhook.Delivery) error
	MarkErrored(ctx context.Context, d webhook.Delivery, nextAttemptAt time.Time) error
}

type DelinquencyRepository interface {
	RecordFailure(ctx context.Context, webhookID uuid.UUID, now time.Time) (webhook.DelinquencyTracker, error)
	ResetStreak(ctx context.Context, webhookID uuid.UUID, now time.Time) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]user.User, error)
	BoardWatchers(ctx context.Context, boardID uuid.UUID) ([]user.User, error)
	CardWatchers(ctx context.Context, cardID uuid.UUID) ([]user.User, error)
	AccessibleBoardIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type PushSubscriptionRepository interface {
	Create(ctx context.Context, s *user.PushSubscription) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]user.PushSubscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (account.Account, error)
}

type BoardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (board.Board, error)
}

type CardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (card.Card, error)
	TouchLastActive(ctx context.Context, tx DBTX, cardID uuid.UUID, at time.Time) error
}

type CommentRepository interface {
	Create(ctx context.Context, tx DBTX, c *comment.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (comment.Comment, error)
}

type MentionRepository interface {
	Create(ctx context.Context, tx DBTX, m *mention.Mention) error
	ListForComment(ctx context.Context, commentID uuid.UUID) ([]mention.Mention, error)
}

// Repositories bundles every repository over one database handle.
type Repositories struct {
	Events            EventRepository
	Outbox            OutboxRepository
	Notifications     NotificationRepository
	Bundles           BundleRepository
	Webhooks          WebhookRepository
	Deliveries        DeliveryRepository
	Delinquency       DelinquencyRepository
	Users             UserRepository
	PushSubscriptions PushSubscriptionRepository
	Accounts          AccountRepository
	Boards            BoardRepository
	Cards             CardRepository
	Comments          CommentRepository
	Mentions          MentionRepository
}

func New(db *sql.DB) *Repositories {
	return &Repositories{
		Events:            NewEventRepository(db),
		Outbox:            NewOutboxRepository(db),
		Notifications:     NewNotificationRepository(db),
		Bundles:           NewBundleRepository(db),
		Webhooks:          NewWebhookRepository(db),
		Deliveries:        NewDeliveryRepository(db),
		Delinquency:       NewDelinquencyRepository(db),
		Users:             NewUserRepository(db),
		PushSubscriptions: NewPushSubscriptionRepository(db),
		Accounts:          NewAccountRepository(db),
		Boards:            NewBoardRepository(db),
		Cards:             NewCardRepository(db),
		Comments:          NewCommentRepository(db),
		Mentions:          NewMentionRepository(db),
	}
}
