package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"fizzy/internal/config"
	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// Sender delivers one browser push per registered subscription for a
// notification. Push is skipped entirely when the recipient has no
// subscriptions, the actor is a system identity, the recipient is
// inactive, or the account is cancelled.
type Sender struct {
	notifications repository.NotificationRepository
	subscriptions repository.PushSubscriptionRepository
	users         repository.UserRepository
	accounts      repository.AccountRepository
	cfg           config.PushConfig
	log           *logger.Logger
}

func NewSender(repos *repository.Repositories, cfg config.PushConfig, log *logger.Logger) *Sender {
	return &Sender{
		notifications: repos.Notifications,
		subscriptions: repos.PushSubscriptions,
		users:         repos.Users,
		accounts:      repos.Accounts,
		cfg:           cfg,
		log:           log,
	}
}

type pushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendForNotification attempts web push for every subscription the
// recipient holds. Expired or invalid subscriptions are deleted on the
// spot; deleting them is self-healing, not an error for the notification.
// A transient provider failure is returned so the job-retry layer can try
// again.
func (s *Sender) SendForNotification(ctx context.Context, notificationID uuid.UUID) error {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}

	actor, err := s.users.GetByID(ctx, n.CreatorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	if actor.System() {
		return nil
	}

	recipient, err := s.users.GetByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	if !recipient.Active {
		return nil
	}

	acct, err := s.accounts.GetByID(ctx, n.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.Cancelled() {
		return nil
	}

	subs, err := s.subscriptions.ListForUser(ctx, recipient.ID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushMessage{Title: n.Title, Body: n.Body})
	if err != nil {
		return err
	}

	var lastTransient error
	for _, sub := range subs {
		if err := s.sendOne(ctx, sub, payload); err != nil {
			lastTransient = err
		}
	}
	return lastTransient
}

func (s *Sender) sendOne(ctx context.Context, sub user.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The provider says this subscription no longer exists.
		if err := s.subscriptions.Delete(ctx, sub.ID); err != nil {
			s.log.Errorf("delete stale subscription %s: %v", sub.ID, err)
		}
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("push provider returned %d", resp.StatusCode)
	}
	return nil
}
