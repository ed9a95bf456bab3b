package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/webhook"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// Clock lets tests drive time through delivery scheduling.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Dispatcher fans one event out to the board's matching webhooks by
// creating delivery records. Execution happens later in the delivery
// worker; dispatch itself does no network I/O.
type Dispatcher struct {
	webhooks   repository.WebhookRepository
	deliveries repository.DeliveryRepository
	accounts   repository.AccountRepository
	events     repository.EventRepository
	clock      Clock
	log        *logger.Logger
}

func NewDispatcher(repos *repository.Repositories, clock Clock, log *logger.Logger) *Dispatcher {
	if clock == nil {
		clock = systemClock{}
	}
	return &Dispatcher{
		webhooks:   repos.Webhooks,
		deliveries: repos.Deliveries,
		accounts:   repos.Accounts,
		events:     repos.Events,
		clock:      clock,
		log:        log,
	}
}

// DispatchEventByID loads the event and dispatches it. This is the entry
// point the outbox worker uses.
func (d *Dispatcher) DispatchEventByID(ctx context.Context, eventID uuid.UUID) error {
	e, err := d.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event %s: %w", eventID, err)
	}
	_, err = d.Dispatch(ctx, &e)
	return err
}

// Dispatch creates exactly one delivery per matching webhook. Re-running
// it for the same event creates nothing new; the unique (webhook, event)
// constraint absorbs duplicate fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, e *event.Event) ([]webhook.Delivery, error) {
	acct, err := d.accounts.GetByID(ctx, e.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct.Cancelled() {
		return nil, nil
	}

	candidates, err := d.webhooks.ListActiveForBoard(ctx, e.BoardID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}

	var created []webhook.Delivery
	for _, w := range candidates {
		if !w.SubscribedTo(string(e.Action)) {
			continue
		}
		now := d.clock.Now()
		delivery := webhook.Delivery{
			ID:            uuid.New(),
			WebhookID:     w.ID,
			EventID:       e.ID,
			State:         webhook.DeliveryPending,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		inserted, err := d.deliveries.Create(ctx, &delivery)
		if err != nil {
			d.log.Errorf("create delivery webhook=%s event=%s: %v", w.ID, e.ID, err)
			continue
		}
		if inserted {
			created = append(created, delivery)
		}
	}
	return created, nil
}
