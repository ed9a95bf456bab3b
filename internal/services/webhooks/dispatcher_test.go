package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/account"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/webhook"
	"fizzy/internal/repository"
)

type dispatcherFixture struct {
	dispatcher *Dispatcher
	deliveries *fakeDeliveryRepo
	accounts   *fakeAccountRepo
	event      event.Event
}

func newDispatcherFixture(t *testing.T, hooks ...webhook.Webhook) *dispatcherFixture {
	t.Helper()
	acct := account.Account{ID: uuid.New(), Name: "Acme", Status: account.StatusActive}
	boardID := uuid.New()
	for i := range hooks {
		hooks[i].AccountID = acct.ID
		hooks[i].BoardID = boardID
	}
	e := event.Event{
		ID:            uuid.New(),
		AccountID:     acct.ID,
		BoardID:       boardID,
		Action:        event.ActionCardClosed,
		CreatorID:     uuid.New(),
		EventableKind: event.EventableCard,
		EventableID:   uuid.New(),
		Particulars:   event.NoParticulars{},
		CreatedAt:     time.Now().UTC(),
	}
	deliveries := newFakeDeliveryRepo()
	accounts := newFakeAccountRepo(acct)
	repos := &repository.Repositories{
		Webhooks:    newFakeWebhookRepo(hooks...),
		Deliveries:  deliveries,
		Accounts:    accounts,
		Events:      newFakeEventRepo(e),
		Delinquency: newFakeDelinquencyRepo(),
	}
	return &dispatcherFixture{
		dispatcher: NewDispatcher(repos, nil, testLogger()),
		deliveries: deliveries,
		accounts:   accounts,
		event:      e,
	}
}

func TestDispatchCreatesDeliveriesForSubscribedWebhooks(t *testing.T) {
	subscribed := webhook.Webhook{ID: uuid.New(), Actions: []string{"card_closed", "card_published"}, Active: true}
	otherAction := webhook.Webhook{ID: uuid.New(), Actions: []string{"comment_created"}, Active: true}
	inactive := webhook.Webhook{ID: uuid.New(), Actions: []string{"card_closed"}, Active: false}
	f := newDispatcherFixture(t, subscribed, otherAction, inactive)

	created, err := f.dispatcher.Dispatch(context.Background(), &f.event)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(created) != 1 {
		t.Fatalf("created %d deliveries, want 1", len(created))
	}
	d := created[0]
	if d.WebhookID != subscribed.ID {
		t.Errorf("delivery targeted webhook %s, want the subscribed one", d.WebhookID)
	}
	if d.EventID != f.event.ID {
		t.Errorf("delivery event = %s, want %s", d.EventID, f.event.ID)
	}
	if d.State != webhook.DeliveryPending {
		t.Errorf("state = %s, want PENDING", d.State)
	}
	if d.NextAttemptAt.IsZero() {
		t.Error("new deliveries should be due immediately")
	}
}

func TestDispatchIsIdempotentPerWebhookEventPair(t *testing.T) {
	w := webhook.Webhook{ID: uuid.New(), Actions: []string{"card_closed"}, Active: true}
	f := newDispatcherFixture(t, w)

	first, err := f.dispatcher.Dispatch(context.Background(), &f.event)
	if err != nil {
		t.Fatalf("first Dispatch: %v", err)
	}
	second, err := f.dispatcher.Dispatch(context.Background(), &f.event)
	if err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}

	if len(first) != 1 {
		t.Fatalf("first dispatch created %d deliveries, want 1", len(first))
	}
	if len(second) != 0 {
		t.Errorf("second dispatch created %d deliveries, want 0", len(second))
	}
	if len(f.deliveries.deliveries) != 1 {
		t.Errorf("stored deliveries = %d, want 1", len(f.deliveries.deliveries))
	}
}

func TestDispatchSkipsCancelledAccount(t *testing.T) {
	w := webhook.Webhook{ID: uuid.New(), Actions: []string{"card_closed"}, Active: true}
	f := newDispatcherFixture(t, w)

	acct := f.accounts.accounts[f.event.AccountID]
	acct.Status = account.StatusCancelled
	f.accounts.accounts[acct.ID] = acct

	created, err := f.dispatcher.Dispatch(context.Background(), &f.event)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("cancelled account produced %d deliveries, want 0", len(created))
	}
}

func TestDispatchEventByID(t *testing.T) {
	w := webhook.Webhook{ID: uuid.New(), Actions: []string{"card_closed"}, Active: true}
	f := newDispatcherFixture(t, w)

	if err := f.dispatcher.DispatchEventByID(context.Background(), f.event.ID); err != nil {
		t.Fatalf("DispatchEventByID: %v", err)
	}
	if len(f.deliveries.deliveries) != 1 {
		t.Errorf("stored deliveries = %d, want 1", len(f.deliveries.deliveries))
	}

	if err := f.dispatcher.DispatchEventByID(context.Background(), uuid.New()); err == nil {
		t.Error("expected an error for an unknown event id")
	}
}

func TestSubscribedTo(t *testing.T) {
	w := webhook.Webhook{Actions: []string{"card_closed", "card_moved"}}
	if !w.SubscribedTo("card_moved") {
		t.Error("SubscribedTo(card_moved) = false, want true")
	}
	if w.SubscribedTo("card_published") {
		t.Error("SubscribedTo(card_published) = true, want false")
	}
}
