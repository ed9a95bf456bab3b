package webhooks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/account"
	"fizzy/internal/domain/board"
	"fizzy/internal/domain/card"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/user"
	"fizzy/internal/domain/webhook"
	"fizzy/internal/repository"
	fizzy_errors "fizzy/pkg/errors"
	"fizzy/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("test")
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeWebhookRepo struct {
	webhooks map[uuid.UUID]webhook.Webhook
}

func newFakeWebhookRepo(hooks ...webhook.Webhook) *fakeWebhookRepo {
	r := &fakeWebhookRepo{webhooks: make(map[uuid.UUID]webhook.Webhook)}
	for _, w := range hooks {
		r.webhooks[w.ID] = w
	}
	return r
}

func (r *fakeWebhookRepo) Create(_ context.Context, w *webhook.Webhook) error {
	r.webhooks[w.ID] = *w
	return nil
}

func (r *fakeWebhookRepo) Update(_ context.Context, w webhook.Webhook) error {
	r.webhooks[w.ID] = w
	return nil
}

func (r *fakeWebhookRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.webhooks, id)
	return nil
}

func (r *fakeWebhookRepo) GetByID(_ context.Context, id uuid.UUID) (webhook.Webhook, error) {
	w, ok := r.webhooks[id]
	if !ok {
		return webhook.Webhook{}, fizzy_errors.ErrNotFound
	}
	return w, nil
}

func (r *fakeWebhookRepo) ListForBoard(_ context.Context, boardID uuid.UUID) ([]webhook.Webhook, error) {
	var out []webhook.Webhook
	for _, w := range r.webhooks {
		if w.BoardID == boardID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeWebhookRepo) ListActiveForBoard(_ context.Context, boardID uuid.UUID) ([]webhook.Webhook, error) {
	var out []webhook.Webhook
	for _, w := range r.webhooks {
		if w.BoardID == boardID && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeWebhookRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	w, ok := r.webhooks[id]
	if !ok {
		return fizzy_errors.ErrNotFound
	}
	w.Active = active
	r.webhooks[id] = w
	return nil
}

type fakeDeliveryRepo struct {
	deliveries       map[uuid.UUID]webhook.Delivery
	pairs            map[string]bool
	completed        []uuid.UUID
	errored          []uuid.UUID
	markCompletedErr error
	markErroredErr   error
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{
		deliveries: make(map[uuid.UUID]webhook.Delivery),
		pairs:      make(map[string]bool),
	}
}

func (r *fakeDeliveryRepo) Create(_ context.Context, d *webhook.Delivery) (bool, error) {
	key := d.WebhookID.String() + "/" + d.EventID.String()
	if r.pairs[key] {
		return false, nil
	}
	r.pairs[key] = true
	r.deliveries[d.ID] = *d
	return true, nil
}

func (r *fakeDeliveryRepo) GetByID(_ context.Context, id uuid.UUID) (webhook.Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return webhook.Delivery{}, fizzy_errors.ErrNotFound
	}
	return d, nil
}

func (r *fakeDeliveryRepo) ListForWebhook(_ context.Context, webhookID uuid.UUID, _ int) ([]webhook.Delivery, error) {
	var out []webhook.Delivery
	for _, d := range r.deliveries {
		if d.WebhookID == webhookID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) ClaimDue(_ context.Context, _ time.Time, _, _ int) ([]webhook.Delivery, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) MarkCompleted(_ context.Context, d webhook.Delivery) error {
	if r.markCompletedErr != nil {
		return r.markCompletedErr
	}
	d.State = webhook.DeliveryCompleted
	r.deliveries[d.ID] = d
	r.completed = append(r.completed, d.ID)
	return nil
}

func (r *fakeDeliveryRepo) MarkErrored(_ context.Context, d webhook.Delivery, next time.Time) error {
	if r.markErroredErr != nil {
		return r.markErroredErr
	}
	d.State = webhook.DeliveryErrored
	d.NextAttemptAt = next
	r.deliveries[d.ID] = d
	r.errored = append(r.errored, d.ID)
	return nil
}

type fakeDelinquencyRepo struct {
	trackers map[uuid.UUID]webhook.DelinquencyTracker
	resets   int
}

func newFakeDelinquencyRepo() *fakeDelinquencyRepo {
	return &fakeDelinquencyRepo{trackers: make(map[uuid.UUID]webhook.DelinquencyTracker)}
}

func (r *fakeDelinquencyRepo) RecordFailure(_ context.Context, webhookID uuid.UUID, now time.Time) (webhook.DelinquencyTracker, error) {
	t := r.trackers[webhookID]
	t.WebhookID = webhookID
	t.ConsecutiveFailuresCount++
	if t.FirstFailureAt == nil {
		at := now
		t.FirstFailureAt = &at
	}
	t.UpdatedAt = now
	r.trackers[webhookID] = t
	return t, nil
}

func (r *fakeDelinquencyRepo) ResetStreak(_ context.Context, webhookID uuid.UUID, now time.Time) error {
	r.trackers[webhookID] = webhook.DelinquencyTracker{WebhookID: webhookID, UpdatedAt: now}
	r.resets++
	return nil
}

type fakeEventRepo struct {
	events map[uuid.UUID]event.Event
}

func newFakeEventRepo(events ...event.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[uuid.UUID]event.Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeEventRepo) Create(_ context.Context, _ repository.DBTX, e *event.Event) error {
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (event.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return event.Event{}, fizzy_errors.ErrNotFound
	}
	return e, nil
}

func (r *fakeEventRepo) ListTimeline(_ context.Context, _ []uuid.UUID, _, _ time.Time, _ []string, _ uuid.NullUUID) ([]event.Event, error) {
	return nil, nil
}

type fakeAccountRepo struct {
	accounts map[uuid.UUID]account.Account
}

func newFakeAccountRepo(accounts ...account.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[uuid.UUID]account.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (account.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return account.Account{}, fizzy_errors.ErrNotFound
	}
	return a, nil
}

type fakeBoardRepo struct {
	boards map[uuid.UUID]board.Board
}

func newFakeBoardRepo(boards ...board.Board) *fakeBoardRepo {
	r := &fakeBoardRepo{boards: make(map[uuid.UUID]board.Board)}
	for _, b := range boards {
		r.boards[b.ID] = b
	}
	return r
}

func (r *fakeBoardRepo) GetByID(_ context.Context, id uuid.UUID) (board.Board, error) {
	b, ok := r.boards[id]
	if !ok {
		return board.Board{}, fizzy_errors.ErrNotFound
	}
	return b, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]user.User
}

func newFakeUserRepo(users ...user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]user.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, fizzy_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]user.User, error) {
	var out []user.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) BoardWatchers(context.Context, uuid.UUID) ([]user.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) CardWatchers(context.Context, uuid.UUID) ([]user.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) AccessibleBoardIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeCardRepo struct {
	cards map[uuid.UUID]card.Card
}

func newFakeCardRepo(cards ...card.Card) *fakeCardRepo {
	r := &fakeCardRepo{cards: make(map[uuid.UUID]card.Card)}
	for _, c := range cards {
		r.cards[c.ID] = c
	}
	return r
}

func (r *fakeCardRepo) GetByID(_ context.Context, id uuid.UUID) (card.Card, error) {
	c, ok := r.cards[id]
	if !ok {
		return card.Card{}, fizzy_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeCardRepo) TouchLastActive(context.Context, repository.DBTX, uuid.UUID, time.Time) error {
	return nil
}
