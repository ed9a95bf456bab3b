package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/account"
	"fizzy/internal/domain/card"
	"fizzy/internal/domain/comment"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/mention"
	"fizzy/internal/domain/notification"
	"fizzy/internal/domain/outbox"
	"fizzy/internal/domain/user"
	"fizzy/internal/events"
	"fizzy/internal/repository"
	fizzy_errors "fizzy/pkg/errors"
	"fizzy/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("test")
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeBroadcaster struct {
	envelopes []events.NotificationEnvelope
	fail      bool
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, env events.NotificationEnvelope) error {
	if b.fail {
		return errors.New("redis down")
	}
	b.envelopes = append(b.envelopes, env)
	return nil
}

type fakeNotificationRepo struct {
	created []notification.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByID(context.Context, uuid.UUID) (notification.Notification, error) {
	return notification.Notification{}, fizzy_errors.ErrNotFound
}

func (r *fakeNotificationRepo) ListForUser(context.Context, uuid.UUID, bool, int) ([]notification.Notification, error) {
	return nil, nil
}

func (r *fakeNotificationRepo) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (r *fakeNotificationRepo) MarkAllRead(context.Context, uuid.UUID) error { return nil }

func (r *fakeNotificationRepo) ListUnreadInBundle(context.Context, uuid.UUID) ([]notification.Notification, error) {
	return nil, nil
}

type fakeBundleRepo struct {
	bundles map[uuid.UUID]notification.Bundle
}

func newFakeBundleRepo() *fakeBundleRepo {
	return &fakeBundleRepo{bundles: make(map[uuid.UUID]notification.Bundle)}
}

func (r *fakeBundleRepo) FindOrCreateAccumulating(_ context.Context, accountID, userID uuid.UUID) (notification.Bundle, error) {
	for _, b := range r.bundles {
		if b.UserID == userID && b.Status == notification.BundleAccumulating {
			return b, nil
		}
	}
	b := notification.Bundle{ID: uuid.New(), AccountID: accountID, UserID: userID, Status: notification.BundleAccumulating}
	r.bundles[b.ID] = b
	return b, nil
}

func (r *fakeBundleRepo) ListAccumulating(context.Context, int) ([]notification.Bundle, error) {
	return nil, nil
}

func (r *fakeBundleRepo) MarkProcessing(context.Context, uuid.UUID) error { return nil }

func (r *fakeBundleRepo) MarkDelivered(context.Context, uuid.UUID) error { return nil }

func (r *fakeBundleRepo) MarkAccumulating(context.Context, uuid.UUID) error { return nil }

type fakeOutboxRepo struct {
	messages []outbox.Message
}

func (r *fakeOutboxRepo) Create(_ context.Context, _ repository.DBTX, msg *outbox.Message) error {
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeOutboxRepo) GetPending(context.Context, int) ([]outbox.Message, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessing(context.Context, string) error { return nil }

func (r *fakeOutboxRepo) MarkCompleted(context.Context, string) error { return nil }

func (r *fakeOutboxRepo) MarkFailed(context.Context, string, string) error { return nil }

func (r *fakeOutboxRepo) Requeue(context.Context, string, string) error { return nil }

type fakeUserRepo struct {
	users         map[uuid.UUID]user.User
	boardWatchers map[uuid.UUID][]uuid.UUID
	cardWatchers  map[uuid.UUID][]uuid.UUID
}

func newFakeUserRepo(users ...user.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:         make(map[uuid.UUID]user.User),
		boardWatchers: make(map[uuid.UUID][]uuid.UUID),
		cardWatchers:  make(map[uuid.UUID][]uuid.UUID),
	}
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

func (r *fakeUserRepo) BoardWatchers(_ context.Context, boardID uuid.UUID) ([]user.User, error) {
	return r.GetByIDs(context.Background(), r.boardWatchers[boardID])
}

func (r *fakeUserRepo) CardWatchers(_ context.Context, cardID uuid.UUID) ([]user.User, error) {
	return r.GetByIDs(context.Background(), r.cardWatchers[cardID])
}

func (r *fakeUserRepo) AccessibleBoardIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
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

type fakeCommentRepo struct {
	comments map[uuid.UUID]comment.Comment
}

func newFakeCommentRepo(comments ...comment.Comment) *fakeCommentRepo {
	r := &fakeCommentRepo{comments: make(map[uuid.UUID]comment.Comment)}
	for _, c := range comments {
		r.comments[c.ID] = c
	}
	return r
}

func (r *fakeCommentRepo) Create(_ context.Context, _ repository.DBTX, c *comment.Comment) error {
	r.comments[c.ID] = *c
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id uuid.UUID) (comment.Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return comment.Comment{}, fizzy_errors.ErrNotFound
	}
	return c, nil
}

type fakeMentionRepo struct {
	mentions []mention.Mention
}

func (r *fakeMentionRepo) Create(_ context.Context, _ repository.DBTX, m *mention.Mention) error {
	r.mentions = append(r.mentions, *m)
	return nil
}

func (r *fakeMentionRepo) ListForComment(_ context.Context, commentID uuid.UUID) ([]mention.Mention, error) {
	var out []mention.Mention
	for _, m := range r.mentions {
		if m.CommentID == commentID {
			out = append(out, m)
		}
	}
	return out, nil
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

func (r *fakeEventRepo) ListTimeline(context.Context, []uuid.UUID, time.Time, time.Time, []string, uuid.NullUUID) ([]event.Event, error) {
	return nil, nil
}
