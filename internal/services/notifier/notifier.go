package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/mention"
	"fizzy/internal/domain/notification"
	"fizzy/internal/domain/outbox"
	"fizzy/internal/domain/user"
	"fizzy/internal/events"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// Clock matches services.Clock without importing it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Dispatcher routes an Event or a Mention to its recipient-resolution
// strategy and materializes one Notification per qualifying recipient.
// Strategies are resolved from a static registry keyed by action tag, so
// an unknown action falls back to the board-watchers default instead of
// failing at runtime.
type Dispatcher struct {
	notifications repository.NotificationRepository
	bundles       repository.BundleRepository
	outbox        repository.OutboxRepository
	users         repository.UserRepository
	cards         repository.CardRepository
	comments      repository.CommentRepository
	mentions      repository.MentionRepository
	accounts      repository.AccountRepository
	events        repository.EventRepository
	broadcaster   events.Broadcaster
	registry      map[event.Action]strategy
	fallback      strategy
	clock         Clock
	log           *logger.Logger
}

func NewDispatcher(repos *repository.Repositories, broadcaster events.Broadcaster, clock Clock, log *logger.Logger) *Dispatcher {
	if clock == nil {
		clock = systemClock{}
	}
	d := &Dispatcher{
		notifications: repos.Notifications,
		bundles:       repos.Bundles,
		outbox:        repos.Outbox,
		users:         repos.Users,
		cards:         repos.Cards,
		comments:      repos.Comments,
		mentions:      repos.Mentions,
		accounts:      repos.Accounts,
		events:        repos.Events,
		broadcaster:   broadcaster,
		clock:         clock,
		log:           log,
	}
	d.registry = map[event.Action]strategy{
		event.ActionCardAssigned:   assignedStrategy{users: repos.Users},
		event.ActionCardPublished:  publishedStrategy{users: repos.Users, cards: repos.Cards},
		event.ActionCommentCreated: commentCreatedStrategy{users: repos.Users, comments: repos.Comments},
	}
	d.fallback = boardWatchersStrategy{users: repos.Users}
	return d
}

// DispatchEventByID loads the event and runs both the recipient fan-out
// and the mention fan-out. This is the entry point the outbox worker
// uses for the notifications topic.
func (d *Dispatcher) DispatchEventByID(ctx context.Context, eventID uuid.UUID) error {
	e, err := d.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event %s: %w", eventID, err)
	}
	if _, err := d.DispatchEvent(ctx, &e); err != nil {
		return err
	}
	_, err = d.DispatchEventMentions(ctx, &e)
	return err
}

// DispatchEvent resolves recipients for an event and creates their
// notifications. Returns the notifications actually created; a failure
// for one recipient never blocks the rest.
func (d *Dispatcher) DispatchEvent(ctx context.Context, e *event.Event) ([]notification.Notification, error) {
	actor, err := d.users.GetByID(ctx, e.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if !d.shouldNotify(ctx, e.AccountID, actor) {
		return nil, nil
	}

	strat, ok := d.registry[e.Action]
	if !ok {
		strat = d.fallback
	}
	candidates, err := strat.recipients(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients for %s: %w", e.Action, err)
	}

	recipients := normalizeRecipients(candidates, actor.ID)
	title, body := describeEvent(e, actor)

	var created []notification.Notification
	for _, recipient := range recipients {
		n := notification.Notification{
			ID:          uuid.New(),
			AccountID:   e.AccountID,
			RecipientID: recipient.ID,
			CreatorID:   actor.ID,
			SourceKind:  notification.SourceEvent,
			SourceID:    e.ID,
			Title:       title,
			Body:        body,
			CreatedAt:   d.clock.Now(),
		}
		if err := d.deliver(ctx, &n, recipient); err != nil {
			d.log.Errorf("notify %s for event %s: %v", recipient.ID, e.ID, err)
			continue
		}
		created = append(created, n)
	}
	return created, nil
}

// DispatchMention notifies the mentioned user, unless they are the
// mentioner or a suppression gate applies.
func (d *Dispatcher) DispatchMention(ctx context.Context, m *mention.Mention) ([]notification.Notification, error) {
	actor, err := d.users.GetByID(ctx, m.MentionerID)
	if err != nil {
		return nil, fmt.Errorf("load mentioner: %w", err)
	}
	if !d.shouldNotify(ctx, m.AccountID, actor) {
		return nil, nil
	}
	if m.MentionedUserID == actor.ID {
		return nil, nil
	}

	mentioned, err := d.users.GetByID(ctx, m.MentionedUserID)
	if err != nil {
		return nil, fmt.Errorf("load mentioned user: %w", err)
	}
	if !mentioned.Active {
		return nil, nil
	}

	n := notification.Notification{
		ID:          uuid.New(),
		AccountID:   m.AccountID,
		RecipientID: mentioned.ID,
		CreatorID:   actor.ID,
		SourceKind:  notification.SourceMention,
		SourceID:    m.ID,
		Title:       fmt.Sprintf("%s mentioned you", actor.DisplayName),
		Body:        "You were mentioned in a comment",
		CreatedAt:   d.clock.Now(),
	}
	if err := d.deliver(ctx, &n, mentioned); err != nil {
		return nil, err
	}
	return []notification.Notification{n}, nil
}

// DispatchEventMentions fans out mention notifications for the users an
// event's particulars name. Comment mentions come from their persisted
// rows; a card publish carries the mentioned IDs inline.
func (d *Dispatcher) DispatchEventMentions(ctx context.Context, e *event.Event) ([]notification.Notification, error) {
	switch p := e.Particulars.(type) {
	case event.CommentPosted:
		rows, err := d.mentions.ListForComment(ctx, p.CommentID)
		if err != nil {
			return nil, fmt.Errorf("list mentions for comment %s: %w", p.CommentID, err)
		}
		var created []notification.Notification
		for i := range rows {
			ns, err := d.DispatchMention(ctx, &rows[i])
			if err != nil {
				d.log.Errorf("dispatch mention %s: %v", rows[i].ID, err)
				continue
			}
			created = append(created, ns...)
		}
		return created, nil
	case event.Published:
		return d.dispatchInlineMentions(ctx, e, p.MentionedUserIDs)
	default:
		return nil, nil
	}
}

// dispatchInlineMentions covers mentions with no persisted row: the
// notification points back at the event itself.
func (d *Dispatcher) dispatchInlineMentions(ctx context.Context, e *event.Event, mentionedIDs []uuid.UUID) ([]notification.Notification, error) {
	if len(mentionedIDs) == 0 {
		return nil, nil
	}
	actor, err := d.users.GetByID(ctx, e.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if !d.shouldNotify(ctx, e.AccountID, actor) {
		return nil, nil
	}

	mentioned, err := d.users.GetByIDs(ctx, mentionedIDs)
	if err != nil {
		return nil, err
	}
	recipients := normalizeRecipients(mentioned, actor.ID)

	var created []notification.Notification
	for _, recipient := range recipients {
		n := notification.Notification{
			ID:          uuid.New(),
			AccountID:   e.AccountID,
			RecipientID: recipient.ID,
			CreatorID:   actor.ID,
			SourceKind:  notification.SourceEvent,
			SourceID:    e.ID,
			Title:       fmt.Sprintf("%s mentioned you", actor.DisplayName),
			Body:        "You were mentioned in a card",
			CreatedAt:   d.clock.Now(),
		}
		if err := d.deliver(ctx, &n, recipient); err != nil {
			d.log.Errorf("notify mention %s for event %s: %v", recipient.ID, e.ID, err)
			continue
		}
		created = append(created, n)
	}
	return created, nil
}

// shouldNotify is the global suppression gate: a system actor or a
// cancelled account blocks every notification for the source. Any single
// true suppression condition is sufficient; the checks run cheapest
// first.
func (d *Dispatcher) shouldNotify(ctx context.Context, accountID uuid.UUID, actor user.User) bool {
	if actor.System() {
		return false
	}
	acct, err := d.accounts.GetByID(ctx, accountID)
	if err != nil {
		d.log.Errorf("load account %s: %v", accountID, err)
		return false
	}
	return !acct.Cancelled()
}

// deliver persists one notification and kicks its three channels: live
// broadcast (best effort), bundle attach for bundled-email users, and a
// queued web-push attempt.
func (d *Dispatcher) deliver(ctx context.Context, n *notification.Notification, recipient user.User) error {
	if recipient.EmailPreference == user.EmailBundled {
		bundle, err := d.bundles.FindOrCreateAccumulating(ctx, n.AccountID, recipient.ID)
		if err != nil {
			return fmt.Errorf("attach bundle: %w", err)
		}
		n.BundleID = uuid.NullUUID{UUID: bundle.ID, Valid: true}
	}

	if err := d.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if err := d.broadcaster.Broadcast(ctx, events.NotificationEnvelope{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		CreatorID:      n.CreatorID,
		SourceKind:     string(n.SourceKind),
		SourceID:       n.SourceID,
		Title:          n.Title,
		Body:           n.Body,
		CreatedAt:      n.CreatedAt,
	}); err != nil {
		// Live feed is purely best-effort UI freshness.
		d.log.Warnf("broadcast notification %s: %v", n.ID, err)
	}

	if err := d.enqueuePush(ctx, n); err != nil {
		d.log.Errorf("enqueue push for notification %s: %v", n.ID, err)
	}
	return nil
}

type pushPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

func (d *Dispatcher) enqueuePush(ctx context.Context, n *notification.Notification) error {
	payload, err := json.Marshal(pushPayload{NotificationID: n.ID})
	if err != nil {
		return err
	}
	now := d.clock.Now()
	return d.outbox.Create(ctx, nil, &outbox.Message{
		ID:          uuid.New(),
		Topic:       outbox.TopicPush,
		AggregateID: n.ID,
		Payload:     payload,
		Status:      outbox.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// normalizeRecipients drops the actor and inactive users, de-duplicates,
// and sorts by id so delivery order is deterministic.
func normalizeRecipients(candidates []user.User, actorID uuid.UUID) []user.User {
	seen := make(map[uuid.UUID]bool, len(candidates))
	var recipients []user.User
	for _, u := range candidates {
		if u.ID == actorID || seen[u.ID] || !u.Active {
			continue
		}
		seen[u.ID] = true
		recipients = append(recipients, u)
	}
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].ID.String() < recipients[j].ID.String()
	})
	return recipients
}

func describeEvent(e *event.Event, actor user.User) (string, string) {
	switch e.Action {
	case event.ActionCardPublished:
		return fmt.Sprintf("%s added a card", actor.DisplayName), "A card was published"
	case event.ActionCardClosed:
		return fmt.Sprintf("%s closed a card", actor.DisplayName), "A card was closed"
	case event.ActionCardReopened:
		return fmt.Sprintf("%s reopened a card", actor.DisplayName), "A card was reopened"
	case event.ActionCardAssigned:
		return fmt.Sprintf("%s assigned a card", actor.DisplayName), "You were assigned to a card"
	case event.ActionCardMoved:
		return fmt.Sprintf("%s moved a card", actor.DisplayName), "A card changed columns"
	case event.ActionCommentCreated:
		return fmt.Sprintf("%s commented", actor.DisplayName), "A new comment was posted"
	}
	return fmt.Sprintf("%s updated a card", actor.DisplayName), "A card was updated"
}
