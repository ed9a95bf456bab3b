package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/card"
	"fizzy/internal/domain/comment"
	"fizzy/internal/domain/event"
	"fizzy/internal/domain/mention"
	"fizzy/internal/domain/outbox"
	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

type recordedTouch struct {
	cardID uuid.UUID
	at     time.Time
}

type fakeEventRepo struct {
	created []event.Event
}

func (r *fakeEventRepo) Create(_ context.Context, _ repository.DBTX, e *event.Event) error {
	r.created = append(r.created, *e)
	return nil
}

func (r *fakeEventRepo) GetByID(context.Context, uuid.UUID) (event.Event, error) {
	return event.Event{}, nil
}

func (r *fakeEventRepo) ListTimeline(context.Context, []uuid.UUID, time.Time, time.Time, []string, uuid.NullUUID) ([]event.Event, error) {
	return nil, nil
}

type fakeOutboxRepo struct {
	messages []outbox.Message

	markedProcessing []string
	markedCompleted  []string
	markedFailed     []string
	requeued         []string
	claimErr         error
}

func (r *fakeOutboxRepo) Create(_ context.Context, _ repository.DBTX, msg *outbox.Message) error {
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeOutboxRepo) GetPending(context.Context, int) ([]outbox.Message, error) {
	return r.messages, nil
}

func (r *fakeOutboxRepo) MarkProcessing(_ context.Context, id string) error {
	if r.claimErr != nil {
		return r.claimErr
	}
	r.markedProcessing = append(r.markedProcessing, id)
	return nil
}

func (r *fakeOutboxRepo) MarkCompleted(_ context.Context, id string) error {
	r.markedCompleted = append(r.markedCompleted, id)
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, id string, _ string) error {
	r.markedFailed = append(r.markedFailed, id)
	return nil
}

func (r *fakeOutboxRepo) Requeue(_ context.Context, id string, _ string) error {
	r.requeued = append(r.requeued, id)
	return nil
}

type fakeCardRepo struct {
	touches []recordedTouch
}

func (r *fakeCardRepo) GetByID(context.Context, uuid.UUID) (card.Card, error) {
	return card.Card{}, nil
}

func (r *fakeCardRepo) TouchLastActive(_ context.Context, _ repository.DBTX, cardID uuid.UUID, at time.Time) error {
	r.touches = append(r.touches, recordedTouch{cardID: cardID, at: at})
	return nil
}

type fakeCommentRepo struct {
	created []comment.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, _ repository.DBTX, c *comment.Comment) error {
	r.created = append(r.created, *c)
	return nil
}

func (r *fakeCommentRepo) GetByID(context.Context, uuid.UUID) (comment.Comment, error) {
	return comment.Comment{}, nil
}

type fakeMentionRepo struct {
	created []mention.Mention
}

func (r *fakeMentionRepo) Create(_ context.Context, _ repository.DBTX, m *mention.Mention) error {
	r.created = append(r.created, *m)
	return nil
}

func (r *fakeMentionRepo) ListForComment(context.Context, uuid.UUID) ([]mention.Mention, error) {
	return nil, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recorderFixture struct {
	recorder *Recorder
	events   *fakeEventRepo
	outbox   *fakeOutboxRepo
	cards    *fakeCardRepo
	comments *fakeCommentRepo
	mentions *fakeMentionRepo
	now      time.Time
	actor    user.User
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	t.Helper()
	f := &recorderFixture{
		events:   &fakeEventRepo{},
		outbox:   &fakeOutboxRepo{},
		cards:    &fakeCardRepo{},
		comments: &fakeCommentRepo{},
		mentions: &fakeMentionRepo{},
		now:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		actor: user.User{
			ID:          uuid.New(),
			DisplayName: "Ada",
			Kind:        user.KindPerson,
			Active:      true,
		},
	}
	repos := &repository.Repositories{
		Events:   f.events,
		Outbox:   f.outbox,
		Cards:    f.cards,
		Comments: f.comments,
		Mentions: f.mentions,
	}
	f.recorder = NewRecorder(repos, fixedClock{now: f.now}, logger.New("test"))
	return f
}

func (f *recorderFixture) publishedCard() *card.Card {
	return &card.Card{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		BoardID:     uuid.New(),
		Title:       "Ship the beta",
		Column:      "doing",
		PublishedAt: sql.NullTime{Time: f.now.Add(-time.Hour), Valid: true},
	}
}

func (f *recorderFixture) outboxTopics() []outbox.Topic {
	topics := make([]outbox.Topic, len(f.outbox.messages))
	for i, m := range f.outbox.messages {
		topics[i] = m.Topic
	}
	return topics
}

func TestRecordSuppressesDraftCardActions(t *testing.T) {
	f := newRecorderFixture(t)
	draft := f.publishedCard()
	draft.PublishedAt = sql.NullTime{}

	e, err := f.recorder.Record(context.Background(), nil, draft, "closed", f.actor, event.NoParticulars{})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e != nil {
		t.Errorf("draft card action recorded event %+v, want none", e)
	}
	if len(f.events.created) != 0 || len(f.outbox.messages) != 0 {
		t.Error("suppressed action still wrote rows")
	}
}

func TestRecordPublishOnDraft(t *testing.T) {
	f := newRecorderFixture(t)
	draft := f.publishedCard()
	draft.PublishedAt = sql.NullTime{}

	e, err := f.recorder.Record(context.Background(), nil, draft, "published", f.actor, event.Published{})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e == nil {
		t.Fatal("publish on a draft must be recorded")
	}
	if e.Action != event.ActionCardPublished {
		t.Errorf("action = %s, want card_published", e.Action)
	}
	if e.CreatedAt != f.now {
		t.Errorf("created at = %s, want the injected clock", e.CreatedAt)
	}

	topics := f.outboxTopics()
	if len(topics) != 2 || topics[0] != outbox.TopicNotifications || topics[1] != outbox.TopicWebhooks {
		t.Errorf("outbox topics = %v, want [NOTIFICATIONS WEBHOOKS]", topics)
	}

	// Publishing sets its own activity stamp; the recorder leaves it be.
	if len(f.cards.touches) != 0 {
		t.Errorf("publish touched last-active %d times, want 0", len(f.cards.touches))
	}
	if len(f.comments.created) != 0 {
		t.Errorf("publish created %d system comments, want 0", len(f.comments.created))
	}
}

func TestRecordCloseWritesSystemComment(t *testing.T) {
	f := newRecorderFixture(t)
	c := f.publishedCard()

	e, err := f.recorder.Record(context.Background(), nil, c, "closed", f.actor, event.NoParticulars{})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e == nil {
		t.Fatal("close on a published card must be recorded")
	}

	if len(f.comments.created) != 1 {
		t.Fatalf("system comments = %d, want 1", len(f.comments.created))
	}
	sc := f.comments.created[0]
	if !sc.System {
		t.Error("narration comment not flagged as system")
	}
	if sc.Body != "Ada closed this card" {
		t.Errorf("narration = %q", sc.Body)
	}
	if sc.CardID != c.ID {
		t.Errorf("narration card = %s, want %s", sc.CardID, c.ID)
	}

	if len(f.cards.touches) != 1 || f.cards.touches[0].cardID != c.ID {
		t.Errorf("touches = %+v, want one for the card", f.cards.touches)
	}
}

func TestRecordMoveNarration(t *testing.T) {
	f := newRecorderFixture(t)
	c := f.publishedCard()

	_, err := f.recorder.Record(context.Background(), nil, c, "moved", f.actor,
		event.Moved{FromColumn: "doing", ToColumn: "done"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(f.comments.created) != 1 {
		t.Fatalf("system comments = %d, want 1", len(f.comments.created))
	}
	if got := f.comments.created[0].Body; got != "Ada moved this card from doing to done" {
		t.Errorf("narration = %q", got)
	}
}

func TestRecordAssignProducesNoNarration(t *testing.T) {
	f := newRecorderFixture(t)
	c := f.publishedCard()

	_, err := f.recorder.Record(context.Background(), nil, c, "assigned", f.actor,
		event.Assigned{AssigneeIDs: []uuid.UUID{uuid.New()}})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(f.comments.created) != 0 {
		t.Errorf("assign created %d system comments, want 0", len(f.comments.created))
	}
	// Still counts as activity.
	if len(f.cards.touches) != 1 {
		t.Errorf("touches = %d, want 1", len(f.cards.touches))
	}
}

func TestRecordCommentCreatesMentionRows(t *testing.T) {
	f := newRecorderFixture(t)
	mentioned1 := uuid.New()
	mentioned2 := uuid.New()
	c := &comment.Comment{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		BoardID:   uuid.New(),
		CardID:    uuid.New(),
		AuthorID:  f.actor.ID,
		Body:      "ping @one @two",
	}

	e, err := f.recorder.Record(context.Background(), nil, c, "created", f.actor,
		event.CommentPosted{CommentID: c.ID, MentionedUserIDs: []uuid.UUID{mentioned1, mentioned2}})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.Action != event.ActionCommentCreated {
		t.Errorf("action = %s, want comment_created", e.Action)
	}

	if len(f.mentions.created) != 2 {
		t.Fatalf("mention rows = %d, want 2", len(f.mentions.created))
	}
	m := f.mentions.created[0]
	if m.CommentID != c.ID || m.MentionerID != f.actor.ID || m.MentionedUserID != mentioned1 {
		t.Errorf("mention row = %+v", m)
	}

	if len(f.cards.touches) != 1 || f.cards.touches[0].cardID != c.CardID {
		t.Errorf("touches = %+v, want one for the comment's card", f.cards.touches)
	}
}

func TestRecordSuppressesSystemComments(t *testing.T) {
	f := newRecorderFixture(t)
	c := &comment.Comment{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		BoardID:   uuid.New(),
		CardID:    uuid.New(),
		AuthorID:  f.actor.ID,
		Body:      "Ada closed this card",
		System:    true,
	}

	e, err := f.recorder.Record(context.Background(), nil, c, "created", f.actor,
		event.CommentPosted{CommentID: c.ID})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e != nil {
		t.Error("system comment produced an event; the pipeline would loop")
	}
}

func TestRecordSuppressesSystemActor(t *testing.T) {
	f := newRecorderFixture(t)
	robot := user.User{ID: uuid.New(), DisplayName: "Fizzy", Kind: user.KindSystem}
	c := &comment.Comment{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		BoardID:   uuid.New(),
		CardID:    uuid.New(),
		AuthorID:  robot.ID,
		Body:      "automated note",
	}

	e, err := f.recorder.Record(context.Background(), nil, c, "created", robot,
		event.CommentPosted{CommentID: c.ID})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e != nil {
		t.Error("system actor's comment produced an event")
	}
}

func TestSystemCommentBody(t *testing.T) {
	actor := user.User{DisplayName: "Ada"}
	tests := []struct {
		action      event.Action
		particulars event.Particulars
		want        string
	}{
		{event.ActionCardClosed, event.NoParticulars{}, "Ada closed this card"},
		{event.ActionCardReopened, event.NoParticulars{}, "Ada reopened this card"},
		{event.ActionCardMoved, event.Moved{FromColumn: "a", ToColumn: "b"}, "Ada moved this card from a to b"},
		{event.ActionCardMoved, event.NoParticulars{}, "Ada moved this card"},
		{event.ActionCardPublished, event.Published{}, ""},
		{event.ActionCardTitleChanged, event.TitleChanged{}, ""},
		{event.ActionCommentCreated, event.NoParticulars{}, ""},
	}
	for _, tt := range tests {
		e := &event.Event{Action: tt.action, Particulars: tt.particulars}
		if got := systemCommentBody(e, actor); got != tt.want {
			t.Errorf("systemCommentBody(%s) = %q, want %q", tt.action, got, tt.want)
		}
	}
}
