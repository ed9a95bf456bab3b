package webhooks

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/webhook"
)

func testEventContext() EventContext {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CST", -6*3600))
	return EventContext{
		Event: &event.Event{
			ID:            uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			AccountID:     uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			BoardID:       uuid.MustParse("33333333-3333-3333-3333-333333333333"),
			Action:        event.ActionCardClosed,
			CreatorID:     uuid.MustParse("44444444-4444-4444-4444-444444444444"),
			EventableKind: event.EventableCard,
			EventableID:   uuid.MustParse("55555555-5555-5555-5555-555555555555"),
			Particulars:   event.NoParticulars{},
			CreatedAt:     created,
		},
		BoardName:   "Launch",
		CreatorName: "Ada Lovelace",
		CardTitle:   "Ship the beta",
	}
}

func TestBuildJSONPayload(t *testing.T) {
	ec := testEventContext()
	body, contentType, err := BuildPayload(webhook.Webhook{Format: webhook.FormatJSON}, ec)
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %s, want application/json", contentType)
	}

	var got struct {
		ID        string `json:"id"`
		Action    string `json:"action"`
		CreatedAt string `json:"created_at"`
		Eventable struct {
			Kind  string `json:"kind"`
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"eventable"`
		Board struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"board"`
		Creator struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"creator"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if got.ID != ec.Event.ID.String() {
		t.Errorf("id = %s, want %s", got.ID, ec.Event.ID)
	}
	if got.Action != "card_closed" {
		t.Errorf("action = %s, want card_closed", got.Action)
	}
	// The timestamp is the event's creation time in UTC, never the
	// attempt time.
	if got.CreatedAt != "2026-03-14T15:26:53Z" {
		t.Errorf("created_at = %s, want 2026-03-14T15:26:53Z", got.CreatedAt)
	}
	if got.Eventable.Kind != "CARD" || got.Eventable.Title != "Ship the beta" {
		t.Errorf("eventable = %+v", got.Eventable)
	}
	if got.Board.Name != "Launch" {
		t.Errorf("board name = %s, want Launch", got.Board.Name)
	}
	if got.Creator.Name != "Ada Lovelace" {
		t.Errorf("creator name = %s, want Ada Lovelace", got.Creator.Name)
	}
}

func TestBuildSlackPayload(t *testing.T) {
	ec := testEventContext()
	body, contentType, err := BuildPayload(webhook.Webhook{Format: webhook.FormatSlack}, ec)
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %s, want application/x-www-form-urlencoded", contentType)
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		t.Fatalf("parse form body: %v", err)
	}
	var message struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(form.Get("payload")), &message); err != nil {
		t.Fatalf("unmarshal payload field: %v", err)
	}
	want := `Ada Lovelace closed "Ship the beta" on Launch`
	if message.Text != want {
		t.Errorf("text = %q, want %q", message.Text, want)
	}
}

func TestBuildCampfirePayload(t *testing.T) {
	ec := testEventContext()
	ec.CreatorName = "Eve <script>"
	body, contentType, err := BuildPayload(webhook.Webhook{Format: webhook.FormatCampfire}, ec)
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	if contentType != "text/html" {
		t.Errorf("content type = %s, want text/html", contentType)
	}
	got := string(body)
	if !strings.HasPrefix(got, "<p><strong>") || !strings.HasSuffix(got, "</p>") {
		t.Errorf("body = %q, want <p><strong>...</p> fragment", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("creator name was not HTML-escaped: %q", got)
	}
	if !strings.Contains(got, "Eve &lt;script&gt;") {
		t.Errorf("body = %q, want escaped creator name", got)
	}
}

func TestActionPhrase(t *testing.T) {
	tests := []struct {
		action event.Action
		title  string
		want   string
	}{
		{event.ActionCardPublished, "Ship it", `added "Ship it" on Launch`},
		{event.ActionCardReopened, "Ship it", `reopened "Ship it" on Launch`},
		{event.ActionCardMoved, "Ship it", `moved "Ship it" on Launch`},
		{event.ActionCommentCreated, "Ship it", `commented on "Ship it"`},
		{event.ActionCardTitleChanged, "Ship it", `updated "Ship it" on Launch`},
		{event.ActionCardClosed, "", "closed a card on Launch"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			ec := testEventContext()
			ec.Event.Action = tt.action
			ec.CardTitle = tt.title
			if got := actionPhrase(ec); got != tt.want {
				t.Errorf("actionPhrase() = %q, want %q", got, tt.want)
			}
		})
	}
}
