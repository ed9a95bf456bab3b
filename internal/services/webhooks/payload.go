package webhooks

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/webhook"
)

// EventContext carries the denormalized names a payload embeds alongside
// the raw event.
type EventContext struct {
	Event       *event.Event
	BoardName   string
	CreatorName string
	CardTitle   string
}

type jsonPayload struct {
	ID        uuid.UUID       `json:"id"`
	Action    string          `json:"action"`
	CreatedAt string          `json:"created_at"`
	Eventable json.RawMessage `json:"eventable"`
	Board     jsonBoard       `json:"board"`
	Creator   jsonCreator     `json:"creator"`
}

type jsonBoard struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type jsonCreator struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type jsonEventable struct {
	Kind        string          `json:"kind"`
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title,omitempty"`
	Particulars json.RawMessage `json:"particulars,omitempty"`
}

// BuildPayload renders the body and Content-Type for the webhook's
// configured format. The timestamp embedded everywhere is the event's
// creation time, never the attempt time.
func BuildPayload(w webhook.Webhook, ec EventContext) (body []byte, contentType string, err error) {
	switch w.Format {
	case webhook.FormatSlack:
		return buildSlackPayload(ec)
	case webhook.FormatCampfire:
		return buildCampfirePayload(ec)
	default:
		return buildJSONPayload(ec)
	}
}

func buildJSONPayload(ec EventContext) ([]byte, string, error) {
	particulars, err := event.MarshalParticulars(ec.Event.Particulars)
	if err != nil {
		return nil, "", err
	}
	eventable, err := json.Marshal(jsonEventable{
		Kind:        string(ec.Event.EventableKind),
		ID:          ec.Event.EventableID,
		Title:       ec.CardTitle,
		Particulars: particulars,
	})
	if err != nil {
		return nil, "", err
	}
	body, err := json.Marshal(jsonPayload{
		ID:        ec.Event.ID,
		Action:    string(ec.Event.Action),
		CreatedAt: ec.Event.CreatedAt.UTC().Format(time.RFC3339),
		Eventable: eventable,
		Board:     jsonBoard{ID: ec.Event.BoardID, Name: ec.BoardName},
		Creator:   jsonCreator{ID: ec.Event.CreatorID, Name: ec.CreatorName},
	})
	if err != nil {
		return nil, "", err
	}
	return body, "application/json", nil
}

// buildSlackPayload posts the message as a URL-encoded form, the shape
// Slack-compatible incoming hooks expect.
func buildSlackPayload(ec EventContext) ([]byte, string, error) {
	text := summaryLine(ec)
	message, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, "", err
	}
	form := url.Values{}
	form.Set("payload", string(message))
	return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
}

// buildCampfirePayload posts an HTML fragment for chat-room integrations.
func buildCampfirePayload(ec EventContext) ([]byte, string, error) {
	fragment := fmt.Sprintf("<p><strong>%s</strong> %s</p>",
		html.EscapeString(ec.CreatorName),
		html.EscapeString(actionPhrase(ec)))
	return []byte(fragment), "text/html", nil
}

func summaryLine(ec EventContext) string {
	return fmt.Sprintf("%s %s", ec.CreatorName, actionPhrase(ec))
}

func actionPhrase(ec EventContext) string {
	subject := ec.CardTitle
	if subject == "" {
		subject = "a card"
	} else {
		subject = fmt.Sprintf("%q", subject)
	}
	switch ec.Event.Action {
	case event.ActionCardPublished:
		return "added " + subject + " on " + ec.BoardName
	case event.ActionCardClosed:
		return "closed " + subject + " on " + ec.BoardName
	case event.ActionCardReopened:
		return "reopened " + subject + " on " + ec.BoardName
	case event.ActionCardMoved:
		return "moved " + subject + " on " + ec.BoardName
	case event.ActionCommentCreated:
		return "commented on " + subject
	}
	return "updated " + subject + " on " + ec.BoardName
}
