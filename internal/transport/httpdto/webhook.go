package httpdto

import (
	"time"

	"fizzy/internal/domain/webhook"
)

// CreateWebhookRequest is used for POST /boards/:board_id/webhooks
type CreateWebhookRequest struct {
	URL     string   `json:"url" binding:"required,url"`
	Secret  string   `json:"secret" binding:"required"`
	Actions []string `json:"actions" binding:"required,min=1"`
	Format  string   `json:"format,omitempty"`
}

// UpdateWebhookRequest is used for PATCH /webhooks/:id
type UpdateWebhookRequest struct {
	URL     *string  `json:"url,omitempty"`
	Secret  *string  `json:"secret,omitempty"`
	Actions []string `json:"actions,omitempty"`
	Format  *string  `json:"format,omitempty"`
}

// WebhookResponse never echoes the signing secret back.
type WebhookResponse struct {
	ID        string   `json:"id"`
	BoardID   string   `json:"board_id"`
	URL       string   `json:"url"`
	Actions   []string `json:"actions"`
	Format    string   `json:"format"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func NewWebhookResponse(w webhook.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:        w.ID.String(),
		BoardID:   w.BoardID.String(),
		URL:       w.URL,
		Actions:   w.Actions,
		Format:    string(w.Format),
		Active:    w.Active,
		CreatedAt: w.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// DeliveryResponse exposes one delivery record including the request and
// response snapshots captured for debugging.
type DeliveryResponse struct {
	ID              string `json:"id"`
	WebhookID       string `json:"webhook_id"`
	EventID         string `json:"event_id"`
	State           string `json:"state"`
	Attempts        int    `json:"attempts"`
	RequestHeaders  string `json:"request_headers,omitempty"`
	RequestBody     string `json:"request_body,omitempty"`
	ResponseStatus  int    `json:"response_status,omitempty"`
	ResponseHeaders string `json:"response_headers,omitempty"`
	ResponseBody    string `json:"response_body,omitempty"`
	NextAttemptAt   string `json:"next_attempt_at,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func NewDeliveryResponse(d webhook.Delivery) DeliveryResponse {
	resp := DeliveryResponse{
		ID:              d.ID.String(),
		WebhookID:       d.WebhookID.String(),
		EventID:         d.EventID.String(),
		State:           string(d.State),
		Attempts:        d.Attempts,
		RequestHeaders:  d.RequestHeaders,
		RequestBody:     d.RequestBody,
		ResponseStatus:  d.ResponseStatus,
		ResponseHeaders: d.ResponseHeaders,
		ResponseBody:    d.ResponseBody,
		CreatedAt:       d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.State == webhook.DeliveryErrored {
		resp.NextAttemptAt = d.NextAttemptAt.UTC().Format(time.RFC3339)
	}
	if d.CompletedAt != nil {
		resp.CompletedAt = d.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
