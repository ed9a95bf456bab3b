package httpdto

import (
	"time"

	"fizzy/internal/domain/notification"
)

// NotificationResponse is one entry in GET /notifications
type NotificationResponse struct {
	ID         string `json:"id"`
	CreatorID  string `json:"creator_id"`
	SourceKind string `json:"source_kind"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Read       bool   `json:"read"`
	ReadAt     string `json:"read_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func NewNotificationResponse(n notification.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:         n.ID.String(),
		CreatorID:  n.CreatorID.String(),
		SourceKind: string(n.SourceKind),
		SourceID:   n.SourceID.String(),
		Title:      n.Title,
		Body:       n.Body,
		Read:       n.Read(),
		CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		resp.ReadAt = n.ReadAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// CreatePushSubscriptionRequest is used for POST /push_subscriptions
type CreatePushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PushSubscriptionResponse is returned after registering a subscription
type PushSubscriptionResponse struct {
	ID        string `json:"id"`
	Endpoint  string `json:"endpoint"`
	CreatedAt string `json:"created_at"`
}
