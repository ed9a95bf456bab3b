package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/webhook"
	"fizzy/internal/repository"
	fizzy_errors "fizzy/pkg/errors"
	"fizzy/pkg/logger"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
	SignatureHeader = "X-Webhook-Signature"
	// TimestampHeader carries the original event's creation time, so
	// retried deliveries present the same timestamp as the first attempt.
	TimestampHeader = "X-Webhook-Timestamp"
)

// Options bounds a delivery attempt.
type Options struct {
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string
}

// Deliverer executes one delivery attempt over HTTP and records the
// outcome on the delivery row and the webhook's delinquency streak.
type Deliverer struct {
	deliveries repository.DeliveryRepository
	events     repository.EventRepository
	webhooks   repository.WebhookRepository
	boards     repository.BoardRepository
	users      repository.UserRepository
	cards      repository.CardRepository
	tracker    *DelinquencyTracker
	client     *http.Client
	opts       Options
	clock      Clock
	log        *logger.Logger
}

func NewDeliverer(repos *repository.Repositories, tracker *DelinquencyTracker, opts Options, clock Clock, log *logger.Logger) *Deliverer {
	if opts.Timeout == 0 {
		opts.Timeout = 7 * time.Second
	}
	if opts.MaxResponseBytes == 0 {
		opts.MaxResponseBytes = 100 * 1024
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Fizzy-Webhook/1.0"
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Deliverer{
		deliveries: repos.Deliveries,
		events:     repos.Events,
		webhooks:   repos.Webhooks,
		boards:     repos.Boards,
		users:      repos.Users,
		cards:      repos.Cards,
		tracker:    tracker,
		client:     &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		clock:      clock,
		log:        log,
	}
}

// Execute runs one already-claimed (in_progress) delivery to completion:
// completed on a 2xx, errored otherwise. Every attempt reports its
// outcome to the delinquency tracker exactly once, even when updating
// the delivery row fails.
func (d *Deliverer) Execute(ctx context.Context, delivery webhook.Delivery) error {
	w, err := d.webhooks.GetByID(ctx, delivery.WebhookID)
	if err != nil {
		return fmt.Errorf("load webhook: %w", err)
	}

	// A claimed row can outlive a deactivation. Park it without an HTTP
	// attempt; no attempt means no streak outcome either.
	if !w.Active {
		delivery.ResponseBody = fizzy_errors.ErrWebhookInactive.Error()
		next := d.clock.Now().Add(backoff(delivery.Attempts))
		if err := d.deliveries.MarkErrored(ctx, delivery, next); err != nil {
			return fmt.Errorf("mark errored: %w", err)
		}
		return nil
	}

	e, err := d.events.GetByID(ctx, delivery.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	body, contentType, err := BuildPayload(w, d.eventContext(ctx, &e))
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	headers := map[string]string{
		"User-Agent":    d.opts.UserAgent,
		"Content-Type":  contentType,
		SignatureHeader: Sign(w.Secret, body),
		TimestampHeader: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	delivery.RequestBody = string(body)
	delivery.RequestHeaders = encodeHeaders(headers)

	succeeded := d.post(ctx, &delivery, w.URL, body, headers)

	// The streak sees the attempt before the row update; a failed update
	// must not swallow the outcome.
	if err := d.tracker.RecordOutcome(ctx, w.ID, succeeded); err != nil {
		d.log.Errorf("record outcome webhook=%s: %v", w.ID, err)
	}

	if succeeded {
		if err := d.deliveries.MarkCompleted(ctx, delivery); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		return nil
	}
	next := d.clock.Now().Add(backoff(delivery.Attempts))
	if err := d.deliveries.MarkErrored(ctx, delivery, next); err != nil {
		return fmt.Errorf("mark errored: %w", err)
	}
	return nil
}

// post performs the HTTP call and captures the response snapshot on the
// delivery. It never returns an error; any failure mode is a failed
// attempt.
func (d *Deliverer) post(ctx context.Context, delivery *webhook.Delivery, url string, body []byte, headers map[string]string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		delivery.ResponseBody = err.Error()
		return false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		// Timeouts and connection errors land here.
		delivery.ResponseBody = err.Error()
		return false
	}
	defer resp.Body.Close()

	delivery.ResponseStatus = resp.StatusCode
	delivery.ResponseHeaders = encodeHTTPHeaders(resp.Header)

	// Bodies beyond the cap are truncated, not rejected.
	captured, err := io.ReadAll(io.LimitReader(resp.Body, d.opts.MaxResponseBytes))
	if err == nil {
		delivery.ResponseBody = string(captured)
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (d *Deliverer) eventContext(ctx context.Context, e *event.Event) EventContext {
	ec := EventContext{Event: e}
	if b, err := d.boards.GetByID(ctx, e.BoardID); err == nil {
		ec.BoardName = b.Name
	}
	if u, err := d.users.GetByID(ctx, e.CreatorID); err == nil {
		ec.CreatorName = u.DisplayName
	}
	if c, err := d.cards.GetByID(ctx, e.EventableID); err == nil {
		ec.CardTitle = c.Title
	}
	return ec
}

// backoff spaces retries exponentially, capped at an hour.
func backoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		return time.Hour
	}
	return d
}

func encodeHeaders(h map[string]string) string {
	data, _ := json.Marshal(h)
	return string(data)
}

func encodeHTTPHeaders(h http.Header) string {
	flat := make(map[string]string, len(h))
	for k := range h {
		flat[k] = h.Get(k)
	}
	return encodeHeaders(flat)
}
