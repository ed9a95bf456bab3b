package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/outbox"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// NotificationDispatcher fans an event out to its notification
// recipients. Implemented by notifier.Dispatcher.
type NotificationDispatcher interface {
	DispatchEventByID(ctx context.Context, eventID uuid.UUID) error
}

// WebhookDispatcher fans an event out to subscribed webhooks.
type WebhookDispatcher interface {
	DispatchEventByID(ctx context.Context, eventID uuid.UUID) error
}

// PushSender delivers the web push for one stored notification.
type PushSender interface {
	SendForNotification(ctx context.Context, notificationID uuid.UUID) error
}

// OutboxWorker polls the outbox table and routes each pending message to
// the handler for its topic. Retried messages return to pending until
// the retry cap, after which they are marked failed and left for manual
// inspection.
type OutboxWorker struct {
	outboxRepo    repository.OutboxRepository
	notifications NotificationDispatcher
	webhooks      WebhookDispatcher
	push          PushSender
	log           *logger.Logger
	interval      time.Duration
	batchSize     int
	maxRetries    int
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

func NewOutboxWorker(
	outboxRepo repository.OutboxRepository,
	notifications NotificationDispatcher,
	webhooks WebhookDispatcher,
	push PushSender,
	interval time.Duration,
	batchSize int,
	log *logger.Logger,
) *OutboxWorker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		outboxRepo:    outboxRepo,
		notifications: notifications,
		webhooks:      webhooks,
		push:          push,
		log:           log,
		interval:      interval,
		batchSize:     batchSize,
		maxRetries:    10,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the worker loop
func (w *OutboxWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *OutboxWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *OutboxWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processBatch()
		}
	}
}

func (w *OutboxWorker) processBatch() {
	ctx := context.Background()
	messages, err := w.outboxRepo.GetPending(ctx, w.batchSize)
	if err != nil {
		w.log.Errorf("outbox poll: %v", err)
		return
	}

	for i := range messages {
		w.processMessage(ctx, &messages[i])
	}
}

func (w *OutboxWorker) processMessage(ctx context.Context, msg *outbox.Message) {
	// Prevent duplicate processing
	if err := w.outboxRepo.MarkProcessing(ctx, msg.ID.String()); err != nil {
		if !repository.ErrAlreadyClaimed(err) {
			w.log.Errorf("claim outbox message %s: %v", msg.ID, err)
		}
		return
	}

	if err := w.handle(ctx, msg); err != nil {
		w.log.Errorf("handle outbox message %s (%s): %v", msg.ID, msg.Topic, err)
		if msg.RetryCount >= w.maxRetries-1 {
			if ferr := w.outboxRepo.MarkFailed(ctx, msg.ID.String(), err.Error()); ferr != nil {
				w.log.Errorf("mark outbox message %s failed: %v", msg.ID, ferr)
			}
			return
		}
		if rerr := w.outboxRepo.Requeue(ctx, msg.ID.String(), err.Error()); rerr != nil {
			w.log.Errorf("requeue outbox message %s: %v", msg.ID, rerr)
		}
		return
	}

	if err := w.outboxRepo.MarkCompleted(ctx, msg.ID.String()); err != nil {
		w.log.Errorf("complete outbox message %s: %v", msg.ID, err)
	}
}

type eventRef struct {
	EventID uuid.UUID `json:"event_id"`
}

type notificationRef struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

func (w *OutboxWorker) handle(ctx context.Context, msg *outbox.Message) error {
	switch msg.Topic {
	case outbox.TopicNotifications:
		var ref eventRef
		if err := json.Unmarshal(msg.Payload, &ref); err != nil {
			return err
		}
		return w.notifications.DispatchEventByID(ctx, ref.EventID)
	case outbox.TopicWebhooks:
		var ref eventRef
		if err := json.Unmarshal(msg.Payload, &ref); err != nil {
			return err
		}
		return w.webhooks.DispatchEventByID(ctx, ref.EventID)
	case outbox.TopicPush:
		var ref notificationRef
		if err := json.Unmarshal(msg.Payload, &ref); err != nil {
			return err
		}
		return w.push.SendForNotification(ctx, ref.NotificationID)
	default:
		return errUnknownTopic(msg.Topic)
	}
}

type errUnknownTopic outbox.Topic

func (e errUnknownTopic) Error() string {
	return "unknown outbox topic: " + string(e)
}
