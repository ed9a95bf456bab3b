package services

import (
	"context"
	"sync"
	"time"

	"fizzy/internal/domain/webhook"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// DeliveryExecutor performs one webhook delivery attempt end to end.
// Implemented by webhooks.Deliverer.
type DeliveryExecutor interface {
	Execute(ctx context.Context, delivery webhook.Delivery) error
}

// DeliveryWorker drains due webhook deliveries. Claiming uses row locks
// with skip-locked semantics, so several workers can run side by side
// without double-sending.
type DeliveryWorker struct {
	deliveries  repository.DeliveryRepository
	executor    DeliveryExecutor
	log         *logger.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewDeliveryWorker(
	deliveries repository.DeliveryRepository,
	executor DeliveryExecutor,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	log *logger.Logger,
) *DeliveryWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &DeliveryWorker{
		deliveries:  deliveries,
		executor:    executor,
		log:         log,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		stopChan:    make(chan struct{}),
	}
}

func (w *DeliveryWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *DeliveryWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *DeliveryWorker) run() {
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

func (w *DeliveryWorker) processBatch() {
	ctx := context.Background()
	due, err := w.deliveries.ClaimDue(ctx, time.Now(), w.maxAttempts, w.batchSize)
	if err != nil {
		w.log.Errorf("claim due deliveries: %v", err)
		return
	}

	for _, delivery := range due {
		if err := w.executor.Execute(ctx, delivery); err != nil {
			w.log.Errorf("execute delivery %s: %v", delivery.ID, err)
		}
	}
}
