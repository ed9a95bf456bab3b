package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/webhook"
	fizzy_errors "fizzy/pkg/errors"
	"fizzy/pkg/logger"
)

type fakeDeliveryRepo struct {
	due      []webhook.Delivery
	claimErr error

	gotMaxAttempts int
	gotLimit       int
}

func (r *fakeDeliveryRepo) Create(context.Context, *webhook.Delivery) (bool, error) {
	return false, nil
}

func (r *fakeDeliveryRepo) GetByID(context.Context, uuid.UUID) (webhook.Delivery, error) {
	return webhook.Delivery{}, fizzy_errors.ErrNotFound
}

func (r *fakeDeliveryRepo) ListForWebhook(context.Context, uuid.UUID, int) ([]webhook.Delivery, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) ClaimDue(_ context.Context, _ time.Time, maxAttempts, limit int) ([]webhook.Delivery, error) {
	r.gotMaxAttempts = maxAttempts
	r.gotLimit = limit
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	return r.due, nil
}

func (r *fakeDeliveryRepo) MarkCompleted(context.Context, webhook.Delivery) error { return nil }

func (r *fakeDeliveryRepo) MarkErrored(context.Context, webhook.Delivery, time.Time) error {
	return nil
}

type fakeExecutor struct {
	executed []uuid.UUID
	err      error
}

func (e *fakeExecutor) Execute(_ context.Context, d webhook.Delivery) error {
	e.executed = append(e.executed, d.ID)
	return e.err
}

func TestDeliveryWorkerExecutesClaimedBatch(t *testing.T) {
	repo := &fakeDeliveryRepo{due: []webhook.Delivery{
		{ID: uuid.New(), State: webhook.DeliveryInProgress, Attempts: 1},
		{ID: uuid.New(), State: webhook.DeliveryInProgress, Attempts: 3},
	}}
	executor := &fakeExecutor{}
	w := NewDeliveryWorker(repo, executor, time.Second, 25, 10, logger.New("test"))

	w.processBatch()

	if len(executor.executed) != 2 {
		t.Errorf("executed %d deliveries, want 2", len(executor.executed))
	}
	if repo.gotMaxAttempts != 10 || repo.gotLimit != 25 {
		t.Errorf("claimed with maxAttempts=%d limit=%d, want 10 and 25", repo.gotMaxAttempts, repo.gotLimit)
	}
}

func TestDeliveryWorkerExecutorFailureDoesNotStopBatch(t *testing.T) {
	repo := &fakeDeliveryRepo{due: []webhook.Delivery{
		{ID: uuid.New()},
		{ID: uuid.New()},
	}}
	executor := &fakeExecutor{err: errors.New("boom")}
	w := NewDeliveryWorker(repo, executor, time.Second, 50, 10, logger.New("test"))

	w.processBatch()

	if len(executor.executed) != 2 {
		t.Errorf("executed %d deliveries despite errors, want 2", len(executor.executed))
	}
}

func TestDeliveryWorkerClaimFailure(t *testing.T) {
	repo := &fakeDeliveryRepo{claimErr: errors.New("db down")}
	executor := &fakeExecutor{}
	w := NewDeliveryWorker(repo, executor, time.Second, 50, 10, logger.New("test"))

	w.processBatch()

	if len(executor.executed) != 0 {
		t.Errorf("executed %d deliveries after a claim failure, want 0", len(executor.executed))
	}
}

func TestDeliveryWorkerDefaults(t *testing.T) {
	w := NewDeliveryWorker(&fakeDeliveryRepo{}, &fakeExecutor{}, 0, 0, 0, logger.New("test"))
	if w.interval != time.Second || w.batchSize != 50 || w.maxAttempts != 10 {
		t.Errorf("defaults = %s/%d/%d", w.interval, w.batchSize, w.maxAttempts)
	}
}

type fakeSweeper struct {
	calls int
}

func (s *fakeSweeper) Sweep(context.Context) error {
	s.calls++
	return nil
}

func TestBundleWorkerSweepsOnInterval(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := NewBundleWorker(sweeper, 5*time.Millisecond, logger.New("test"))

	w.Start()
	time.Sleep(25 * time.Millisecond)
	w.Stop()

	if sweeper.calls == 0 {
		t.Error("sweeper never ran")
	}
}
