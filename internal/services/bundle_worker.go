package services

import (
	"context"
	"sync"
	"time"

	"fizzy/pkg/logger"
)

// BundleSweeper closes out accumulating digest bundles. Implemented by
// bundles.Sweeper.
type BundleSweeper interface {
	Sweep(ctx context.Context) error
}

// BundleWorker runs the digest sweep on a fixed interval. The sweep is
// idempotent per bundle, so overlapping runs or extra workers are safe.
type BundleWorker struct {
	sweeper  BundleSweeper
	log      *logger.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewBundleWorker(sweeper BundleSweeper, interval time.Duration, log *logger.Logger) *BundleWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &BundleWorker{
		sweeper:  sweeper,
		log:      log,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (w *BundleWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *BundleWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *BundleWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.sweeper.Sweep(context.Background()); err != nil {
				w.log.Errorf("bundle sweep: %v", err)
			}
		}
	}
}
