package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 30 * time.Second

// BatchProcessor runs one drain cycle over the job queue.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) error
}

// Dispatcher drives the delivery loop: one batch at startup, then one per
// fixed tick. Ticks fire regardless of whether the previous batch finished,
// so two batches may overlap; the at-least-once semantics of the store
// contract make that safe for idempotent receiving clients.
type Dispatcher struct {
	processor BatchProcessor
	logger    *zap.Logger
	interval  time.Duration
	inFlight  sync.WaitGroup
}

func NewDispatcher(processor BatchProcessor, interval time.Duration, logger *zap.Logger) (*Dispatcher, error) {
	if processor == nil {
		return nil, fmt.Errorf("batch processor is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		processor: processor,
		logger:    logger,
		interval:  interval,
	}, nil
}

// Start blocks until ctx is canceled. Cancellation stops scheduling new
// batches and waits for in-flight batches to observe the cancellation.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d.logger.Info("dispatcher started", zap.Duration("interval", d.interval))

	d.runBatch(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.inFlight.Wait()
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
			d.inFlight.Add(1)
			go func() {
				defer d.inFlight.Done()
				d.runBatch(ctx)
			}()
		}
	}
}

func (d *Dispatcher) runBatch(ctx context.Context) {
	if err := d.processor.ProcessBatch(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// A store failure ends the batch; the next tick retries what is
		// still pending.
		d.logger.Error("delivery batch failed", zap.Error(err))
	}
}
