package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeBatchProcessor struct {
	calls   atomic.Int64
	batchFn func(ctx context.Context) error
}

func (f *fakeBatchProcessor) ProcessBatch(ctx context.Context) error {
	f.calls.Add(1)
	if f.batchFn == nil {
		return nil
	}
	return f.batchFn(ctx)
}

func TestNewDispatcherValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(nil, time.Second, zap.NewNop()); err == nil {
		t.Fatal("expected error when processor is nil")
	}

	d, err := NewDispatcher(&fakeBatchProcessor{}, 0, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	if d.interval != defaultPollInterval {
		t.Fatalf("interval = %v, want %v", d.interval, defaultPollInterval)
	}
}

func TestDispatcherRunsInitialBatchAndTicks(t *testing.T) {
	t.Parallel()

	processor := &fakeBatchProcessor{}
	d, err := NewDispatcher(processor, 10*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Start(ctx); err != nil {
			t.Errorf("Start() error = %v", err)
		}
	}()

	deadline := time.After(2 * time.Second)
	for processor.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for ticks, calls = %d", processor.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}
}

func TestDispatcherSurvivesBatchFailures(t *testing.T) {
	t.Parallel()

	processor := &fakeBatchProcessor{
		batchFn: func(ctx context.Context) error {
			return errors.New("database is down")
		},
	}
	d, err := NewDispatcher(processor, 10*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for processor.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for retries, calls = %d", processor.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}
}

func TestDispatcherWaitsForInFlightBatches(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var finished atomic.Bool
	var first atomic.Bool
	first.Store(true)
	processor := &fakeBatchProcessor{
		batchFn: func(ctx context.Context) error {
			if first.CompareAndSwap(true, false) {
				return nil
			}
			<-release
			finished.Store(true)
			return nil
		},
	}
	d, err := NewDispatcher(processor, 10*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for processor.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for a ticked batch, calls = %d", processor.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Start() returned while a batch was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after the in-flight batch finished")
	}
	if !finished.Load() {
		t.Fatal("in-flight batch did not run to completion")
	}
}
