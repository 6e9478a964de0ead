package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/minhvu/order-approval/internal/domain/event"
)

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

func TestDispatchCallsSubscribers(t *testing.T) {
	d := NewDispatcher(testLogger{})

	var calls int
	d.Subscribe(event.TypeOrderTransitioned, func(ctx context.Context, evt *event.Event) error {
		calls++
		if evt.OrderID != 7 {
			t.Errorf("expected order 7, got %d", evt.OrderID)
		}
		return nil
	})
	d.Subscribe(event.TypeOrderTransitioned, func(ctx context.Context, evt *event.Event) error {
		calls++
		return nil
	})

	evt := event.New(event.TypeOrderTransitioned, 7, "SO-1")
	if err := d.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 handler calls, got %d", calls)
	}
}

func TestDispatchScopesByEventType(t *testing.T) {
	d := NewDispatcher(testLogger{})

	var created, transitioned int
	d.Subscribe(event.TypeOrderCreated, func(ctx context.Context, evt *event.Event) error {
		created++
		return nil
	})
	d.Subscribe(event.TypeOrderTransitioned, func(ctx context.Context, evt *event.Event) error {
		transitioned++
		return nil
	})

	if err := d.Dispatch(context.Background(), event.New(event.TypeOrderCreated, 1, "SO-1")); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if created != 1 || transitioned != 0 {
		t.Errorf("expected only the created handler to fire, got %d/%d", created, transitioned)
	}
}

func TestDispatchReturnsHandlerError(t *testing.T) {
	d := NewDispatcher(testLogger{})

	wantErr := errors.New("handler broke")
	d.SubscribeNamed(event.TypeOrderTransitioned, "broken", func(ctx context.Context, evt *event.Event) error {
		return wantErr
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeOrderTransitioned, 1, "SO-1"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
}

func TestDispatchAsyncCompletesBeforeClose(t *testing.T) {
	d := NewDispatcher(testLogger{})

	var calls atomic.Int64
	var started sync.WaitGroup
	started.Add(1)
	d.Subscribe(event.TypeOrderTransitioned, func(ctx context.Context, evt *event.Event) error {
		started.Done()
		calls.Add(1)
		return nil
	})

	d.DispatchAsync(context.Background(), event.New(event.TypeOrderTransitioned, 1, "SO-1"))
	started.Wait()

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected async handler to finish before Close returns, got %d", calls.Load())
	}
}

func TestDispatchAfterCloseFails(t *testing.T) {
	d := NewDispatcher(testLogger{})
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Dispatch(context.Background(), event.New(event.TypeOrderTransitioned, 1, "SO-1")); err == nil {
		t.Fatal("expected Dispatch to fail after Close")
	}
}
