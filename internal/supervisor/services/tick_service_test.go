package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickServiceSkipsOverlappingRun(t *testing.T) {
	var running int32
	var overlapDetected int32
	var calls int32

	svc := NewTickService("test-tick", 5*time.Millisecond, func(ctx context.Context) {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			atomic.StoreInt32(&overlapDetected, 1)
			return
		}
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&running, 0)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if atomic.LoadInt32(&overlapDetected) != 0 {
		t.Fatal("TickService allowed an overlapping run")
	}
	if atomic.LoadInt32(&calls) == 0 {
		t.Fatal("expected at least one tick to run")
	}
}

func TestTickServiceStopsOnContextCancel(t *testing.T) {
	svc := NewTickService("test-tick", time.Millisecond, func(ctx context.Context) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Serve(ctx)
	if err != context.Canceled {
		t.Fatalf("Serve() error = %v, want context.Canceled", err)
	}
}
