package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/domain"
	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
)

func TestMonitorStopsOnCancel(t *testing.T) {
	fx := newFixture(t, 10, nil)
	monitor := NewMonitor(fx.sync, 10*time.Millisecond, logger.New(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- monitor.Run(ctx)
	}()

	// Let a few cycles run, then cancel at the sleep boundary
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	if fx.src.listCalls < 2 {
		t.Errorf("expected repeated cycles before cancel, got %d", fx.src.listCalls)
	}
}

func TestMonitorContinuesAfterRetryableError(t *testing.T) {
	fx := newFixture(t, 10, nil)
	fx.src.listErr = errors.New("bucket unreachable")
	monitor := NewMonitor(fx.sync, 10*time.Millisecond, logger.New(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- monitor.Run(ctx)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("retryable listing error must not stop the loop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	if fx.src.listCalls < 2 {
		t.Errorf("expected the loop to keep retrying, got %d cycles", fx.src.listCalls)
	}
}

func TestMonitorStopsOnStoreFailure(t *testing.T) {
	fx := newFixture(t, 10, map[string]string{"a": "soup"})
	fx.src.candidates = []domain.PhotoCandidate{candidate("a", time.Hour)}

	// Close the backing database so the processed-set check fails
	sqlDB, err := fx.db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("failed to close db: %v", err)
	}

	monitor := NewMonitor(fx.sync, 10*time.Millisecond, logger.New(nil))

	done := make(chan error, 1)
	go func() {
		done <- monitor.Run(context.Background())
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStoreFailure) {
			t.Errorf("expected ErrStoreFailure, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on store failure")
	}
}
