package svctree

import (
	"context"
	"testing"
	"time"
)

func TestStartBackgroundServiceStopsOnFuncReturn(t *testing.T) {
	svc := newFuncService(func(ctx context.Context, mgr *Manager) error {
		<-ctx.Done()
		return nil
	})

	m, stop, err := StartBackgroundService(context.Background(), svc)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !m.IsStarted() {
		t.Fatalf("expected manager to report started")
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
	if !m.IsFinished() {
		t.Fatalf("expected finished after stop")
	}
}

func TestStartBackgroundServiceImmediateReturnIsNotAnError(t *testing.T) {
	svc := newFuncService(func(ctx context.Context, mgr *Manager) error {
		return nil // returns immediately, never really "running"
	})

	_, _, err := StartBackgroundService(context.Background(), svc)
	if err != nil {
		t.Fatalf("a clean immediate return is not itself an error: %v", err)
	}
}

func TestBackgroundServiceRunsFnThenStops(t *testing.T) {
	svc := newFuncService(func(ctx context.Context, mgr *Manager) error {
		<-ctx.Done()
		return nil
	})

	called := false
	err := BackgroundService(context.Background(), svc, func(ctx context.Context, mgr *Manager) error {
		called = true
		if !mgr.IsRunning() {
			t.Fatalf("expected manager to be running while fn executes")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("expected fn to be invoked")
	}
	waitForCondition(t, time.Second, svc.GetManager().IsFinished)
}
