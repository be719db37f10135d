package svctree

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExternalAPIBeforeRunFails(t *testing.T) {
	svc := newFuncService(func(ctx context.Context, mgr *Manager) error { return nil })
	_, err := ExternalAPI(context.Background(), svc, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	var cancelled *ServiceCancelledError
	if !errors.As(err, &cancelled) {
		t.Fatalf("expected *ServiceCancelledError before Run, got %v", err)
	}
}

func TestExternalAPISucceedsWhileRunning(t *testing.T) {
	svc := newFuncService(func(ctx context.Context, mgr *Manager) error {
		<-ctx.Done()
		return nil
	})
	m := NewManager(svc)
	go func() { _ = m.Run(context.Background()) }()
	waitForCondition(t, time.Second, m.IsRunning)

	v, err := ExternalAPI(context.Background(), svc, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("expected ok, got %q", v)
	}
	_ = m.Stop(context.Background())
}

func TestExternalAPIPropagatesFnError(t *testing.T) {
	svc := newFuncService(func(ctx context.Context, mgr *Manager) error {
		<-ctx.Done()
		return nil
	})
	m := NewManager(svc)
	go func() { _ = m.Run(context.Background()) }()
	waitForCondition(t, time.Second, m.IsRunning)

	sentinel := errors.New("boom")
	_, err := ExternalAPI(context.Background(), svc, func(ctx context.Context) (int, error) {
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error to propagate, got %v", err)
	}
	_ = m.Stop(context.Background())
}
