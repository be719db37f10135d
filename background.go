package svctree

import (
	"context"
	"errors"
)

// StartBackgroundService constructs a Manager over service, starts it
// running in a new goroutine, and blocks until it has started (or failed to
// start). It returns the Manager plus a stop function the caller must defer
// to guarantee the service is cancelled and fully drained on exit - normal
// or abrupt - matching spec §4.6's scoped-acquisition semantics as closely
// as Go's lack of a native "with" block allows.
func StartBackgroundService(ctx context.Context, service Service, opts ...ManagerOption) (*Manager, func(context.Context) error, error) {
	m := NewManager(service, opts...)

	go func() {
		_ = m.Run(ctx)
	}()

	select {
	case <-m.startedCh:
	case <-m.finishedCh:
		err := m.finalErr
		if err == nil {
			err = errors.New("svctree: service exited before starting")
		}
		return m, func(context.Context) error { return nil }, err
	}

	stop := func(stopCtx context.Context) error {
		return m.Stop(stopCtx)
	}
	return m, stop, nil
}

// BackgroundService runs service for the duration of fn: it starts the
// service, invokes fn with the running Manager, and unconditionally stops
// the service (cancel + wait for finished) before returning, regardless of
// how fn exits.
func BackgroundService(ctx context.Context, service Service, fn func(context.Context, *Manager) error, opts ...ManagerOption) error {
	m, stop, err := StartBackgroundService(ctx, service, opts...)
	if err != nil {
		return err
	}
	defer stop(context.Background())
	return fn(ctx, m)
}
