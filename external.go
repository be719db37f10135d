package svctree

import "context"

// ExternalAPI wraps a call made from outside any of the service's own tasks
// (an "external API method" in spec terms) so that it can never be observed
// to complete once the service has stopped running.
//
// It races fn against the service's own shutdown: if the service stops
// running before fn returns, ExternalAPI returns a *ServiceCancelledError
// and abandons fn's result - fn's context is cancelled so it isn't left
// running past the point anyone is listening for its answer.
//
// Go has no generic methods, so unlike the original's method decorator this
// is a free function: call it from inside the method you want to guard,
// passing a closure over the receiver.
func ExternalAPI[T any](ctx context.Context, svc Service, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	m := svc.GetManager()
	if m == nil {
		return zero, &ServiceCancelledError{Msg: "service has not been run"}
	}
	if !m.IsRunning() {
		return zero, &ServiceCancelledError{Msg: "service is not running: " + m.statusDump()}
	}

	type payload struct {
		v   T
		err error
	}

	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan payload, 1)

	go func() {
		v, err := fn(innerCtx)
		select {
		case ch <- payload{v: v, err: err}:
		case <-innerCtx.Done():
		}
	}()

	go func() {
		cancelledMsg := "service is not running: " + m.statusDump()
		if m.IsStopping() || m.IsFinished() {
			select {
			case ch <- payload{err: &ServiceCancelledError{Msg: cancelledMsg}}:
			case <-innerCtx.Done():
			}
			return
		}
		select {
		case <-m.stoppingCh:
			select {
			case ch <- payload{err: &ServiceCancelledError{Msg: "service is not running: " + m.statusDump()}}:
			case <-innerCtx.Done():
			}
		case <-innerCtx.Done():
		}
	}()

	p := <-ch
	cancel()
	if p.err != nil {
		return zero, p.err
	}
	return p.v, nil
}
