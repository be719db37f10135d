package svctree

import "strings"

// LifecycleError reports a violation of the Manager's API contract: running
// twice, cancelling before start, reading a runtime handle before it's set,
// and similar precondition failures.
type LifecycleError struct {
	Msg string
}

func (e *LifecycleError) Error() string { return "svctree: lifecycle: " + e.Msg }

// DaemonTaskExitError is captured when a task marked daemon returns cleanly.
// A clean daemon return means the service can no longer make progress, so
// the Manager treats it exactly like a failure: it cancels the service and
// records this error in the error buffer.
type DaemonTaskExitError struct {
	Name string
}

func (e *DaemonTaskExitError) Error() string {
	return "svctree: daemon task " + e.Name + " exited unexpectedly"
}

// ServiceCancelledError is returned to external callers (see ExternalAPI)
// when the service is not - or stops being - in the running state.
type ServiceCancelledError struct {
	Msg string
}

func (e *ServiceCancelledError) Error() string { return "svctree: service cancelled: " + e.Msg }

// AggregateFailure is the composite error Manager.Run returns when one or
// more tasks failed. Errs preserves the order failures were captured in.
type AggregateFailure struct {
	Errs []error
}

func (e *AggregateFailure) Error() string {
	if len(e.Errs) == 1 {
		return "svctree: " + e.Errs[0].Error()
	}
	var b strings.Builder
	b.WriteString("svctree: aggregate failure (")
	for i, err := range e.Errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	b.WriteString(")")
	return b.String()
}

// Unwrap exposes the captured failures to errors.Is / errors.As, per the
// Go 1.20+ multi-error convention.
func (e *AggregateFailure) Unwrap() []error { return e.Errs }
