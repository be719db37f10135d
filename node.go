package svctree

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// runtimeHandle is the Go stand-in for "the currently running task" that the
// original implementation gets for free from its scheduler. Go has no public
// API for "which goroutine is this", so the managed task wrapper mints one of
// these per task and threads it through the task's context; SpawnTask reads
// it back out of the caller's context to infer the caller's TaskNode.
type runtimeHandle struct{}

type ctxKey struct{}

func contextWithHandle(ctx context.Context, h *runtimeHandle) context.Context {
	return context.WithValue(ctx, ctxKey{}, h)
}

func handleFromContext(ctx context.Context) *runtimeHandle {
	h, _ := ctx.Value(ctxKey{}).(*runtimeHandle)
	return h
}

// TaskNode is the identity and lifecycle state of one spawned task (or the
// service body itself). Equality is by identity (pointer), matching the
// spec's "equality/hash by id alone" - there is no exported accessor for the
// id because nothing outside the package needs to compare nodes.
type TaskNode struct {
	id     uuid.UUID
	name   string
	daemon bool
	parent *TaskNode

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	handle     *runtimeHandle
	handleSet  bool

	doneCh   chan struct{}
	doneOnce sync.Once

	cancelRequested bool // guarded by mu
}

func newTaskNode(name string, daemon bool, parent *TaskNode) *TaskNode {
	return &TaskNode{
		id:     uuid.New(),
		name:   name,
		daemon: daemon,
		parent: parent,
		doneCh: make(chan struct{}),
	}
}

// Name is the human-readable label given at spawn time.
func (n *TaskNode) Name() string { return n.name }

// Daemon reports whether an unexpected clean return of this task is treated
// as a service failure.
func (n *TaskNode) Daemon() bool { return n.daemon }

// Parent returns the node's parent, or nil if this is a root.
func (n *TaskNode) Parent() *TaskNode { return n.parent }

// Done is closed exactly once, after this task's managed body has returned
// (successfully, with an error, or via cancellation) and all of its own
// bookkeeping has settled.
func (n *TaskNode) Done() <-chan struct{} { return n.doneCh }

// IsDone reports whether Done has already fired.
func (n *TaskNode) IsDone() bool {
	select {
	case <-n.doneCh:
		return true
	default:
		return false
	}
}

func (n *TaskNode) markDone() {
	n.doneOnce.Do(func() { close(n.doneCh) })
}

// setCancel records the cancel scope for this task. Called once, by the
// managed task wrapper, before the task's function starts running.
func (n *TaskNode) setCancel(cancel context.CancelFunc) {
	n.mu.Lock()
	n.cancelFunc = cancel
	requested := n.cancelRequested
	n.mu.Unlock()
	if requested {
		cancel()
	}
}

// requestCancel triggers this task's scoped cancellation region. Safe to call
// multiple times and safe to call before setCancel has run: the request is
// remembered, and setCancel cancels the new scope as soon as it is recorded,
// so the task starts out already cancelled.
func (n *TaskNode) requestCancel() {
	n.mu.Lock()
	n.cancelRequested = true
	cancel := n.cancelFunc
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// setHandle records the runtime handle for this task exactly once. Returns a
// *LifecycleError if called a second time, matching the spec's
// unset-to-set-once invariant on runtime_handle.
func (n *TaskNode) setHandle(h *runtimeHandle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.handleSet {
		return &LifecycleError{Msg: "runtime handle already set for task " + n.name}
	}
	n.handle = h
	n.handleSet = true
	return nil
}

// handleLocked returns the handle and whether it has been set. It has no
// caller at present: taskDag resolves handles through its byHandle index,
// which only holds nodes whose handle has been registered.
func (n *TaskNode) handleLocked() (*runtimeHandle, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.handle, n.handleSet
}
