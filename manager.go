package svctree

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Service is user-supplied long-running code managed by a Manager. Run may
// spawn further tasks via GetManager().SpawnTask; returning cleanly signals
// "done", returning an error signals failure.
type Service interface {
	Run(ctx context.Context) error
	GetManager() *Manager
}

// manageable is implemented by BaseService; NewManager uses it to attach
// itself to the service without requiring Service itself to expose a setter.
type manageable interface {
	attach(*Manager)
}

// BaseService is embedded by Service implementations to get GetManager/attach
// for free. Go's garbage collector traces reference cycles, so - unlike the
// original, which needs a weakref to avoid leaking Service<->Manager
// reference cycles under refcounting - the back-reference here is just a
// plain pointer assigned once, after construction, by NewManager.
type BaseService struct {
	manager atomic.Pointer[Manager]
}

// GetManager returns the Manager attached to this service, or nil if the
// service has never been passed to NewManager.
func (b *BaseService) GetManager() *Manager { return b.manager.Load() }

func (b *BaseService) attach(m *Manager) { b.manager.Store(m) }

type capturedFailure struct {
	origin string
	err    error
}

// Manager owns the task DAG and lifecycle state machine for one Service.
type Manager struct {
	service Service
	dag     *taskDag

	logger  *slog.Logger
	meter   managerMetrics
	tracer  managerTracer

	// mu guards every piece of mutable bookkeeping below: the lifecycle
	// flags, the live task count, and (transitively, via dag's own lock)
	// DAG mutation. Folding all of it under one mutex restores the "only
	// one goroutine touches manager state at a time" assumption the spec
	// gets for free from a cooperative scheduler - see DESIGN.md.
	mu        sync.Mutex
	runGuard  int32 // atomic: 0 = never run, 1 = run() claimed
	started   bool
	cancelled bool
	stopping  bool
	finished  bool
	live      int  // count of outstanding task goroutines, including the root
	draining  bool // true once live has touched zero; gates further spawns

	startedCh   chan struct{}
	cancelledCh chan struct{}
	stoppingCh  chan struct{}
	finishedCh  chan struct{}

	taskWG sync.WaitGroup

	errMu   sync.Mutex
	errs    []capturedFailure
	finalErr error
}

// NewManager constructs a Manager over service. If service embeds
// BaseService (or otherwise implements the attach contract), the Manager
// attaches itself so service.GetManager() resolves from inside Run.
func NewManager(service Service, opts ...ManagerOption) *Manager {
	cfg := resolveManagerConfig(opts)
	m := &Manager{
		service:     service,
		dag:         newTaskDag(),
		logger:      cfg.logger,
		meter:       newManagerMetrics(cfg.meter),
		tracer:      managerTracer{t: cfg.tracer},
		startedCh:   make(chan struct{}),
		cancelledCh: make(chan struct{}),
		stoppingCh:  make(chan struct{}),
		finishedCh:  make(chan struct{}),
	}
	if a, ok := service.(manageable); ok {
		a.attach(m)
	}
	return m
}

// IsStarted reports whether Run has set the started event.
func (m *Manager) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// IsCancelled reports whether cancellation has been requested.
func (m *Manager) IsCancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}

// IsStopping reports whether the Manager has begun tearing down.
func (m *Manager) IsStopping() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopping
}

// IsFinished reports whether Run has returned (or is about to).
func (m *Manager) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// IsRunning is the derived state: started and neither stopping nor finished.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningLocked()
}

func (m *Manager) runningLocked() bool {
	return m.started && !m.stopping && !m.finished
}

func (m *Manager) statusDump() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("started=%t running=%t stopping=%t finished=%t",
		m.started, m.runningLocked(), m.stopping, m.finished)
}

// WaitStarted blocks until Run has set the started event.
func (m *Manager) WaitStarted(ctx context.Context) error {
	select {
	case <-m.startedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitStopping blocks until the Manager has begun tearing down.
func (m *Manager) WaitStopping(ctx context.Context) error {
	select {
	case <-m.stoppingCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitFinished blocks until Run has returned.
func (m *Manager) WaitFinished(ctx context.Context) error {
	select {
	case <-m.finishedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until Run has returned and yields the same error Run returned.
func (m *Manager) Wait() error {
	<-m.finishedCh
	return m.finalErr
}

// Cancel requests cancellation. Returns a *LifecycleError if the service was
// never started, matching the original's refusal to cancel a service that
// hasn't run; a no-op once the service has already stopped; idempotent while
// running. Never blocks.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return &LifecycleError{Msg: "cannot cancel a service which was never started"}
	}
	if !m.runningLocked() {
		m.mu.Unlock()
		return nil
	}
	already := m.cancelled
	m.cancelled = true
	m.mu.Unlock()
	if !already {
		m.meter.cancellations.Add(context.Background(), 1)
		close(m.cancelledCh)
	}
	return nil
}

func (m *Manager) captureError(origin string, err error) {
	m.errMu.Lock()
	m.errs = append(m.errs, capturedFailure{origin: origin, err: err})
	m.errMu.Unlock()
}

func (m *Manager) drainErrors() []error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	if len(m.errs) == 0 {
		return nil
	}
	out := make([]error, len(m.errs))
	for i, f := range m.errs {
		out[i] = fmt.Errorf("%s: %w", f.origin, f.err)
	}
	return out
}

// Run is the entry point: it spawns the service body as the root of the task
// DAG, spawns the cancellation handler, sets started, and blocks until every
// spawned task has settled. It returns at most one error: an *AggregateFailure*
// wrapping every captured per-task failure in the order they were captured.
func (m *Manager) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.runGuard, 0, 1) {
		return &LifecycleError{Msg: "cannot run a service with the run lock already engaged"}
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return &LifecycleError{Msg: "cannot run a service which is already started"}
	}
	m.mu.Unlock()

	runCtx, span := m.tracer.startRun(ctx)
	defer span.end()

	taskCtx, cancelTaskScope := context.WithCancel(context.Background())
	drained := make(chan struct{})

	var sysWG sync.WaitGroup
	sysWG.Add(1)
	go func() {
		defer sysWG.Done()
		m.handleCancelled(cancelTaskScope, drained)
	}()

	sysWG.Add(1)
	go func() {
		defer sysWG.Done()
		select {
		case <-runCtx.Done():
			<-m.startedCh
			_ = m.Cancel()
		case <-drained:
		}
	}()

	root := newTaskNode("run", false, nil)
	m.dag.insert(root)
	m.mu.Lock()
	m.live = 1
	m.taskWG.Add(1)
	m.mu.Unlock()
	go func() {
		// The body starts only once started is set, so it may spawn at once.
		<-m.startedCh
		m.runManagedTask(taskCtx, root, m.service.Run)
		m.finishTask()
	}()

	m.setStarted()

	m.taskWG.Wait()
	close(drained)
	cancelTaskScope()
	sysWG.Wait()

	var runErr error
	if errs := m.drainErrors(); len(errs) > 0 {
		runErr = &AggregateFailure{Errs: errs}
		m.finalErr = runErr
	}

	m.setStopping()
	m.setFinished()
	return runErr
}

func (m *Manager) setStarted() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	close(m.startedCh)
}

func (m *Manager) setStopping() {
	m.mu.Lock()
	m.stopping = true
	m.mu.Unlock()
	close(m.stoppingCh)
}

func (m *Manager) setFinished() {
	m.mu.Lock()
	m.finished = true
	m.mu.Unlock()
	close(m.finishedCh)
}

// finishTask decrements the live task count and marks the manager as
// draining once it reaches zero, then releases the corresponding taskWG
// slot. All three happen under the same lock used by SpawnTask's own
// check-and-increment so the two can never race past each other - see
// DESIGN.md for why that matters for sync.WaitGroup correctness here.
func (m *Manager) finishTask() {
	m.mu.Lock()
	m.live--
	if m.live == 0 {
		m.draining = true
	}
	m.taskWG.Done()
	m.mu.Unlock()
}

// handleCancelled runs in the system scope: it waits for cancellation (or
// for the run to drain on its own), then walks the DAG leaves-first,
// requesting each node's cancellation and waiting for it to settle before
// moving on, and finally cancels the task scope itself so nothing left
// running outside a tracked region can block Run from returning.
func (m *Manager) handleCancelled(cancelTaskScope context.CancelFunc, drained <-chan struct{}) {
	select {
	case <-m.cancelledCh:
	case <-drained:
		return
	}

	m.logger.Debug("cancellation requested; walking task DAG leaves-first")
	for _, node := range m.dag.reverseTopoSnapshot() {
		node.requestCancel()
		select {
		case <-node.Done():
		case <-drained:
			return
		}
	}
	cancelTaskScope()
}

// runManagedTask is the wrapper every task (including the service body) runs
// under: it records the runtime handle, opens the task's own cancel scope,
// runs fn, captures any error (triggering cancellation), handles the
// daemon-exit case, and unconditionally marks the node done on the way out.
func (m *Manager) runManagedTask(parentCtx context.Context, node *TaskNode, fn TaskFunc) {
	start := time.Now()
	handle := &runtimeHandle{}
	_ = node.setHandle(handle)

	ctx, cancel := context.WithCancel(parentCtx)
	node.setCancel(cancel)
	defer cancel()
	m.dag.registerHandle(handle, node)

	ctx = contextWithHandle(ctx, handle)

	m.logger.Debug("task starting", "name", node.name, "daemon", node.daemon)
	err := fn(ctx)
	m.meter.taskDuration.Record(context.Background(), float64(time.Since(start).Milliseconds()))

	switch {
	case err != nil:
		m.logger.Debug("task exited with error", "name", node.name, "error", err)
		m.captureError(node.name, err)
		_ = m.Cancel()
	case node.daemon:
		m.logger.Debug("daemon task exited unexpectedly", "name", node.name)
		_ = m.Cancel()
		m.captureError(node.name, &DaemonTaskExitError{Name: node.name})
		m.meter.daemonExits.Add(context.Background(), 1)
	default:
		m.logger.Debug("task finished", "name", node.name)
	}

	node.markDone()
}

// SpawnTask schedules fn to run as a new task whose parent is inferred from
// ctx (the calling task's own context, as handed to it by runManagedTask).
// Precondition: the service must be running. If cancellation has already
// been requested, SpawnTask is a silent no-op - it neither errors nor adds a
// DAG entry.
func (m *Manager) SpawnTask(ctx context.Context, fn TaskFunc, opts ...TaskOption) error {
	cfg := resolveTaskConfig(fn, opts)

	m.mu.Lock()
	if !m.runningLocked() {
		m.mu.Unlock()
		return &LifecycleError{Msg: "tasks may not be scheduled if the service is not running"}
	}
	if m.cancelled {
		m.mu.Unlock()
		m.logger.Debug("service is being cancelled; dropping task", "name", cfg.name)
		return nil
	}
	if m.draining {
		m.mu.Unlock()
		return &LifecycleError{Msg: "tasks may not be scheduled once the task scope has drained"}
	}

	parent := m.dag.parentOf(handleFromContext(ctx))
	node := newTaskNode(cfg.name, cfg.daemon, parent)
	m.dag.insert(node)
	m.live++
	m.taskWG.Add(1)
	m.mu.Unlock()

	m.meter.spawned.Add(context.Background(), 1, metricAttrs(cfg)...)
	if parent == nil {
		m.logger.Debug("new root task added to DAG", "name", cfg.name)
	} else {
		m.logger.Debug("new child task added to DAG", "name", cfg.name, "parent", parent.name)
	}

	go func() {
		m.runManagedTask(ctx, node, fn)
		m.finishTask()
	}()
	return nil
}

// SpawnChildService constructs a new Manager of the same kind over service
// and schedules its Run via SpawnTask, returning the child manager
// immediately without waiting for it to start.
func (m *Manager) SpawnChildService(ctx context.Context, service Service, opts ...TaskOption) (*Manager, error) {
	child := NewManager(service)

	cfg := taskConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		opts = append(opts, WithName(fmt.Sprintf("%T", service)))
	}

	if err := m.SpawnTask(ctx, child.Run, opts...); err != nil {
		return nil, err
	}
	return child, nil
}

func metricAttrs(cfg taskConfig) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("task_name", cfg.name),
		attribute.Bool("daemon", cfg.daemon),
	}
}

// Stop requests cancellation and waits for Run to finish, or for ctx to
// expire first.
func (m *Manager) Stop(ctx context.Context) error {
	_ = m.Cancel()
	select {
	case <-m.finishedCh:
		return m.finalErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
