package svctree

import (
	"context"
	"log/slog"
	"reflect"
	"runtime"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TaskFunc is the signature every spawned task (and the service body) runs
// under. The context carries both this task's own scoped cancellation region
// and the runtime handle SpawnTask uses to infer parentage for anything this
// task spawns in turn.
type TaskFunc func(ctx context.Context) error

type taskConfig struct {
	daemon bool
	name   string
}

// TaskOption configures a single SpawnTask / SpawnChildService call.
type TaskOption func(*taskConfig)

// Daemon marks the spawned task as a daemon: if it returns cleanly, the
// service is cancelled and a DaemonTaskExitError is recorded.
func Daemon() TaskOption {
	return func(c *taskConfig) { c.daemon = true }
}

// WithName overrides the task's default name (the spawned function's
// reflected name).
func WithName(name string) TaskOption {
	return func(c *taskConfig) { c.name = name }
}

func resolveTaskConfig(fn TaskFunc, opts []TaskOption) taskConfig {
	cfg := taskConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = funcName(fn)
	}
	return cfg
}

func funcName(fn TaskFunc) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return "task"
}

type managerConfig struct {
	logger *slog.Logger
	meter  metric.Meter
	tracer trace.Tracer
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*managerConfig)

// WithLogger attaches a *slog.Logger the Manager uses for its debug trail.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) ManagerOption {
	return func(c *managerConfig) { c.logger = l }
}

// WithMeter attaches an OpenTelemetry Meter the Manager uses to record
// spawn/cancellation/daemon-exit counters. Defaults to a no-op meter.
func WithMeter(meter metric.Meter) ManagerOption {
	return func(c *managerConfig) { c.meter = meter }
}

// WithTracer attaches an OpenTelemetry Tracer the Manager uses to span each
// Run. Defaults to a no-op tracer.
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(c *managerConfig) { c.tracer = tracer }
}

func resolveManagerConfig(opts []ManagerOption) managerConfig {
	cfg := managerConfig{
		logger: slog.Default(),
		meter:  noopMeter(),
		tracer: noopTracer(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
