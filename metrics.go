package svctree

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func noopMeter() metric.Meter {
	return metricnoop.NewMeterProvider().Meter("svctree")
}

func noopTracer() trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer("svctree")
}

// managerMetrics mirrors the "NewXxx(meter)" instrumentation pattern used
// throughout the teacher's orchestrator (CancellationManager, DAGEngine,
// Scheduler, WorkflowStore all build their counters this way in their
// constructors).
type managerMetrics struct {
	spawned       metric.Int64Counter
	cancellations metric.Int64Counter
	daemonExits   metric.Int64Counter
	taskDuration  metric.Float64Histogram
}

func newManagerMetrics(meter metric.Meter) managerMetrics {
	spawned, _ := meter.Int64Counter("svctree_tasks_spawned_total")
	cancellations, _ := meter.Int64Counter("svctree_cancellations_total")
	daemonExits, _ := meter.Int64Counter("svctree_daemon_exits_total")
	taskDuration, _ := meter.Float64Histogram("svctree_task_duration_ms")
	return managerMetrics{
		spawned:       spawned,
		cancellations: cancellations,
		daemonExits:   daemonExits,
		taskDuration:  taskDuration,
	}
}
