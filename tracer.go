package svctree

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// managerTracer wraps an otel Tracer the way the teacher's orchestrator
// wraps one per component (CancellationManager.tracer, DAGEngine.tracer,
// Scheduler.tracer all hold a trace.Tracer obtained once at construction).
type managerTracer struct {
	t trace.Tracer
}

type endableSpan struct {
	span trace.Span
}

func (s endableSpan) end() { s.span.End() }

func (mt managerTracer) startRun(ctx context.Context) (context.Context, endableSpan) {
	spanCtx, span := mt.t.Start(ctx, "svctree.manager.run")
	return spanCtx, endableSpan{span: span}
}
