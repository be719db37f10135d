// Package svctree implements a structured-concurrency service supervisor.
//
// A Service is long-running user code with a Run method. A Manager takes
// ownership of one Service, runs its body as the root of a task DAG, and lets
// the body (or any task it spawns) fan out further tasks through
// Manager.SpawnTask. Cancellation - whether requested explicitly, triggered
// by a failing task, or triggered by an unexpected daemon-task exit - walks
// the DAG leaves first. Run then returns every captured task failure as a
// single AggregateFailure, or nil when no task failed.
package svctree
