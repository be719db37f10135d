package svctree

// Stats is a point-in-time snapshot of task-count observability, matching
// the original's dataclass-shaped result rather than a live view into
// mutable counters.
type Stats struct {
	TotalCount    int
	FinishedCount int
}

// Stats returns the current snapshot: TotalCount excludes the service body's
// own root node, and FinishedCount is clamped to TotalCount to account for
// the window in which the body has finished but descendant tasks are still
// draining (see spec §9's open question on this).
func (m *Manager) Stats() Stats {
	total := m.dag.len() - 1
	if total < 0 {
		total = 0
	}
	finished := m.dag.finishedCount()
	if finished > total {
		finished = total
	}
	return Stats{TotalCount: total, FinishedCount: finished}
}
