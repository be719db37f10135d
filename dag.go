package svctree

import "sync"

// taskDag is the mapping from TaskNode to its ordered direct children. It
// also keeps an index from runtime handle to TaskNode so parentOf can answer
// in O(1) instead of the spec's naive O(n) scan - the scan's *behavior*
// (skip nodes whose handle isn't set yet, stop at the first match) is what
// the spec actually requires, not the linear scan itself.
//
// Every method takes the DAG's own mutex itself; callers must not hold it.
// SpawnTask additionally holds Manager.mu around its lifecycle check and the
// insert. This restores, by hand, the "only one goroutine touches manager
// bookkeeping at a time" assumption that the spec gets for free from a
// cooperative single-threaded scheduler but Go's preemptive goroutines do
// not provide. See DESIGN.md.
type taskDag struct {
	mu       sync.Mutex
	children map[*TaskNode][]*TaskNode
	roots    []*TaskNode
	byHandle map[*runtimeHandle]*TaskNode
}

func newTaskDag() *taskDag {
	return &taskDag{
		children: make(map[*TaskNode][]*TaskNode),
		byHandle: make(map[*runtimeHandle]*TaskNode),
	}
}

// insert adds node to the DAG, registering it as a root or appending it to
// its parent's child list in insertion order.
func (d *taskDag) insert(node *TaskNode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children[node] = nil
	if node.parent == nil {
		d.roots = append(d.roots, node)
		return
	}
	d.children[node.parent] = append(d.children[node.parent], node)
}

// registerHandle makes node discoverable by parentOf once its runtime handle
// has been assigned.
func (d *taskDag) registerHandle(h *runtimeHandle, node *TaskNode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byHandle[h] = node
}

// parentOf implements spec §4.4: find the TaskNode whose runtime handle
// equals h. A nil h (caller is not running inside any managed task) or an
// unmatched handle both yield a nil parent, meaning "fresh root spawner".
func (d *taskDag) parentOf(h *runtimeHandle) *TaskNode {
	if h == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byHandle[h]
}

// len reports the number of nodes currently tracked, including the service
// body's own root node.
func (d *taskDag) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.children)
}

// finishedCount reports how many tracked nodes have their Done event set.
func (d *taskDag) finishedCount() int {
	d.mu.Lock()
	nodes := make([]*TaskNode, 0, len(d.children))
	for n := range d.children {
		nodes = append(nodes, n)
	}
	d.mu.Unlock()

	count := 0
	for _, n := range nodes {
		if n.IsDone() {
			count++
		}
	}
	return count
}

// reverseTopoSnapshot returns every tracked node in reverse topological order
// - leaves before parents - with siblings visited in reverse insertion order
// and one subtree fully finished before the next one starts, per spec §4.2's
// tie-break rule. The DAG is copied under lock first so that nodes inserted
// concurrently after the snapshot is taken (e.g. by a task that raced the
// start of cancellation) don't perturb an in-progress walk; they are instead
// cancelled either by their parent's own cancel scope or by the final
// task-scope cancellation per spec §5.
func (d *taskDag) reverseTopoSnapshot() []*TaskNode {
	d.mu.Lock()
	childrenCopy := make(map[*TaskNode][]*TaskNode, len(d.children))
	for k, v := range d.children {
		cp := make([]*TaskNode, len(v))
		copy(cp, v)
		childrenCopy[k] = cp
	}
	roots := make([]*TaskNode, len(d.roots))
	copy(roots, d.roots)
	d.mu.Unlock()

	var out []*TaskNode
	var visit func(n *TaskNode)
	visit = func(n *TaskNode) {
		kids := childrenCopy[n]
		for i := len(kids) - 1; i >= 0; i-- {
			visit(kids[i])
		}
		out = append(out, n)
	}
	for i := len(roots) - 1; i >= 0; i-- {
		visit(roots[i])
	}
	return out
}
