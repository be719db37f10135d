package svctree

import "testing"

func TestTaskDagReverseTopoLeavesFirst(t *testing.T) {
	d := newTaskDag()
	root := newTaskNode("root", false, nil)
	childA := newTaskNode("A", false, root)
	childB := newTaskNode("B", false, root)
	grandchild := newTaskNode("C", false, childB)

	d.insert(root)
	d.insert(childA)
	d.insert(childB)
	d.insert(grandchild)

	order := d.reverseTopoSnapshot()
	pos := make(map[*TaskNode]int, len(order))
	for i, n := range order {
		pos[n] = i
	}

	if pos[grandchild] >= pos[childB] {
		t.Fatalf("grandchild C must be visited before its parent B")
	}
	if pos[childB] >= pos[root] || pos[childA] >= pos[root] {
		t.Fatalf("children must be visited before root")
	}
	// siblings visited in reverse insertion order: B's subtree (incl. C)
	// before A's.
	if pos[childB] >= pos[childA] {
		t.Fatalf("sibling B (inserted after A) should be visited before A")
	}
}

func TestTaskDagParentOfByHandle(t *testing.T) {
	d := newTaskDag()
	root := newTaskNode("root", false, nil)
	d.insert(root)

	if got := d.parentOf(nil); got != nil {
		t.Fatalf("nil handle should resolve to nil parent")
	}

	h := &runtimeHandle{}
	if got := d.parentOf(h); got != nil {
		t.Fatalf("unregistered handle should resolve to nil parent")
	}

	d.registerHandle(h, root)
	if got := d.parentOf(h); got != root {
		t.Fatalf("expected registered handle to resolve to root")
	}
}

func TestTaskDagLenAndFinishedCount(t *testing.T) {
	d := newTaskDag()
	root := newTaskNode("root", false, nil)
	child := newTaskNode("child", false, root)
	d.insert(root)
	d.insert(child)

	if got := d.len(); got != 2 {
		t.Fatalf("expected len 2, got %d", got)
	}
	if got := d.finishedCount(); got != 0 {
		t.Fatalf("expected 0 finished, got %d", got)
	}
	child.markDone()
	if got := d.finishedCount(); got != 1 {
		t.Fatalf("expected 1 finished, got %d", got)
	}
}
