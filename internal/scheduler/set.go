package scheduler

// SetNode is the SystemSet of spec §3: a grouping node with ordering
// edges, run-conditions, and an optional backing system. A node with a
// nil System is a pure grouping/ordering node — membership in it is
// transitive for ordering purposes but it never itself "runs" anything
// beyond cascading its children's completion.
type SetNode struct {
	Label Label
	// System is nil for a pure group.
	System System

	// InSets lists the parent sets this node is a direct member of.
	InSets []Label
	// DependsOn lists labels this node must run after ("after" edges).
	DependsOn []Label
	// Precedes lists labels this node must run before ("before" edges).
	Precedes []Label

	RunConditions []BoolSystem

	// Executor names the worker pool backing systems in this node
	// should be dispatched to. Empty means the schedule's default pool.
	Executor Label
}

func (n *SetNode) clone() *SetNode {
	cp := *n
	cp.InSets = append([]Label(nil), n.InSets...)
	cp.DependsOn = append([]Label(nil), n.DependsOn...)
	cp.Precedes = append([]Label(nil), n.Precedes...)
	cp.RunConditions = append([]BoolSystem(nil), n.RunConditions...)
	if n.System != nil {
		cp.System = n.System.Clone()
	}
	return &cp
}

// mutation is a queued structural change to a schedule's set map, applied
// in FIFO order at Build time — this is the "pending command queue" of
// spec §3's Schedule, distinct from the world-data cmdqueue.
type mutation func(sets map[Label]*SetNode) error

// addOrMergeSet inserts node, merging its ordering edges into any
// already-registered node under the same label rather than overwriting
// it — this is what lets configure_sets calls and add_systems calls for
// the same label compose instead of clobbering each other.
func addOrMergeSet(sets map[Label]*SetNode, node *SetNode) error {
	existing, ok := sets[node.Label]
	if !ok {
		sets[node.Label] = node
		return nil
	}
	if node.System != nil {
		if existing.System != nil {
			return ErrDuplicateLabel
		}
		existing.System = node.System
	}
	existing.InSets = append(existing.InSets, node.InSets...)
	existing.DependsOn = append(existing.DependsOn, node.DependsOn...)
	existing.Precedes = append(existing.Precedes, node.Precedes...)
	existing.RunConditions = append(existing.RunConditions, node.RunConditions...)
	if existing.Executor == (Label{}) {
		existing.Executor = node.Executor
	}
	return nil
}
