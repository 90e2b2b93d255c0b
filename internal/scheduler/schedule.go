package scheduler

import (
	"sort"
	"sync"
)

// node is the cache's internal representation of one SetNode, carrying
// both ordering edges (dependsOn/successors, derived from after/before/
// chain) and membership edges (parents/children, derived from in_set).
// These are deliberately kept separate: ordering gates when a node may
// run, membership gates when a node is even considered, per spec §4.4/§4.6.
type node struct {
	label Label
	set   *SetNode

	parents  []int
	children []int

	dependsOn  []int
	successors []int
}

// graphCache is the schedule's precomputed cache from spec §3: the nodes
// sorted by label with a label-to-index map, plus each node's parents,
// children, ordering predecessors and successors, rebuilt (in full)
// whenever the schedule's structure changes.
type graphCache struct {
	nodes []node
	index map[Label]int

	// roots are nodes with no ordering predecessors and no parent sets
	// at all — the initial seed for ScheduleRunner.Run.
	roots []int

	warnings []error
}

// Schedule holds a named collection of sets, builds the dependency graph
// on demand, and accepts queued structural mutations between runs (spec
// §3's Schedule / §4.4's build algorithm).
type Schedule struct {
	mu      sync.Mutex
	Label   Label
	sets    map[Label]*SetNode
	pending []mutation
	cache   *graphCache
	built   bool
}

// NewSchedule constructs an empty, unbuilt schedule under label.
func NewSchedule(label Label) *Schedule {
	return &Schedule{
		Label: label,
		sets:  make(map[Label]*SetNode),
	}
}

// Enqueue appends a structural mutation, applied the next time Build
// runs. Mutations are never applied mid-run, only between schedule
// invocations, per spec §3's lifecycle note.
func (s *Schedule) Enqueue(m mutation) {
	s.mu.Lock()
	s.pending = append(s.pending, m)
	s.built = false
	s.mu.Unlock()
}

// AddSet queues the insertion (or merge, if the label already exists) of
// node into the schedule.
func (s *Schedule) AddSet(n *SetNode) {
	s.Enqueue(func(sets map[Label]*SetNode) error {
		return addOrMergeSet(sets, n)
	})
}

// Chain queues sequential after-edges between the given labels in order,
// realizing the `.chain()` builder sugar of spec §4.4.
func (s *Schedule) Chain(labels ...Label) {
	s.Enqueue(func(sets map[Label]*SetNode) error {
		for i := 1; i < len(labels); i++ {
			cur, ok := sets[labels[i]]
			if !ok {
				cur = &SetNode{Label: labels[i]}
				sets[labels[i]] = cur
			}
			cur.DependsOn = append(cur.DependsOn, labels[i-1])
		}
		return nil
	})
}

// Set returns the current (possibly stale, pre-Build) node for label, or
// nil if it has never been added.
func (s *Schedule) Set(label Label) *SetNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[label]
}

// Built reports whether Build has run since the last structural change.
func (s *Schedule) Built() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built
}

// Build drains pending mutations, (re)computes the dependency graph, and
// caches it. It is idempotent when no structural mutations occurred since
// the last call, per spec §8. A cycle anywhere in the combined ordering+
// membership graph is reported as a RunScheduleError{Kind: SetsRemaining};
// edges referencing unknown labels are dropped with a warning rather than
// failing the whole build.
func (s *Schedule) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return nil
	}

	for _, m := range s.pending {
		if err := m(s.sets); err != nil && err != ErrDuplicateLabel {
			return err
		}
	}
	s.pending = nil

	cache, remain := buildGraph(s.sets)
	s.cache = cache
	s.built = true

	if remain > 0 {
		return &RunScheduleError{Label: s.Label, Kind: SetsRemaining, Remain: remain}
	}
	return nil
}

// Cache returns the schedule's built graph cache. Callers must call Build
// first; Cache returns nil if the schedule has never been built.
func (s *Schedule) Cache() *graphCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// Sets returns a snapshot copy of the label-to-set map, for diagnostics
// and tests.
func (s *Schedule) Sets() map[Label]*SetNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[Label]*SetNode, len(s.sets))
	for k, v := range s.sets {
		cp[k] = v
	}
	return cp
}

func buildGraph(sets map[Label]*SetNode) (*graphCache, int) {
	labels := make([]Label, 0, len(sets))
	for l := range sets {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labelLess(labels[i], labels[j]) })

	index := make(map[Label]int, len(labels))
	nodes := make([]node, len(labels))
	for i, l := range labels {
		index[l] = i
		nodes[i] = node{label: l, set: sets[l]}
	}

	var warnings []error
	resolve := func(l Label) (int, bool) {
		i, ok := index[l]
		if !ok {
			warnings = append(warnings, ErrUnknownLabel)
		}
		return i, ok
	}

	for i, l := range labels {
		n := sets[l]

		for _, p := range n.InSets {
			if pi, ok := resolve(p); ok {
				nodes[i].parents = append(nodes[i].parents, pi)
				nodes[pi].children = append(nodes[pi].children, i)
			}
		}
		for _, after := range n.DependsOn {
			if ai, ok := resolve(after); ok {
				nodes[i].dependsOn = append(nodes[i].dependsOn, ai)
				nodes[ai].successors = append(nodes[ai].successors, i)
			}
		}
		for _, before := range n.Precedes {
			if bi, ok := resolve(before); ok {
				nodes[bi].dependsOn = append(nodes[bi].dependsOn, i)
				nodes[i].successors = append(nodes[i].successors, bi)
			}
		}
	}

	for i := range nodes {
		dedupInts(&nodes[i].parents)
		dedupInts(&nodes[i].children)
		dedupInts(&nodes[i].dependsOn)
		dedupInts(&nodes[i].successors)
	}

	remain := detectCycles(nodes)

	var roots []int
	for i, n := range nodes {
		if len(n.dependsOn) == 0 && len(n.parents) == 0 {
			roots = append(roots, i)
		}
	}

	return &graphCache{nodes: nodes, index: index, roots: roots, warnings: warnings}, remain
}

// detectCycles runs Kahn's algorithm over the combined ordering+
// membership graph (a node's predecessors are its dependsOn targets and
// its parent sets) purely to find cycles; it returns the count of nodes
// that could not be placed in any topological layer.
func detectCycles(nodes []node) int {
	inDegree := make([]int, len(nodes))
	for i := range nodes {
		inDegree[i] = len(nodes[i].dependsOn) + len(nodes[i].parents)
	}

	queue := make([]int, 0, len(nodes))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++

		successors := append(append([]int(nil), nodes[n].successors...), nodes[n].children...)
		for _, s := range successors {
			inDegree[s]--
			if inDegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	return len(nodes) - visited
}

func dedupInts(s *[]int) {
	if len(*s) < 2 {
		return
	}
	seen := make(map[int]struct{}, len(*s))
	out := (*s)[:0]
	for _, v := range *s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	*s = out
}

func labelLess(a, b Label) bool {
	if a.Tag != b.Tag {
		if a.Tag == nil {
			return true
		}
		if b.Tag == nil {
			return false
		}
		return a.Tag.String() < b.Tag.String()
	}
	return a.Index < b.Index
}
