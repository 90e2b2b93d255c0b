package scheduler

import (
	"reflect"
	"testing"

	"github.com/weaveecs/weave/internal/access"
)

type testTag int

const (
	tagA testTag = iota
	tagB
	tagC
	tagD
)

func lbl(i int) Label { return NewLabel(tagA, i) }

// fakeSystem is a minimal System used across scheduler tests: it records
// invocation order into a shared slice and never fails.
type fakeSystem struct {
	name string
	meta *Meta
	log  *[]string
}

func newFakeSystem(name string, log *[]string, set access.Set) *fakeSystem {
	return &fakeSystem{name: name, meta: &Meta{Access: set}, log: log}
}

func (s *fakeSystem) Name() string           { return s.name }
func (s *fakeSystem) Initialize(world any) error { return nil }
func (s *fakeSystem) Meta() *Meta            { return s.meta }
func (s *fakeSystem) DataType() reflect.Type { return reflect.TypeOf(s) }
func (s *fakeSystem) Clone() System          { cp := *s; return &cp }
func (s *fakeSystem) Run(world any) error {
	if s.log != nil {
		*s.log = append(*s.log, s.name)
	}
	return nil
}

func TestScheduleBuildSimpleChain(t *testing.T) {
	sched := NewSchedule(lbl(100))
	var log []string

	a := &SetNode{Label: lbl(1), System: newFakeSystem("a", &log, access.Set{})}
	b := &SetNode{Label: lbl(2), System: newFakeSystem("b", &log, access.Set{}), DependsOn: []Label{lbl(1)}}
	sched.AddSet(a)
	sched.AddSet(b)

	if err := sched.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !sched.Built() {
		t.Fatalf("expected schedule to report built")
	}

	cache := sched.Cache()
	if len(cache.roots) != 1 {
		t.Fatalf("roots = %v, want exactly node a", cache.roots)
	}
}

func TestScheduleBuildDetectsCycle(t *testing.T) {
	sched := NewSchedule(lbl(100))
	a := &SetNode{Label: lbl(1), DependsOn: []Label{lbl(2)}}
	b := &SetNode{Label: lbl(2), DependsOn: []Label{lbl(1)}}
	sched.AddSet(a)
	sched.AddSet(b)

	err := sched.Build()
	if err == nil {
		t.Fatalf("expected a cycle error, got nil")
	}
	se, ok := err.(*RunScheduleError)
	if !ok {
		t.Fatalf("expected *RunScheduleError, got %T: %v", err, err)
	}
	if se.Kind != SetsRemaining {
		t.Fatalf("Kind = %v, want SetsRemaining", se.Kind)
	}
	if se.Remain != 2 {
		t.Fatalf("Remain = %d, want 2", se.Remain)
	}
}

func TestScheduleBuildIdempotent(t *testing.T) {
	sched := NewSchedule(lbl(100))
	sched.AddSet(&SetNode{Label: lbl(1)})
	if err := sched.Build(); err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	first := sched.Cache()
	if err := sched.Build(); err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if sched.Cache() != first {
		t.Fatalf("Build() recomputed the cache though nothing changed")
	}
}

func TestChainBuilderSugar(t *testing.T) {
	sched := NewSchedule(lbl(100))
	var log []string
	sched.AddSet(&SetNode{Label: lbl(1), System: newFakeSystem("1", &log, access.Set{})})
	sched.AddSet(&SetNode{Label: lbl(2), System: newFakeSystem("2", &log, access.Set{})})
	sched.AddSet(&SetNode{Label: lbl(3), System: newFakeSystem("3", &log, access.Set{})})
	sched.Chain(lbl(1), lbl(2), lbl(3))

	if err := sched.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	n2 := sched.Set(lbl(2))
	found := false
	for _, dep := range n2.DependsOn {
		if dep == lbl(1) {
			found = true
		}
	}
	if !found {
		t.Fatalf("Chain() did not wire node 2 after node 1: %v", n2.DependsOn)
	}
}

func TestSetMembershipLiftsToChildren(t *testing.T) {
	sched := NewSchedule(lbl(100))
	var log []string

	group := &SetNode{Label: lbl(1)}
	child := &SetNode{Label: lbl(2), System: newFakeSystem("child", &log, access.Set{}), InSets: []Label{lbl(1)}}
	blocker := &SetNode{Label: lbl(3), System: newFakeSystem("blocker", &log, access.Set{})}

	group.DependsOn = []Label{lbl(3)}

	sched.AddSet(group)
	sched.AddSet(child)
	sched.AddSet(blocker)

	if err := sched.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cache := sched.Cache()
	childIdx := cache.index[lbl(2)]
	blockerIdx := cache.index[lbl(3)]

	found := false
	for _, p := range cache.nodes[childIdx].parents {
		if cache.nodes[p].label == lbl(1) {
			found = true
		}
	}
	if !found {
		t.Fatalf("child node missing parent edge to its set")
	}

	// child has no direct dependsOn edge; only its parent group does.
	if len(cache.nodes[childIdx].dependsOn) != 0 {
		t.Fatalf("child should have no direct ordering edges, got %v", cache.nodes[childIdx].dependsOn)
	}
	_ = blockerIdx
}
