package weave

import "testing"

func TestChainAddsSequentialAfterEdges(t *testing.T) {
	var order []string
	mark := func(name string) func() {
		return func() { order = append(order, name) }
	}

	configs := Chain(Sets(mark("a"), mark("b"), mark("c")))
	if len(configs) != 3 {
		t.Fatalf("len(configs) = %d, want 3", len(configs))
	}
	if len(configs[0].after) != 0 {
		t.Fatalf("first set in a chain must have no After edges, got %v", configs[0].after)
	}
	if len(configs[1].after) != 1 || configs[1].after[0] != configs[0].label {
		t.Fatalf("second set must run After the first")
	}
	if len(configs[2].after) != 1 || configs[2].after[0] != configs[1].label {
		t.Fatalf("third set must run After the second")
	}
}

func TestSetConfigBuilderAccumulatesToNode(t *testing.T) {
	parent := NewSetLabel(builtinSetTag(0), 100)
	c := SystemConfig(func() {}).InSet(parent).SetName("custom").SetExecutor(NewExecutorLabel(builtinSetTag(0), 1))

	node := c.toNode()
	if node.System == nil {
		t.Fatalf("toNode() did not carry the backing system through")
	}
	if len(node.InSets) != 1 || node.InSets[0] != parent.Label {
		t.Fatalf("toNode().InSets = %v, want [%v]", node.InSets, parent.Label)
	}
	if c.name != "custom" {
		t.Fatalf("SetName did not override the diagnostics name")
	}
}

func TestRunIfPanicsOnNonBoolFunc(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("RunIf(fn) with a non-bool-returning fn should panic")
		}
	}()
	SystemConfig(func() {}).RunIf(func() {})
}
