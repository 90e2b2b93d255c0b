package weave

import (
	"github.com/weaveecs/weave/internal/scheduler"
)

// SetConfig is the builder of spec §4.4: it describes one SystemSet (or
// a single backing system, via SystemConfig) plus its ordering edges,
// run-conditions, executor, and name, accumulated fluently and committed
// by App.Build / Schedule.AddSet.
type SetConfig struct {
	label    SystemSetLabel
	system   scheduler.System
	inSets   []SystemSetLabel
	after    []SystemSetLabel
	before   []SystemSetLabel
	runIf    []scheduler.BoolSystem
	executor ExecutorLabel
	name     string
}

// Sets wraps each of one or more functions in its own anonymous
// SetConfig, in order; chain Chain() across the returned slice to
// sequence them, or combine each with .InSet(parentLabel) to fold them
// into one logical group.
func Sets(fns ...any) []*SetConfig {
	out := make([]*SetConfig, len(fns))
	for i, fn := range fns {
		out[i] = SystemConfig(fn)
	}
	return out
}

// SystemConfig wraps a single function (already a valid System per
// param.go, or built via System(fn) ahead of time) into a configurable
// set with an anonymous label, used as the builder entry point for
// App.AddSystems.
func SystemConfig(fn any) *SetConfig {
	var sys scheduler.System
	if s, ok := fn.(scheduler.System); ok {
		sys = s
	} else {
		sys = System(fn)
	}
	return &SetConfig{
		label:  NewSetLabel(anonymousSetTag(0), nextAnonLabel()),
		system: sys,
		name:   sys.Name(),
	}
}

// SetConfigFor names a pure grouping set (no backing system) under label,
// for use with .ConfigureSets.
func SetConfigFor(label SystemSetLabel) *SetConfig {
	return &SetConfig{label: label, name: label.String()}
}

type anonymousSetTag int

var anonCounter int

func nextAnonLabel() int {
	anonCounter++
	return anonCounter
}

// Label returns this set's own label, for referencing it from another
// SetConfig's After/Before/InSet before it has a name of its own.
func (c *SetConfig) Label() SystemSetLabel { return c.label }

// After adds ordering edges: this set runs after every label given.
func (c *SetConfig) After(labels ...SystemSetLabel) *SetConfig {
	c.after = append(c.after, labels...)
	return c
}

// Before adds ordering edges: this set runs before every label given.
func (c *SetConfig) Before(labels ...SystemSetLabel) *SetConfig {
	c.before = append(c.before, labels...)
	return c
}

// InSet declares membership in parent, making ordering edges on parent
// transitively apply to this set, per spec §4.4.
func (c *SetConfig) InSet(parent SystemSetLabel) *SetConfig {
	c.inSets = append(c.inSets, parent)
	return c
}

// RunIf appends a boolean run-condition. All conditions must pass for
// this set (and its backing system, if any) to run this tick.
func (c *SetConfig) RunIf(cond any) *SetConfig {
	bs := newFuncSystem(cond, "")
	if !bs.returns {
		panic("weave: RunIf requires a function returning bool")
	}
	c.runIf = append(c.runIf, bs)
	return c
}

// SetExecutor pins this set's backing system to a named executor pool.
func (c *SetConfig) SetExecutor(label ExecutorLabel) *SetConfig {
	c.executor = label
	return c
}

// SetName overrides the diagnostics name used for this set's backing
// system. A backing system not built by System/NamedSystem keeps its own
// Name.
func (c *SetConfig) SetName(name string) *SetConfig {
	c.name = name
	if fs, ok := c.system.(*funcSystem); ok {
		fs.name = name
	}
	return c
}

func (c *SetConfig) toNode() *scheduler.SetNode {
	n := &scheduler.SetNode{
		Label:    c.label.Label,
		System:   c.system,
		Executor: c.executor.Label,
	}
	for _, l := range c.inSets {
		n.InSets = append(n.InSets, l.Label)
	}
	for _, l := range c.after {
		n.DependsOn = append(n.DependsOn, l.Label)
	}
	for _, l := range c.before {
		n.Precedes = append(n.Precedes, l.Label)
	}
	n.RunConditions = append(n.RunConditions, c.runIf...)
	return n
}

// Chain mutates a slice of SetConfigs produced by Sets(...) in place,
// adding sequential After edges between consecutive entries — the
// `.chain()` builder sugar of spec §4.4. It returns the same slice for
// chaining into AddSystems.
func Chain(configs []*SetConfig) []*SetConfig {
	for i := 1; i < len(configs); i++ {
		configs[i].After(configs[i-1].label)
	}
	return configs
}
