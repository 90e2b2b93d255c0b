package weave

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
	"github.com/weaveecs/weave/internal/cmdqueue"
)

// commandQueueHolder is the per-world deferred mutation queue of spec §4.5.
// It is installed as a well-known resource the first time a Commands
// parameter resolves against a world, the
// same pattern Extract[P] uses for its source-world resource: a value no
// user code reaches for directly, looked up by the Commands parameter.
type commandQueueHolder struct {
	q *cmdqueue.Queue[*World]
}

func installCommandQueue(w *World) {
	if NewResource[commandQueueHolder](w).Has() {
		return
	}
	AddResource(w, &commandQueueHolder{q: cmdqueue.New[*World]()})
}

func commandQueueOf(w *World) *cmdqueue.Queue[*World] {
	return NewResource[commandQueueHolder](w).Get().q
}

// flushCommands applies and clears w's deferred command queue. weave
// wires this to scheduler.ScheduleRunner.FlushWorld so it runs exactly at
// the synchronization points spec §4.5/§5 specify.
func flushCommands(world any) {
	w, ok := world.(*World)
	if !ok {
		return
	}
	commandQueueOf(w).Apply(w)
}

// Commands is the deferred-mutation façade of spec §4.5: every method
// enqueues a closure-like operation rather than mutating the world
// in-line, so two systems that both take Commands never conflict with
// each other or with any reader, per spec §4.3's tie-break rule.
type Commands struct {
	q *cmdqueue.Queue[*World]
}

func (Commands) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.Commands = true
	return &commandsState{}, nil
}

type commandsState struct {
	cur Commands
}

func (s *commandsState) update(world any) bool {
	w := world.(*World)
	installCommandQueue(w)
	s.cur = Commands{q: commandQueueOf(w)}
	return true
}

func (s *commandsState) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *commandsState) required() bool       { return true }

// EntityCommands accumulates further deferred operations targeting one
// entity, returned by Spawn1.
type EntityCommands struct {
	c  Commands
	id Entity
}

// Entity returns the entity this EntityCommands targets. Its components
// are not guaranteed to exist yet if it was just Spawned — that insert is
// itself deferred until the next flush point.
func (e EntityCommands) Entity() Entity { return e.id }

// Spawn1 enqueues the creation of a new entity with the given component
// values, returning an EntityCommands handle for chaining further
// deferred operations against it. The entity ID itself is allocated
// immediately (ark entity IDs are cheap to reserve ahead of the
// archetype move), but the archetype move/component write is deferred.
func Spawn1[A any](c Commands, w *World, a A) EntityCommands {
	id := w.NewEntity()
	cmdqueue.Enqueue(c.q, func(w *World, cmd spawn1Cmd[A]) {
		m := NewMap1[A](w)
		m.Add(cmd.id, &cmd.a)
	}, spawn1Cmd[A]{id: id, a: a})
	return EntityCommands{c: c, id: id}
}

type spawn1Cmd[A any] struct {
	id Entity
	a  A
}

// Despawn enqueues the destruction of id.
func (c Commands) Despawn(id Entity) {
	cmdqueue.Enqueue(c.q, func(w *World, e Entity) {
		w.RemoveEntity(e)
	}, id)
}

// DespawnRecursive enqueues the destruction of id and, transitively,
// every entity related to it via C (commonly a Children relation),
// realizing spec §4.5's despawn_recursive.
func DespawnRecursive[C any](c Commands, id Entity) {
	cmdqueue.Enqueue(c.q, func(w *World, cmd despawnRecursiveCmd[C]) {
		despawnRecursive[C](w, cmd.id)
	}, despawnRecursiveCmd[C]{id: id})
}

type despawnRecursiveCmd[C any] struct{ id Entity }

func despawnRecursive[C any](w *World, id Entity) {
	f := NewFilter1[C](w)
	q := f.Query()
	var children []Entity
	for q.Next() {
		if ref, ok := any(q.Get()).(interface{ Contains(Entity) bool }); ok && ref.Contains(id) {
			children = append(children, q.Entity())
		}
	}
	q.Close()
	for _, child := range children {
		despawnRecursive[C](w, child)
	}
	w.RemoveEntity(id)
}

// InsertComponent1 enqueues adding component A to an already-spawned
// entity.
func InsertComponent1[A any](c Commands, id Entity, a A) {
	cmdqueue.Enqueue(c.q, func(w *World, cmd spawn1Cmd[A]) {
		m := NewMap1[A](w)
		m.Add(cmd.id, &cmd.a)
	}, spawn1Cmd[A]{id: id, a: a})
}

// RemoveComponent1 enqueues removing component A from id.
func RemoveComponent1[A any](c Commands, id Entity) {
	cmdqueue.Enqueue(c.q, func(w *World, cmd removeComponent1Cmd[A]) {
		m := NewMap1[A](w)
		m.Remove(cmd.id)
	}, removeComponent1Cmd[A]{id: id})
}

type removeComponent1Cmd[A any] struct{ id Entity }

// InsertResource enqueues replacing (or inserting) the world's T
// resource.
func InsertResource[T any](c Commands, val T) {
	cmdqueue.Enqueue(c.q, func(w *World, cmd insertResourceCmd[T]) {
		AddResource[T](w, &cmd.v)
	}, insertResourceCmd[T]{v: val})
}

type insertResourceCmd[T any] struct{ v T }

// InitResource enqueues inserting the world's T resource at its zero
// value, if not already present.
func InitResource[T any](c Commands) {
	cmdqueue.Enqueue(c.q, func(w *World, _ initResourceCmd[T]) {
		if !NewResource[T](w).Has() {
			var zero T
			AddResource[T](w, &zero)
		}
	}, initResourceCmd[T]{})
}

type initResourceCmd[T any] struct{}

// RemoveResource enqueues removing the world's T resource.
func RemoveResource[T any](c Commands) {
	cmdqueue.Enqueue(c.q, func(w *World, _ removeResourceCmd[T]) {
		NewResource[T](w).Remove()
	}, removeResourceCmd[T]{})
}

type removeResourceCmd[T any] struct{}
