package weave

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
)

// stateHolder/nextStateHolder are the well-known resource pair backing
// State[E]/NextState[E], per spec §4.9: the current value and a staged
// next value, reconciled once per tick by the StateTransitionTransit
// system App.InsertState installs.
type stateHolder[E comparable] struct{ cur E }
type nextStateHolder[E comparable] struct {
	next    E
	pending bool
}

// State[E] is the read-only handle to an app's current state value of
// type E (commonly an enum-like named type), per spec §4.9.
type State[E comparable] struct {
	res Resource[stateHolder[E]]
}

// Get returns the current value.
func (s State[E]) Get() E { return s.res.Get().cur }

// Is reports whether the current value equals v.
func (s State[E]) Is(v E) bool { return s.res.Get().cur == v }

func (State[E]) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.AddResourceRead(access.TypeOf[stateHolder[E]]())
	return &stateState[E]{}, nil
}

type stateState[E comparable] struct{ cur State[E] }

func (s *stateState[E]) update(world any) bool {
	w := world.(*World)
	res := NewResource[stateHolder[E]](w)
	if !res.Has() {
		return false
	}
	s.cur = State[E]{res: res}
	return true
}
func (s *stateState[E]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *stateState[E]) required() bool       { return true }

// NextState[E] stages the value State[E] will hold after the next
// StateTransition schedule run. Set is idempotent to call any number of
// times per tick; only the last call before StateTransitionTransit runs
// takes effect.
type NextState[E comparable] struct {
	res Resource[nextStateHolder[E]]
}

// Set stages v as the state to transition to.
func (s NextState[E]) Set(v E) {
	h := s.res.Get()
	h.next = v
	h.pending = true
}

func (NextState[E]) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.AddResourceWrite(access.TypeOf[nextStateHolder[E]]())
	return &nextStateState[E]{}, nil
}

type nextStateState[E comparable] struct{ cur NextState[E] }

func (s *nextStateState[E]) update(world any) bool {
	w := world.(*World)
	res := NewResource[nextStateHolder[E]](w)
	if !res.Has() {
		return false
	}
	s.cur = NextState[E]{res: res}
	return true
}
func (s *nextStateState[E]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *nextStateState[E]) required() bool       { return true }

// insertState installs the stateHolder/nextStateHolder resource pair at
// initial on w, returning false if E was already inserted (InsertState
// treats a repeat call as a no-op, as AppInitResource does for resources).
func insertState[E comparable](w *World, initial E) bool {
	if NewResource[stateHolder[E]](w).Has() {
		return false
	}
	AddResource(w, &stateHolder[E]{cur: initial})
	AddResource(w, &nextStateHolder[E]{next: initial})
	return true
}

// stateTransitionSystem builds the StateTransitionTransit backing system
// for E: if a transition is pending, it copies NextState into State and
// clears the pending flag. It bypasses the Param machinery and reaches
// into the world directly via WorldHandle, since it is app-internal
// wiring rather than user-facing system code.
func stateTransitionSystem[E comparable]() any {
	return func(w WorldHandle) {
		cur := NewResource[stateHolder[E]](w.W)
		next := NewResource[nextStateHolder[E]](w.W)
		if !cur.Has() || !next.Has() {
			return
		}
		nh := next.Get()
		if !nh.pending {
			return
		}
		cur.Get().cur = nh.next
		nh.pending = false
	}
}

// OnEnter builds a Callback-set system running fn only on the tick State
// transitions into v — evaluated against the staged NextState, since
// Callback systems run before Transit applies it.
func OnEnter[E comparable](v E, fn any) *SetConfig {
	cond := func(w WorldHandle) bool {
		next := NewResource[nextStateHolder[E]](w.W)
		if !next.Has() {
			return false
		}
		h := next.Get()
		return h.pending && h.next == v
	}
	return SystemConfig(fn).RunIf(cond).InSet(StateTransitionCallback)
}

// OnExit builds a Callback-set system running fn only on the tick State
// is about to leave v.
func OnExit[E comparable](v E, fn any) *SetConfig {
	cond := func(w WorldHandle) bool {
		cur := NewResource[stateHolder[E]](w.W)
		next := NewResource[nextStateHolder[E]](w.W)
		if !cur.Has() || !next.Has() {
			return false
		}
		return next.Get().pending && cur.Get().cur == v
	}
	return SystemConfig(fn).RunIf(cond).InSet(StateTransitionCallback)
}

// OnChange builds a Callback-set system running fn on any tick a
// transition is staged, regardless of source/target value.
func OnChange[E comparable](fn any) *SetConfig {
	cond := func(w WorldHandle) bool {
		next := NewResource[nextStateHolder[E]](w.W)
		return next.Has() && next.Get().pending
	}
	return SystemConfig(fn).RunIf(cond).InSet(StateTransitionCallback)
}
