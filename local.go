package weave

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
)

// Local[T] is a per-system private value, initialized once and stable
// across runs, per spec §4.1. weave resolves spec §9's Open Question in
// favor of eager initialization: the value is constructed during
// System.Initialize, not lazily on first Update.
//
// T is constructed via its zero value; to seed a non-zero default, give
// *T an InitLocal() method — checked via the LocalInit interface — which
// weave calls once right after allocation.
type Local[T any] struct {
	ptr *T
}

// Get returns the stable pointer to this system's private T. The same
// pointer is returned across every run of the owning system.
func (l Local[T]) Get() *T { return l.ptr }

// LocalInit lets a Local[T]'s T provide its own eager-init logic (the
// host-language equivalent of a from_world constructor named in spec
// §9's Open Question), invoked once per system at Initialize time.
type LocalInit interface {
	InitLocal()
}

func (Local[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	// Local[T] carries no access: it's owned by a single system, never
	// shared, so no synchronization or conflict bookkeeping applies.
	v := new(T)
	if li, ok := any(v).(LocalInit); ok {
		li.InitLocal()
	}
	return &localState[T]{cur: Local[T]{ptr: v}}, nil
}

type localState[T any] struct {
	cur Local[T]
}

func (s *localState[T]) update(world any) bool   { return true }
func (s *localState[T]) value() reflect.Value    { return reflect.ValueOf(s.cur) }
func (s *localState[T]) required() bool          { return true }
