package scheduler

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
)

// Meta is the per-system cache described in spec §3: the access set a
// system was initialized with and the world it was initialized against.
// weave's systems leave ExtractSource nil; an Extract[P] parameter finds
// its source world through a resource of the target world instead.
type Meta struct {
	Access        access.Set
	World         any
	ExtractSource any
}

// Conflicts reports whether m and other cannot safely run concurrently.
func (m *Meta) Conflicts(other *Meta) bool {
	return access.Conflicts(m.Access, other.Access)
}

// System is the type-erased runnable the scheduler operates on. The
// scheduler never looks inside a System beyond this contract — everything
// about parameter resolution, the user's closure, and per-parameter state
// is opaque to it, realized concretely by weave's param.go.
type System interface {
	// Name is a stable, human-readable identifier used for diagnostics
	// and deterministic tie-breaking.
	Name() string

	// Initialize registers this system's access set against world and
	// materializes any per-parameter state. It is idempotent: calling it
	// again after the first successful call is a no-op.
	Initialize(world any) error

	// Run executes one tick of the system. It returns a RunError if the
	// system could not run (missing state) or panicked; a nil error
	// means the underlying function was invoked successfully.
	Run(world any) error

	// Meta returns the cache populated by Initialize. Its return value
	// is meaningless before Initialize has been called once.
	Meta() *Meta

	// DataType identifies the layout of this system's per-parameter
	// state, used only to compare re-used systems for equality.
	DataType() reflect.Type

	// Clone returns a fresh, uninitialized copy of this system. The
	// scheduler itself does not call it.
	Clone() System
}

// BoolSystem is a System specialized to run-conditions: a System whose
// underlying function returns a bool. The scheduler evaluates these
// single-threaded, on the schedule-walking goroutine, per spec §4.6.
type BoolSystem interface {
	System
	RunBool(world any) (bool, error)
}
