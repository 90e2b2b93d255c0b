package weave

import (
	"errors"
	"reflect"

	"github.com/weaveecs/weave/internal/access"
)

// extractSource is the "well-known resource" spec §4.1 describes:
// App.Extract inserts it into the target world before running the
// extract schedule, pointing at the world systems should read from
// instead of the one they're actually bound to.
type extractSource struct {
	World *World
}

// ErrNotExtracting describes an Extract[P] parameter whose system runs
// outside of an extract schedule (no extractSource resource present on
// the bound world). The parameter does not return it: its update reports
// failure instead, so the system's Run returns a RunError.
var ErrNotExtracting = errors.New("weave: Extract[P] used outside an extract schedule")

// Extract[P] wraps any valid parameter P but resolves it against the
// "extract source" world instead of the world the owning system is
// otherwise bound to, per spec §4.1. A system built with
// Extract[Res[Positions]] alongside a plain ResMut[Positions] reads the
// source world's Positions and writes the current world's Positions —
// exactly the extract -> render copy of spec §4.7/§8 scenario 6.
type Extract[P Param] struct {
	Value P
}

func (Extract[P]) paramInit(world any, acc *access.Set) (paramState, error) {
	var zero P
	// Registration happens against whatever world is live right now; the
	// actual source world is re-resolved every Update, since it's only
	// known once the owning App pins it down immediately before running
	// the extract schedule.
	st, err := zero.paramInit(world, acc)
	if err != nil {
		return nil, err
	}
	return &extractState[P]{inner: st}, nil
}

type extractState[P Param] struct {
	inner paramState
	cur   Extract[P]
	ok    bool
}

func (s *extractState[P]) update(world any) bool {
	w, ok := world.(*World)
	if !ok {
		return false
	}
	res := NewResource[extractSource](w)
	if !res.Has() {
		s.ok = false
		return false
	}
	src := res.Get()
	if !s.inner.update(src.World) {
		s.ok = false
		return false
	}
	s.cur = Extract[P]{Value: s.inner.value().Interface().(P)}
	s.ok = true
	return true
}

func (s *extractState[P]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *extractState[P]) required() bool       { return true }
