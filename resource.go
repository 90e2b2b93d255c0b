package weave

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
)

// Res[T] is the read-only resource handle of spec §4.1: Update resolves
// (or re-resolves, if the resource was inserted after Initialize) the
// underlying ark resource handle and reports false — making the system
// skip this run with UpdateStateFailed — if T is not present in the
// world.
type Res[T any] struct {
	res Resource[T]
}

// Get returns the current value. Calling it before the owning system has
// run (i.e. outside of System.Run) is undefined behavior, per spec §9's
// note that parameter handles are only valid for the duration of a run.
func (r Res[T]) Get() *T { return r.res.Get() }

func (Res[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.AddResourceRead(access.TypeOf[T]())
	return &resState[T]{}, nil
}

type resState[T any] struct {
	cur Res[T]
}

func (s *resState[T]) update(world any) bool {
	w := world.(*World)
	res := NewResource[T](w)
	if !res.Has() {
		return false
	}
	s.cur = Res[T]{res: res}
	return true
}

func (s *resState[T]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *resState[T]) required() bool       { return true }

// ResMut[T] is the read-write resource handle.
type ResMut[T any] struct {
	res Resource[T]
}

func (r ResMut[T]) Get() *T { return r.res.Get() }

func (ResMut[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.AddResourceWrite(access.TypeOf[T]())
	return &resMutState[T]{}, nil
}

type resMutState[T any] struct {
	cur ResMut[T]
}

func (s *resMutState[T]) update(world any) bool {
	w := world.(*World)
	res := NewResource[T](w)
	if !res.Has() {
		return false
	}
	s.cur = ResMut[T]{res: res}
	return true
}

func (s *resMutState[T]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *resMutState[T]) required() bool       { return true }

// OptRes[T] never fails UpdateStateFailed; Get reports whether T was
// present this run, realizing spec §4.1's Option<Res<T>> variant.
type OptRes[T any] struct {
	res   Resource[T]
	found bool
}

// Get returns (value, true) if T is present, or (nil, false) otherwise.
func (r OptRes[T]) Get() (*T, bool) {
	if !r.found {
		return nil, false
	}
	return r.res.Get(), true
}

func (OptRes[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.AddResourceRead(access.TypeOf[T]())
	return &optResState[T]{}, nil
}

type optResState[T any] struct {
	cur OptRes[T]
}

func (s *optResState[T]) update(world any) bool {
	w := world.(*World)
	res := NewResource[T](w)
	s.cur = OptRes[T]{res: res, found: res.Has()}
	return true
}

func (s *optResState[T]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *optResState[T]) required() bool       { return false }

// OptResMut[T] is the mutable counterpart of OptRes[T].
type OptResMut[T any] struct {
	res   Resource[T]
	found bool
}

func (r OptResMut[T]) Get() (*T, bool) {
	if !r.found {
		return nil, false
	}
	return r.res.Get(), true
}

func (OptResMut[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.AddResourceWrite(access.TypeOf[T]())
	return &optResMutState[T]{}, nil
}

type optResMutState[T any] struct {
	cur OptResMut[T]
}

func (s *optResMutState[T]) update(world any) bool {
	w := world.(*World)
	res := NewResource[T](w)
	s.cur = OptResMut[T]{res: res, found: res.Has()}
	return true
}

func (s *optResMutState[T]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *optResMutState[T]) required() bool        { return false }

// WorldHandle is spec §4.1's untyped World parameter: taking one sets
// ReadsAll/WritesAll, so it conflicts with every other system — the
// escape hatch for code that genuinely needs unrestricted access.
type WorldHandle struct {
	W *World
}

func (WorldHandle) paramInit(world any, acc *access.Set) (paramState, error) {
	acc.ReadsAll = true
	acc.WritesAll = true
	return &worldState{}, nil
}

type worldState struct {
	cur WorldHandle
}

func (s *worldState) update(world any) bool {
	s.cur = WorldHandle{W: world.(*World)}
	return true
}

func (s *worldState) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *worldState) required() bool       { return true }
