package weave

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
)

// filterSpec is the compile-time-visible payload of a Query's With/Without
// type argument: NoFilter contributes nothing, OneOf/TwoOf contribute one
// or two component types. Keeping this to a fixed, small arity (rather
// than a variadic Filter<...> type) is the concession Go's lack of
// variadic generics forces; it covers every scenario in spec §8 without
// needing more than two extra component types on either side of a query.
type filterSpec interface {
	filterTypes() []reflect.Type
}

// NoFilter is the filterSpec meaning "nothing additional" — use it for
// either type argument of QueryN when a query needs no With or no
// Without.
type NoFilter struct{}

func (NoFilter) filterTypes() []reflect.Type { return nil }

// OneOf[A] names a single extra component for a With/Without position.
type OneOf[A any] struct{}

func (OneOf[A]) filterTypes() []reflect.Type { return []reflect.Type{access.TypeOf[A]()} }

// TwoOf[A,B] names two extra components for a With/Without position.
type TwoOf[A, B any] struct{}

func (TwoOf[A, B]) filterTypes() []reflect.Type {
	return []reflect.Type{access.TypeOf[A](), access.TypeOf[B]()}
}

func zeroFilterTypes[F filterSpec]() []reflect.Type {
	var f F
	return f.filterTypes()
}

// getMode is a QueryN type argument that records, at the type level,
// whether that query's Get components should count as AccessSet reads
// or writes — spec §4.1's bare-component-vs-Mut<C> distinction. ark's
// Filter/Query types return a mutable pointer either way (no separate
// read-only query type exists to enforce this at the storage layer),
// so Mode is purely a conflict-bookkeeping signal: a system written to
// only read through Query1[A, Read, ...] must not mutate the result,
// the same contract spec §9 accepts for host languages without a
// borrow checker.
type getMode interface {
	getKind() getKind
}

type getKind int

const (
	kindRead getKind = iota
	kindWrite
)

// Read marks a QueryN's Get components as read-only for AccessSet
// purposes: two systems each holding a Read-mode query over the same
// component never conflict.
type Read struct{}

func (Read) getKind() getKind { return kindRead }

// Write marks a QueryN's Get components as mutated for AccessSet
// purposes: a Write-mode query conflicts with any other query (Read or
// Write) touching the same component.
type Write struct{}

func (Write) getKind() getKind { return kindWrite }

func modeOf[M getMode]() getKind {
	var m M
	return m.getKind()
}

// splitByMode appends types to acc's Reads or Writes list depending on
// mode, so a single query's worth of Get components lands in the
// AccessSet field that matches its declared Mode.
func splitByMode(mode getKind, types []reflect.Type, reads, writes *[]reflect.Type) {
	if mode == kindWrite {
		*writes = append(*writes, types...)
	} else {
		*reads = append(*reads, types...)
	}
}

// Query1[A, Mode, With, Without] is the Get<A>/Filter<With,Without>
// parameter of spec §4.1: it iterates every entity holding A, registering
// A and With's components as AccessSet reads or writes depending on Mode
// and Without's components as excludes. With and Without only shape that
// access bookkeeping: they are not passed to the underlying filter, so
// they do not narrow which entities are iterated.
type Query1[A any, Mode getMode, With filterSpec, Without filterSpec] struct {
	filter *Filter1[A]
}

// Iter returns the underlying double-close-safe iterator. Callers must
// Close it (or exhaust it via Next until false, which closes it
// automatically) before the system returns.
func (q Query1[A, Mode, With, Without]) Iter(rel ...Relation) Query1Iter[A] {
	return q.filter.Query(rel...)
}

func (Query1[A, Mode, With, Without]) paramInit(world any, acc *access.Set) (paramState, error) {
	var reads, writes []reflect.Type
	splitByMode(modeOf[Mode](), []reflect.Type{access.TypeOf[A]()}, &reads, &writes)
	splitByMode(modeOf[Mode](), zeroFilterTypes[With](), &reads, &writes)
	acc.AddQuery(access.Query{
		Reads:    reads,
		Writes:   writes,
		Excludes: zeroFilterTypes[Without](),
	})
	return &query1State[A, Mode, With, Without]{}, nil
}

type query1State[A any, Mode getMode, With filterSpec, Without filterSpec] struct {
	cur Query1[A, Mode, With, Without]
}

func (s *query1State[A, Mode, With, Without]) update(world any) bool {
	w := world.(*World)
	s.cur = Query1[A, Mode, With, Without]{filter: NewFilter1[A](w)}
	return true
}
func (s *query1State[A, Mode, With, Without]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *query1State[A, Mode, With, Without]) required() bool       { return true }

// Query2[A, B, Mode, With, Without] is the two-component Get tuple.
type Query2[A, B any, Mode getMode, With filterSpec, Without filterSpec] struct {
	filter *Filter2[A, B]
}

func (q Query2[A, B, Mode, With, Without]) Iter(rel ...Relation) Query2Iter[A, B] {
	return q.filter.Query(rel...)
}

func (Query2[A, B, Mode, With, Without]) paramInit(world any, acc *access.Set) (paramState, error) {
	var reads, writes []reflect.Type
	splitByMode(modeOf[Mode](), []reflect.Type{access.TypeOf[A](), access.TypeOf[B]()}, &reads, &writes)
	splitByMode(modeOf[Mode](), zeroFilterTypes[With](), &reads, &writes)
	acc.AddQuery(access.Query{
		Reads:    reads,
		Writes:   writes,
		Excludes: zeroFilterTypes[Without](),
	})
	return &query2State[A, B, Mode, With, Without]{}, nil
}

type query2State[A, B any, Mode getMode, With filterSpec, Without filterSpec] struct {
	cur Query2[A, B, Mode, With, Without]
}

func (s *query2State[A, B, Mode, With, Without]) update(world any) bool {
	w := world.(*World)
	s.cur = Query2[A, B, Mode, With, Without]{filter: NewFilter2[A, B](w)}
	return true
}
func (s *query2State[A, B, Mode, With, Without]) value() reflect.Value {
	return reflect.ValueOf(s.cur)
}
func (s *query2State[A, B, Mode, With, Without]) required() bool { return true }

// Query3[A, B, C, Mode, With, Without] is the three-component Get tuple.
type Query3[A, B, C any, Mode getMode, With filterSpec, Without filterSpec] struct {
	filter *Filter3[A, B, C]
}

func (q Query3[A, B, C, Mode, With, Without]) Iter(rel ...Relation) Query3Iter[A, B, C] {
	return q.filter.Query(rel...)
}

func (Query3[A, B, C, Mode, With, Without]) paramInit(world any, acc *access.Set) (paramState, error) {
	var reads, writes []reflect.Type
	splitByMode(modeOf[Mode](), []reflect.Type{access.TypeOf[A](), access.TypeOf[B](), access.TypeOf[C]()}, &reads, &writes)
	splitByMode(modeOf[Mode](), zeroFilterTypes[With](), &reads, &writes)
	acc.AddQuery(access.Query{
		Reads:    reads,
		Writes:   writes,
		Excludes: zeroFilterTypes[Without](),
	})
	return &query3State[A, B, C, Mode, With, Without]{}, nil
}

type query3State[A, B, C any, Mode getMode, With filterSpec, Without filterSpec] struct {
	cur Query3[A, B, C, Mode, With, Without]
}

func (s *query3State[A, B, C, Mode, With, Without]) update(world any) bool {
	w := world.(*World)
	s.cur = Query3[A, B, C, Mode, With, Without]{filter: NewFilter3[A, B, C](w)}
	return true
}
func (s *query3State[A, B, C, Mode, With, Without]) value() reflect.Value {
	return reflect.ValueOf(s.cur)
}
func (s *query3State[A, B, C, Mode, With, Without]) required() bool { return true }

// Query4[A, B, C, D, Mode, With, Without] is the four-component Get
// tuple — the largest arity weave carries; see DESIGN.md for why higher
// arities were dropped.
type Query4[A, B, C, D any, Mode getMode, With filterSpec, Without filterSpec] struct {
	filter *Filter4[A, B, C, D]
}

func (q Query4[A, B, C, D, Mode, With, Without]) Iter(rel ...Relation) Query4Iter[A, B, C, D] {
	return q.filter.Query(rel...)
}

func (Query4[A, B, C, D, Mode, With, Without]) paramInit(world any, acc *access.Set) (paramState, error) {
	var reads, writes []reflect.Type
	splitByMode(modeOf[Mode](), []reflect.Type{
		access.TypeOf[A](), access.TypeOf[B](), access.TypeOf[C](), access.TypeOf[D](),
	}, &reads, &writes)
	splitByMode(modeOf[Mode](), zeroFilterTypes[With](), &reads, &writes)
	acc.AddQuery(access.Query{
		Reads:    reads,
		Writes:   writes,
		Excludes: zeroFilterTypes[Without](),
	})
	return &query4State[A, B, C, D, Mode, With, Without]{}, nil
}

type query4State[A, B, C, D any, Mode getMode, With filterSpec, Without filterSpec] struct {
	cur Query4[A, B, C, D, Mode, With, Without]
}

func (s *query4State[A, B, C, D, Mode, With, Without]) update(world any) bool {
	w := world.(*World)
	s.cur = Query4[A, B, C, D, Mode, With, Without]{filter: NewFilter4[A, B, C, D](w)}
	return true
}
func (s *query4State[A, B, C, D, Mode, With, Without]) value() reflect.Value {
	return reflect.ValueOf(s.cur)
}
func (s *query4State[A, B, C, D, Mode, With, Without]) required() bool { return true }
