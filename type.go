package weave

import (
	"github.com/mlange-42/ark/ecs"
)

// World is the external ECS storage collaborator of spec §3: weave never
// reimplements archetype/sparse-set storage, it wraps ark's World behind
// the SystemParam contract and layers the access model, scheduling graph,
// and concurrent runner on top of it.
type World = ecs.World

// Component identifies a component type for filter construction.
type Component = ecs.Comp

// Entity is an opaque handle to a live or destroyed entity.
type Entity = ecs.Entity

// Relation parameterizes a query or filter by an entity relationship
// target, passed through to ark unchanged.
type Relation = ecs.Relation

// Batch is ark's bulk-entity handle.
type Batch = ecs.Batch

// C returns the Component descriptor for T.
func C[T any]() Component {
	return ecs.C[T]()
}

// ResourceID identifies a resource slot in a World's resource table.
type ResourceID = ecs.ResID

// Resource is a stable handle to a world's resource slot for T, used by
// Res[T]/ResMut[T] once a parameter has resolved which world it targets.
type Resource[T any] = ecs.Resource[T]

// NewResource looks up (or lazily creates) the resource handle for T.
func NewResource[T any](w *World) Resource[T] {
	return ecs.NewResource[T](w)
}

// AddResource inserts res into w's resource table, per spec §3's
// invariant that a resource type exists at most once.
func AddResource[T any](w *World, res *T) ResourceID {
	return ecs.AddResource[T](w, res)
}

// Exchange1..Exchange4 move an entity between archetypes by adding A..D.
// Arities above 4 are deliberately not carried over from the teacher:
// every dropped arity is a mechanical repeat of the same generic alias
// already present at arity <=4, and no scenario in this repo's spec needs
// more than four simultaneous component types on one exchange.
type Exchange1[A any] = ecs.Exchange1[A]

func NewExchange1[A any](w *World) *Exchange1[A] { return ecs.NewExchange1[A](w) }

type Exchange2[A, B any] = ecs.Exchange2[A, B]

func NewExchange2[A, B any](w *World) *Exchange2[A, B] { return ecs.NewExchange2[A, B](w) }

type Exchange3[A, B, C any] = ecs.Exchange3[A, B, C]

func NewExchange3[A, B, C any](w *World) *Exchange3[A, B, C] { return ecs.NewExchange3[A, B, C](w) }

type Exchange4[A, B, C, D any] = ecs.Exchange4[A, B, C, D]

func NewExchange4[A, B, C, D any](w *World) *Exchange4[A, B, C, D] {
	return ecs.NewExchange4[A, B, C, D](w)
}

// Map1..Map4 are ark's component-bundle accessors; Map1 is used internally
// by Spawn1, InsertComponent1 and RemoveComponent1.
type Map1[A any] = ecs.Map1[A]

func NewMap1[A any](w *World) *Map1[A] { return ecs.NewMap1[A](w) }

type Map2[A, B any] = ecs.Map2[A, B]

func NewMap2[A, B any](w *World) *Map2[A, B] { return ecs.NewMap2[A, B](w) }

type Map3[A, B, C any] = ecs.Map3[A, B, C]

func NewMap3[A, B, C any](w *World) *Map3[A, B, C] { return ecs.NewMap3[A, B, C](w) }

type Map4[A, B, C, D any] = ecs.Map4[A, B, C, D]

func NewMap4[A, B, C, D any](w *World) *Map4[A, B, C, D] { return ecs.NewMap4[A, B, C, D](w) }

// Filter1..Filter4 build queries filtered by With/Without relations.
// Query1Iter..Query4Iter wrap the *ecs.QueryN these return so Close/Next
// observe a shared "closed" flag, guarding against the double-close panic
// ark raises otherwise — kept from the teacher's type.go almost verbatim.
type Filter1[A any] struct{ *ecs.Filter1[A] }

func NewFilter1[A any](w *World) *Filter1[A] { return &Filter1[A]{ecs.NewFilter1[A](w)} }

func (f *Filter1[A]) Query(rel ...Relation) Query1Iter[A] {
	q := f.Filter1.Query(rel...)
	closed := false
	return Query1Iter[A]{Query1: &q, closed: &closed}
}

type Filter2[A, B any] struct{ *ecs.Filter2[A, B] }

func NewFilter2[A, B any](w *World) *Filter2[A, B] { return &Filter2[A, B]{ecs.NewFilter2[A, B](w)} }

func (f *Filter2[A, B]) Query(rel ...Relation) Query2Iter[A, B] {
	q := f.Filter2.Query(rel...)
	closed := false
	return Query2Iter[A, B]{Query2: &q, closed: &closed}
}

type Filter3[A, B, C any] struct{ *ecs.Filter3[A, B, C] }

func NewFilter3[A, B, C any](w *World) *Filter3[A, B, C] {
	return &Filter3[A, B, C]{ecs.NewFilter3[A, B, C](w)}
}

func (f *Filter3[A, B, C]) Query(rel ...Relation) Query3Iter[A, B, C] {
	q := f.Filter3.Query(rel...)
	closed := false
	return Query3Iter[A, B, C]{Query3: &q, closed: &closed}
}

type Filter4[A, B, C, D any] struct{ *ecs.Filter4[A, B, C, D] }

func NewFilter4[A, B, C, D any](w *World) *Filter4[A, B, C, D] {
	return &Filter4[A, B, C, D]{ecs.NewFilter4[A, B, C, D](w)}
}

func (f *Filter4[A, B, C, D]) Query(rel ...Relation) Query4Iter[A, B, C, D] {
	q := f.Filter4.Query(rel...)
	closed := false
	return Query4Iter[A, B, C, D]{Query4: &q, closed: &closed}
}

// Query1Iter..Query4Iter are the low-level iteration primitives; the
// SystemParam-facing Query1..Query4 in query.go build on top of them.
type Query1Iter[A any] struct {
	*ecs.Query1[A]
	closed *bool
}

func (q Query1Iter[A]) Close() {
	if !*q.closed {
		q.Query1.Close()
		*q.closed = true
	}
}

func (q Query1Iter[A]) Next() bool {
	r := q.Query1.Next()
	if !r {
		*q.closed = true
	}
	return r
}

type Query2Iter[A, B any] struct {
	*ecs.Query2[A, B]
	closed *bool
}

func (q Query2Iter[A, B]) Close() {
	if !*q.closed {
		q.Query2.Close()
		*q.closed = true
	}
}

func (q Query2Iter[A, B]) Next() bool {
	r := q.Query2.Next()
	if !r {
		*q.closed = true
	}
	return r
}

type Query3Iter[A, B, C any] struct {
	*ecs.Query3[A, B, C]
	closed *bool
}

func (q Query3Iter[A, B, C]) Close() {
	if !*q.closed {
		q.Query3.Close()
		*q.closed = true
	}
}

func (q Query3Iter[A, B, C]) Next() bool {
	r := q.Query3.Next()
	if !r {
		*q.closed = true
	}
	return r
}

type Query4Iter[A, B, C, D any] struct {
	*ecs.Query4[A, B, C, D]
	closed *bool
}

func (q Query4Iter[A, B, C, D]) Close() {
	if !*q.closed {
		q.Query4.Close()
		*q.closed = true
	}
}

func (q Query4Iter[A, B, C, D]) Next() bool {
	r := q.Query4.Next()
	if !r {
		*q.closed = true
	}
	return r
}
