package event

import (
	"reflect"
	"sync"
)

// Bus is a per-type event system with age-based, double-buffer-free
// delivery: each store holds its own (value, age) queue instead of a
// pair of swapped slices.
type Bus struct {
	stores sync.Map // key: reflect.Type, value: *store[T]
	diag   Diagnostics
}

// NewBus constructs a Bus.
func NewBus() *Bus {
	return &Bus{}
}

// SetDiagnostics installs d on every store created from this point on
// (existing stores keep whatever they already had). A type's store is
// created the first time a writer or reader for that type is requested.
func (b *Bus) SetDiagnostics(d Diagnostics) {
	b.diag = d
}

// Update ages every registered type's entries by one frame, evicting
// any that reach zero. Call once per frame, from the auto-installed
// Last-schedule system.
func (b *Bus) Update() {
	b.stores.Range(func(_, v any) bool {
		v.(updater).update()
		return true
	})
}

type updater interface{ update() }

// WriterFor returns a type-safe writer bound to this bus.
func WriterFor[T any](b *Bus) Writer[T] {
	return Writer[T]{store: ensureStore[T](b)}
}

// ReaderFor returns a type-safe reader bound to this bus and to ptr,
// the caller-owned cursor tracking how far this particular reader has
// read (weave backs ptr with a per-system Local[EventPointer[T]]).
func ReaderFor[T any](b *Bus, ptr *int64) Reader[T] {
	return Reader[T]{store: ensureStore[T](b), ptr: ptr}
}

// ensureStore fetches or creates the per-type store for T.
func ensureStore[T any](b *Bus) *store[T] {
	t := baseType(reflect.TypeOf((*T)(nil)).Elem())

	if v, ok := b.stores.Load(t); ok {
		return v.(*store[T])
	}
	st := &store[T]{name: t.String(), diag: b.diag}
	actual, _ := b.stores.LoadOrStore(t, st)
	return actual.(*store[T])
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
