package weave

import (
	"reflect"

	"github.com/weaveecs/weave/internal/access"
	"github.com/weaveecs/weave/internal/event"
)

// eventBusHolder is a well-known per-world resource, the same pattern
// commandQueueHolder and extractSource use: a value no user code reaches
// for directly, resolved by EventReader/EventWriter's paramState.
type eventBusHolder struct {
	bus *event.Bus
}

func installEventBus(w *World) *event.Bus {
	res := NewResource[eventBusHolder](w)
	if !res.Has() {
		AddResource(w, &eventBusHolder{bus: event.NewBus()})
		res = NewResource[eventBusHolder](w)
	}
	return res.Get().bus
}

// EventWriter[T] is spec §4.1's event-emission parameter: Emit appends T
// to the bus's store, aged in at spec §4.8's initial lifetime so it's
// readable starting this frame.
//
// It carries zero AccessSet footprint. The bus's per-type store
// (internal/event/store.go) is already internally synchronized — a
// mutex around the entry slice — so two systems racing to write or
// read the same event type never need the scheduler's conflict gate,
// the same reasoning Local[T] uses for a private rather than shared
// value.
type EventWriter[T any] struct {
	w event.Writer[T]
}

// Emit appends v (fire-and-forget).
func (w EventWriter[T]) Emit(v T) { w.w.Emit(v) }

// EmitMany appends vals in a single critical section.
func (w EventWriter[T]) EmitMany(vals []T) { w.w.EmitMany(vals) }

func (EventWriter[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	return &eventWriterState[T]{}, nil
}

type eventWriterState[T any] struct{ cur EventWriter[T] }

func (s *eventWriterState[T]) update(world any) bool {
	w := world.(*World)
	s.cur = EventWriter[T]{w: event.WriterFor[T](installEventBus(w))}
	return true
}
func (s *eventWriterState[T]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *eventWriterState[T]) required() bool       { return true }

// EventPointer[T] is the per-reader cursor spec §4.1 names as the
// `Local<EventPointer<T>>` half of EventReader[T]'s composition: an
// absolute index into T's event stream, tracking how far this one
// reader has consumed. It is never constructed directly; EventReader
// owns one via Local.
type EventPointer[T any] struct {
	idx int64
}

// EventReader[T] is spec §4.1's event-consumption parameter, composing
// Local<EventPointer<T>> (this reader's private cursor) with the
// world's Events<T> store, per spec §4.8. ForEach/Drain only ever
// yield events this reader hasn't seen yet; an event stays visible for
// two frames after it's emitted (frame N and N+1), then ages out.
type EventReader[T any] struct {
	r event.Reader[T]
}

// ForEach iterates this reader's unseen events; return false from
// yield to stop early.
func (r EventReader[T]) ForEach(yield func(T) bool) { r.r.ForEach(yield) }

// Drain returns and marks-seen every event this reader hasn't read yet.
func (r EventReader[T]) Drain() []T { return r.r.Drain() }

// DrainTo fills dst with unseen events, returning the count copied.
func (r EventReader[T]) DrainTo(dst []T) int { return r.r.DrainTo(dst) }

func (EventReader[T]) paramInit(world any, acc *access.Set) (paramState, error) {
	localState, err := Local[EventPointer[T]]{}.paramInit(world, acc)
	if err != nil {
		return nil, err
	}
	return &eventReaderState[T]{local: localState.(*localState[EventPointer[T]])}, nil
}

type eventReaderState[T any] struct {
	local *localState[EventPointer[T]]
	cur   EventReader[T]
}

func (s *eventReaderState[T]) update(world any) bool {
	w := world.(*World)
	ptr := &s.local.cur.Get().idx
	s.cur = EventReader[T]{r: event.ReaderFor[T](installEventBus(w), ptr)}
	return true
}
func (s *eventReaderState[T]) value() reflect.Value { return reflect.ValueOf(s.cur) }
func (s *eventReaderState[T]) required() bool       { return true }

// advanceEvents is the Last-schedule system every App installs exactly
// once (regardless of how many AddEvents[T] calls were made): it ages
// every registered event type's entries by one frame, evicting any
// that reach zero per spec §4.8. WorldHandle's ReadsAll/WritesAll
// footprint is deliberate — aging must never race a reader or writer
// still touching the bus.
func advanceEvents(w WorldHandle) {
	installEventBus(w.W).Update()
}
