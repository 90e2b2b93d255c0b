// Package cmdqueue implements the deferred command queue described in
// spec §4.5: commands recorded against a world during system execution are
// not applied immediately, but replayed in enqueue order once the owning
// schedule stage finishes, so no system ever observes a structural
// mutation (spawn, despawn, component insert/remove) made by a sibling
// running concurrently with it.
//
// Commands are type-erased: a queue doesn't know the concrete command
// types ahead of time, only the apply function registered for each type
// the first time it is used. A slot table keyed by reflect.Type gives each
// registered command type a small integer id, which is what each queued
// operation actually carries, keeping the hot path (Enqueue) to a map
// lookup plus an append rather than a new closure allocation per call
// where the caller already knows the slot.
package cmdqueue

import (
	"reflect"
	"sync"
)

// Applier applies a single decoded command of type T against a world of
// type W. W is left generic rather than pinned to a concrete world type
// so this package has no dependency on any particular storage library.
type Applier[W any, T any] func(w W, cmd T)

type slotEntry[W any] struct {
	apply func(w W, payload any)
	size  uintptr
}

// Queue is a FIFO of deferred, type-erased commands targeting a world of
// type W. The zero value is not usable; construct with New.
type Queue[W any] struct {
	mu    sync.Mutex
	slots map[reflect.Type]uint16
	table []slotEntry[W]
	ops   []queuedOp
}

type queuedOp struct {
	slot    uint16
	payload any
}

// New constructs an empty queue.
func New[W any]() *Queue[W] {
	return &Queue[W]{slots: make(map[reflect.Type]uint16)}
}

// RegisterSlot assigns a stable slot id to T within this queue, recording
// the function used to apply a T command to the world. Calling it again
// for the same T is a no-op that returns the existing slot id, so callers
// may register lazily on first Enqueue without worrying about duplicate
// registration.
func RegisterSlot[W any, T any](q *Queue[W], apply Applier[W, T]) uint16 {
	t := reflect.TypeOf((*T)(nil)).Elem()

	q.mu.Lock()
	defer q.mu.Unlock()

	if id, ok := q.slots[t]; ok {
		return id
	}

	id := uint16(len(q.table))
	q.table = append(q.table, slotEntry[W]{
		apply: func(w W, payload any) { apply(w, payload.(T)) },
		size:  t.Size(),
	})
	q.slots[t] = id
	return id
}

// Enqueue records cmd for later application, registering a slot for T the
// first time it's seen.
func Enqueue[W any, T any](q *Queue[W], apply Applier[W, T], cmd T) {
	id := RegisterSlot(q, apply)

	q.mu.Lock()
	q.ops = append(q.ops, queuedOp{slot: id, payload: cmd})
	q.mu.Unlock()
}

// Len reports the number of pending commands.
func (q *Queue[W]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Apply replays every queued command against w, in enqueue order, then
// clears the queue. It is the caller's responsibility to ensure no other
// goroutine holds a conflicting borrow on w while Apply runs — exactly the
// guarantee the scheduler's conflict gate provides between stages.
func (q *Queue[W]) Apply(w W) {
	q.mu.Lock()
	ops := q.ops
	q.ops = nil
	table := q.table
	q.mu.Unlock()

	for _, op := range ops {
		table[op.slot].apply(w, op.payload)
	}
}

// Drain removes and discards every pending command without applying them.
func (q *Queue[W]) Drain() {
	q.mu.Lock()
	q.ops = nil
	q.mu.Unlock()
}

// SizeHint returns the approximate number of bytes the pending commands'
// payloads would occupy if packed contiguously, a diagnostic figure only
// (Go's garbage collector must still see live pointers inside payload
// values, so they are kept as boxed `any` rather than packed into a raw
// byte buffer).
func (q *Queue[W]) SizeHint() uintptr {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total uintptr
	for _, op := range q.ops {
		total += q.table[op.slot].size
	}
	return total
}
