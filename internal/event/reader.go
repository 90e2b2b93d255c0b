package event

// Reader iterates the events its bound cursor hasn't seen yet. The
// cursor (*int64) is owned by the caller — weave binds one per system
// via Local[EventPointer[T]], so independent readers of the same event
// type each advance at their own pace without stepping on one another.
type Reader[T any] struct {
	store *store[T]
	ptr   *int64
}

// ForEach yields every event not yet seen by this reader's cursor, in
// emission order. Return false from yield to stop early; the cursor
// still advances past the entry yield stopped at.
func (r Reader[T]) ForEach(yield func(T) bool) {
	if r.store == nil {
		return
	}
	r.store.forEach(r.ptr, yield)
}

// Drain returns every event not yet seen by this reader's cursor and
// advances the cursor past them.
func (r Reader[T]) Drain() []T {
	if r.store == nil {
		return nil
	}
	return r.store.drain(r.ptr)
}

// DrainTo fills dst with unseen events (at most len(dst) of them),
// advancing the cursor only past what was copied out.
func (r Reader[T]) DrainTo(dst []T) int {
	if r.store == nil || len(dst) == 0 {
		return 0
	}
	vals := r.store.drain(r.ptr)
	n := min(len(vals), len(dst))
	copy(dst, vals[:n])
	if n < len(vals) {
		// rewind the cursor: dst couldn't hold everything drain() consumed.
		*r.ptr -= int64(len(vals) - n)
	}
	return n
}
