package cmdqueue

import "testing"

type fakeWorld struct {
	spawned  []string
	removed  []int
	resource int
}

type spawnCmd struct{ name string }
type despawnCmd struct{ id int }
type setResourceCmd struct{ value int }

func applySpawn(w *fakeWorld, c spawnCmd)             { w.spawned = append(w.spawned, c.name) }
func applyDespawn(w *fakeWorld, c despawnCmd)         { w.removed = append(w.removed, c.id) }
func applySetResource(w *fakeWorld, c setResourceCmd) { w.resource = c.value }

func TestEnqueueApplyOrder(t *testing.T) {
	q := New[*fakeWorld]()
	Enqueue(q, applySpawn, spawnCmd{name: "a"})
	Enqueue(q, applyDespawn, despawnCmd{id: 1})
	Enqueue(q, applySpawn, spawnCmd{name: "b"})
	Enqueue(q, applySetResource, setResourceCmd{value: 42})

	if got := q.Len(); got != 4 {
		t.Fatalf("Len() = %d, want 4", got)
	}

	w := &fakeWorld{}
	q.Apply(w)

	wantSpawned := []string{"a", "b"}
	if len(w.spawned) != len(wantSpawned) || w.spawned[0] != wantSpawned[0] || w.spawned[1] != wantSpawned[1] {
		t.Fatalf("spawned = %v, want %v", w.spawned, wantSpawned)
	}
	if len(w.removed) != 1 || w.removed[0] != 1 {
		t.Fatalf("removed = %v, want [1]", w.removed)
	}
	if w.resource != 42 {
		t.Fatalf("resource = %d, want 42", w.resource)
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("Len() after Apply = %d, want 0", got)
	}
}

func TestApplyClearsQueue(t *testing.T) {
	q := New[*fakeWorld]()
	Enqueue(q, applySpawn, spawnCmd{name: "x"})
	w := &fakeWorld{}
	q.Apply(w)
	q.Apply(w)
	if len(w.spawned) != 1 {
		t.Fatalf("second Apply replayed commands, spawned = %v", w.spawned)
	}
}

func TestDrainDiscards(t *testing.T) {
	q := New[*fakeWorld]()
	Enqueue(q, applySpawn, spawnCmd{name: "x"})
	q.Drain()
	if q.Len() != 0 {
		t.Fatalf("Len() after Drain = %d, want 0", q.Len())
	}
	w := &fakeWorld{}
	q.Apply(w)
	if len(w.spawned) != 0 {
		t.Fatalf("drained commands were applied: %v", w.spawned)
	}
}

func TestRegisterSlotIsIdempotent(t *testing.T) {
	q := New[*fakeWorld]()
	id1 := RegisterSlot[*fakeWorld](q, applySpawn)
	id2 := RegisterSlot[*fakeWorld](q, applySpawn)
	if id1 != id2 {
		t.Fatalf("RegisterSlot returned different ids for the same type: %d vs %d", id1, id2)
	}
}

func TestSizeHint(t *testing.T) {
	q := New[*fakeWorld]()
	if q.SizeHint() != 0 {
		t.Fatalf("SizeHint() on empty queue = %d, want 0", q.SizeHint())
	}
	Enqueue(q, applySpawn, spawnCmd{name: "a"})
	if q.SizeHint() == 0 {
		t.Fatalf("SizeHint() after enqueue = 0, want > 0")
	}
}
