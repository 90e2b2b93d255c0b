package weave

import (
	"context"
	"testing"
)

type tickEvent struct{ n int }

func TestEventWriterReaderLifecycle(t *testing.T) {
	a := NewApp()
	AddEvents[tickEvent](a)
	if err := a.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	emit := func(w EventWriter[tickEvent]) { w.Emit(tickEvent{n: 1}) }
	if err := a.RunSystem(emit); err != nil {
		t.Fatalf("RunSystem(emit) error = %v", err)
	}

	// A reader created fresh right now (its own Local[EventPointer] cursor
	// starts at zero) must see the event the very frame it was emitted.
	var seenSameFrame []int
	readSameFrame := func(r EventReader[tickEvent]) {
		r.ForEach(func(ev tickEvent) bool {
			seenSameFrame = append(seenSameFrame, ev.n)
			return true
		})
	}
	if err := a.RunSystem(readSameFrame); err != nil {
		t.Fatalf("RunSystem(readSameFrame) error = %v", err)
	}
	if len(seenSameFrame) != 1 || seenSameFrame[0] != 1 {
		t.Fatalf("seenSameFrame = %v, want [1]", seenSameFrame)
	}

	if err := a.main.run(context.Background(), Last); err != nil {
		t.Fatalf("running Last schedule error = %v", err)
	}

	// A reader created only now (its cursor still starts at zero) must
	// still see the event one Last-schedule advance later.
	var seenAfterAdvance []int
	read2 := func(r EventReader[tickEvent]) {
		r.ForEach(func(ev tickEvent) bool {
			seenAfterAdvance = append(seenAfterAdvance, ev.n)
			return true
		})
	}
	if err := a.RunSystem(read2); err != nil {
		t.Fatalf("RunSystem(read2) error = %v", err)
	}
	if len(seenAfterAdvance) != 1 || seenAfterAdvance[0] != 1 {
		t.Fatalf("seenAfterAdvance = %v, want [1]", seenAfterAdvance)
	}

	if err := a.main.run(context.Background(), Last); err != nil {
		t.Fatalf("running Last schedule a second time error = %v", err)
	}
	var seenTwoFramesLater []int
	read3 := func(r EventReader[tickEvent]) {
		r.ForEach(func(ev tickEvent) bool {
			seenTwoFramesLater = append(seenTwoFramesLater, ev.n)
			return true
		})
	}
	if err := a.RunSystem(read3); err != nil {
		t.Fatalf("RunSystem(read3) error = %v", err)
	}
	if len(seenTwoFramesLater) != 0 {
		t.Fatalf("event still visible two Last-schedule advances after it was emitted: %v", seenTwoFramesLater)
	}
}

func TestAddEventsInstallsAdvanceSystemOnce(t *testing.T) {
	a := NewApp()
	AddEvents[tickEvent](a)
	AddEvents[tickEvent](a)

	sched := a.main.scheduleFor(Last)
	if err := sched.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n := len(sched.Sets()); n != 1 {
		t.Fatalf("Last schedule holds %d sets, want the single advance system", n)
	}
}
