package weave

import (
	"context"
	"testing"
)

type counter struct{ n int }

func TestAppInsertResourceAndRunSystem(t *testing.T) {
	a := NewApp()
	AppInsertResource(a, counter{n: 0})

	increment := func(c ResMut[counter]) { c.Get().n++ }
	if err := a.RunSystem(increment); err != nil {
		t.Fatalf("RunSystem() error = %v", err)
	}
	if err := a.RunSystem(increment); err != nil {
		t.Fatalf("RunSystem() error = %v", err)
	}

	got := NewResource[counter](a.World()).Get().n
	if got != 2 {
		t.Fatalf("counter.n = %d, want 2", got)
	}
}

func TestAppInitResourceDoesNotOverwrite(t *testing.T) {
	a := NewApp()
	AppInsertResource(a, counter{n: 5})
	AppInitResource[counter](a)

	got := NewResource[counter](a.World()).Get().n
	if got != 5 {
		t.Fatalf("counter.n = %d, want 5 (AppInitResource must not reset an existing resource)", got)
	}
}

func TestAppInitResourceInsertsZeroValueWhenAbsent(t *testing.T) {
	a := NewApp()
	AppInitResource[counter](a)

	res := NewResource[counter](a.World())
	if !res.Has() {
		t.Fatalf("AppInitResource did not install counter")
	}
	if res.Get().n != 0 {
		t.Fatalf("counter.n = %d, want 0", res.Get().n)
	}
}

func TestAppExit(t *testing.T) {
	a := NewApp()
	if a.exitRequested() {
		t.Fatalf("exitRequested() = true before Exit() was ever called")
	}
	a.Exit()
	if !a.exitRequested() {
		t.Fatalf("exitRequested() = false after Exit()")
	}
}

func TestRequestExitDefersUntilFlush(t *testing.T) {
	a := NewApp()
	if err := a.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	requester := func(c Commands) { RequestExit(c) }
	if err := a.RunSystem(requester); err != nil {
		t.Fatalf("RunSystem() error = %v", err)
	}
	if a.exitRequested() {
		t.Fatalf("exitRequested() = true before the command queue was flushed")
	}

	flushCommands(a.World())
	if !a.exitRequested() {
		t.Fatalf("exitRequested() = false after flushing RequestExit's deferred command")
	}
}

func TestAppExtractCopiesSourceWorldResource(t *testing.T) {
	a := NewApp()
	AppInsertResource(a, counter{n: 7})

	renderLabel := NewWorldLabel(renderWorldTag(0), 0)
	sub := a.AddSubApp(renderLabel)

	var seen int
	copySystem := func(src Extract[Res[counter]], dst ResMut[counter]) {
		dst.Get().n = src.Value.Get().n
		seen = dst.Get().n
	}
	sub.AddSystems(ExtractSchedule, SystemConfig(copySystem))

	if err := a.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// install the destination resource on the sub-app world before Extract runs
	AddResource(sub.World(), &counter{})

	if err := a.Extract(renderLabel); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if seen != 7 {
		t.Fatalf("extracted counter.n = %d, want 7", seen)
	}
}

// A system reached only through AddSystems (never App.RunSystem) must
// still be Initialize'd before the runner invokes it.
func TestScheduledSystemRunsWithoutManualInitialize(t *testing.T) {
	a := NewApp()
	AppInsertResource(a, counter{n: 0})

	increment := func(c ResMut[counter]) { c.Get().n++ }
	a.AddSystems(Update, SystemConfig(increment))

	if err := a.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := a.main.run(context.Background(), Update); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := NewResource[counter](a.World()).Get().n
	if got != 1 {
		t.Fatalf("counter.n = %d, want 1 (scheduled system never ran)", got)
	}
}

type renderWorldTag int
