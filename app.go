package weave

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/mlange-42/ark/ecs"
	"github.com/weaveecs/weave/internal/cmdqueue"
	"github.com/weaveecs/weave/internal/scheduler"
)

// SubApp is one world plus its own named schedules, executors, and
// runner — spec §4.7's unit of sub-app isolation (the render world behind
// App.extract is just a SubApp like any other).
type SubApp struct {
	label     WorldLabel
	world     *World
	schedules map[ScheduleLabel]*scheduler.Schedule
	executors *scheduler.Executors
	runner    *scheduler.ScheduleRunner
	order     []ScheduleLabel
}

func newSubApp(label WorldLabel) *SubApp {
	w := ecs.NewWorld()
	executors := scheduler.NewExecutors(runtime.GOMAXPROCS(0))
	return &SubApp{
		label:     label,
		world:     &w,
		schedules: make(map[ScheduleLabel]*scheduler.Schedule),
		executors: executors,
		runner:    scheduler.NewScheduleRunner(executors, nil),
	}
}

// World returns this sub-app's world.
func (s *SubApp) World() *World { return s.world }

// Executors returns this sub-app's named executor pool registry, for
// registering a non-default pool via Executors().Register before Build.
func (s *SubApp) Executors() *scheduler.Executors { return s.executors }

// SetOrder sets the sequence of schedules this sub-app runs once per
// frame after App.Run's extract step (e.g. PreRender/Render/PostRender
// for a render sub-app). The main App's own order is set separately via
// SetMainScheduleOrder.
func (s *SubApp) SetOrder(order []ScheduleLabel) *SubApp {
	s.order = order
	return s
}

func (s *SubApp) scheduleFor(label ScheduleLabel) *scheduler.Schedule {
	sched, ok := s.schedules[label]
	if !ok {
		sched = scheduler.NewSchedule(label.Label)
		s.schedules[label] = sched
	}
	return sched
}

// AddSystems queues configs into this sub-app's schedule labeled label.
func (s *SubApp) AddSystems(label ScheduleLabel, configs ...*SetConfig) *SubApp {
	sched := s.scheduleFor(label)
	for _, c := range configs {
		sched.AddSet(c.toNode())
	}
	return s
}

// ConfigureSets queues pure grouping/ordering configs (built via
// SetConfigFor) into schedule label, without an accompanying system.
func (s *SubApp) ConfigureSets(label ScheduleLabel, configs ...*SetConfig) *SubApp {
	return s.AddSystems(label, configs...)
}

func (s *SubApp) build() error {
	s.runner.FlushWorld = flushCommands
	for _, sched := range s.schedules {
		if err := sched.Build(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubApp) run(ctx context.Context, label ScheduleLabel) error {
	return s.runner.Run(ctx, s.scheduleFor(label), s.world)
}

// Plugin is spec §4.7's extension point: AddPlugin calls Build once with
// the owning App, letting third-party code register resources, events,
// systems, and sub-apps without App exposing a wider surface.
type Plugin interface {
	Build(app *App)
}

// Runner is the pluggable main-loop strategy installed via SetRunner, per
// spec §6. The default (installed by NewApp) is the signal-driven
// startup/main/extract-render/exit loop of defaultRunner.
type Runner func(app *App) error

// App is the top-level orchestrator of spec §4.7: a main SubApp, any
// number of named sub-apps (most commonly a render world), and the
// schedule orders (startup/main/extract/exit) that define one frame.
type App struct {
	main    *SubApp
	subApps map[WorldLabel]*SubApp
	subOrder []WorldLabel

	startupOrder []ScheduleLabel
	mainOrder    []ScheduleLabel
	extractOrder []ScheduleLabel
	exitOrder    []ScheduleLabel

	diagnostics Diagnostics
	eventsWired bool
	stateGroupsWired bool

	runner Runner
	built  bool
}

// NewApp constructs an App with one main SubApp and the built-in default
// schedule orders from label.go.
func NewApp() *App {
	a := &App{
		main:         newSubApp(WorldLabel{}),
		subApps:      make(map[WorldLabel]*SubApp),
		startupOrder: DefaultStartupOrder(),
		mainOrder:    DefaultMainOrder(),
		extractOrder: DefaultExtractOrder(),
		exitOrder:    DefaultExitOrder(),
		diagnostics:  NopDiagnostics{},
	}
	a.runner = defaultRunner
	return a
}

// World returns the main world.
func (a *App) World() *World { return a.main.world }

// AddPlugin runs p.Build(a) once, immediately.
func (a *App) AddPlugin(p Plugin) *App {
	p.Build(a)
	return a
}

// AddPlugins runs Build on each plugin in order.
func (a *App) AddPlugins(plugins ...Plugin) *App {
	for _, p := range plugins {
		p.Build(a)
	}
	return a
}

// AddSystems queues configs into the main world's schedule labeled label.
func (a *App) AddSystems(label ScheduleLabel, configs ...*SetConfig) *App {
	a.main.AddSystems(label, configs...)
	return a
}

// ConfigureSets queues pure grouping/ordering configs into the main
// world's schedule labeled label.
func (a *App) ConfigureSets(label ScheduleLabel, configs ...*SetConfig) *App {
	a.main.ConfigureSets(label, configs...)
	return a
}

// AddSubApp registers (or returns the existing) sub-app under label, for
// use as App.extract's target — most commonly a render world run once per
// frame behind App's main world, per spec §4.7.
func (a *App) AddSubApp(label WorldLabel) *SubApp {
	if sub, ok := a.subApps[label]; ok {
		return sub
	}
	sub := newSubApp(label)
	a.subApps[label] = sub
	a.subOrder = append(a.subOrder, label)
	return sub
}

// SubApp returns the sub-app registered under label, if any.
func (a *App) SubApp(label WorldLabel) (*SubApp, bool) {
	sub, ok := a.subApps[label]
	return sub, ok
}

// SetMainScheduleOrder overrides the main world's per-frame schedule
// order (default First/PreUpdate/StateTransition/Update/PostUpdate/Last).
func (a *App) SetMainScheduleOrder(order []ScheduleLabel) *App {
	a.mainOrder = order
	return a
}

// SetStartupScheduleOrder overrides the once-before-the-loop schedule
// order (default PreStartup/Startup/PostStartup).
func (a *App) SetStartupScheduleOrder(order []ScheduleLabel) *App {
	a.startupOrder = order
	return a
}

// SetExitScheduleOrder overrides the once-after-the-loop schedule order
// (default PreExit/Exit/PostExit).
func (a *App) SetExitScheduleOrder(order []ScheduleLabel) *App {
	a.exitOrder = order
	return a
}

// SetExtractScheduleOrder overrides the schedule order App.Extract runs
// against a sub-app's world (default just ExtractSchedule).
func (a *App) SetExtractScheduleOrder(order []ScheduleLabel) *App {
	a.extractOrder = order
	return a
}

// SetDiagnostics records d; Build then installs it across the main world's
// runner/event bus and every registered sub-app's, replacing
// NopDiagnostics.
func (a *App) SetDiagnostics(d Diagnostics) *App {
	a.diagnostics = d
	return a
}

// SetRunner overrides the main-loop strategy App.Run drives.
func (a *App) SetRunner(r Runner) *App {
	a.runner = r
	return a
}

// AppInsertResource installs val as the main world's T resource
// immediately — unlike the Commands-based InsertResource, which a
// running system enqueues for the next flush point, this mutates the
// world directly and is meant for app-setup time, before Build/Run.
func AppInsertResource[T any](a *App, val T) *App {
	AddResource(a.main.world, &val)
	return a
}

// AppInitResource installs T's zero value as the main world's resource,
// if not already present, at app-setup time.
func AppInitResource[T any](a *App) *App {
	if !NewResource[T](a.main.world).Has() {
		var zero T
		AddResource(a.main.world, &zero)
	}
	return a
}

// AddEvents ensures the world's event bus exists and that the Last-schedule
// buffer-advance system (shared across every event type) is installed,
// per spec §4.8. T's own store is created by the bus the first time a
// writer or reader for T is requested.
func AddEvents[T any](a *App) *App {
	installEventBus(a.main.world)
	a.ensureEventAdvance()
	return a
}

func (a *App) ensureEventAdvance() {
	if a.eventsWired {
		return
	}
	a.eventsWired = true
	a.main.AddSystems(Last, SystemConfig(advanceEvents))
}

// InsertState installs E's State/NextState resource pair at initial (a
// no-op if E was already inserted) and, the first time any E is
// inserted, wires the StateTransition schedule's Callback/Transit groups
// plus E's own transition-applying system, per spec §4.9.
func InsertState[E comparable](a *App, initial E) *App {
	a.ensureStateTransitionGroups()
	if insertState[E](a.main.world, initial) {
		a.main.AddSystems(StateTransition,
			SystemConfig(stateTransitionSystem[E]()).
				InSet(StateTransitionTransit).
				After(StateTransitionCallback))
	}
	return a
}

func (a *App) ensureStateTransitionGroups() {
	if a.stateGroupsWired {
		return
	}
	a.stateGroupsWired = true
	sched := a.main.scheduleFor(StateTransition)
	sched.AddSet(&scheduler.SetNode{Label: StateTransitionCallback.Label})
	sched.AddSet(&scheduler.SetNode{
		Label:     StateTransitionTransit.Label,
		DependsOn: []Label{StateTransitionCallback.Label},
	})
}

// exitFlag is the well-known resource App.Exit/RequestExit set to stop
// defaultRunner's main loop after the current frame.
type exitFlag struct{ requested bool }

// Exit requests the main loop stop after finishing its current frame.
// Safe to call from outside a running system (e.g. from a signal
// handler); systems should prefer RequestExit, which defers through
// Commands like every other structural mutation.
func (a *App) Exit() {
	res := NewResource[exitFlag](a.main.world)
	if !res.Has() {
		AddResource(a.main.world, &exitFlag{requested: true})
		return
	}
	res.Get().requested = true
}

func (a *App) exitRequested() bool {
	res := NewResource[exitFlag](a.main.world)
	return res.Has() && res.Get().requested
}

// RequestExit enqueues an exit request through c, for use from inside a
// system — the same deferred-until-flush discipline every other
// structural mutation in commands.go follows.
func RequestExit(c Commands) {
	cmdqueue.Enqueue(c.q, func(w *World, _ struct{}) {
		res := NewResource[exitFlag](w)
		if !res.Has() {
			AddResource(w, &exitFlag{requested: true})
			return
		}
		res.Get().requested = true
	}, struct{}{})
}

// RunSystem runs fn once against the main world, outside of any
// schedule — spec §9's one-off execution escape hatch, useful for
// setup code and tests.
func (a *App) RunSystem(fn any) error {
	sys := System(fn)
	if err := sys.Initialize(a.main.world); err != nil {
		return err
	}
	return sys.Run(a.main.world)
}

// Extract runs App's extract_order schedules against the sub-app
// registered under target, with the source (main) world reachable to
// that run's Extract[P] parameters, per spec §4.7 scenario 6: a plain
// parameter in that schedule reads/writes target's own world, while
// Extract[P] reaches back to read the main world instead.
func (a *App) Extract(target WorldLabel) error {
	sub, ok := a.subApps[target]
	if !ok {
		return fmt.Errorf("weave: no sub-app registered under %v", target)
	}
	AddResource(sub.world, &extractSource{World: a.main.world})
	for _, label := range a.extractOrder {
		if err := sub.run(context.Background(), label); err != nil {
			return err
		}
	}
	return nil
}

// Build finalizes every registered world's diagnostics wiring and builds
// every schedule's dependency graph. Run calls it automatically; calling
// it directly first is only useful to surface a build-time error (such as
// an unresolved cycle) before starting the loop. A set assigned to an
// executor label with no registered executor is not detected here; that
// is reported by the schedule run.
func (a *App) Build() error {
	if a.built {
		return nil
	}
	a.wireDiagnostics()
	if err := a.main.build(); err != nil {
		return err
	}
	for _, wl := range a.subOrder {
		if err := a.subApps[wl].build(); err != nil {
			return err
		}
	}
	a.built = true
	return nil
}

func (a *App) wireDiagnostics() {
	adapter := newSchedulerDiagAdapter(a.diagnostics)
	a.main.runner.Diagnostics = adapter
	installEventBus(a.main.world).SetDiagnostics(eventDiagAdapter{d: a.diagnostics})
	for _, wl := range a.subOrder {
		sub := a.subApps[wl]
		sub.runner.Diagnostics = adapter
		installEventBus(sub.world).SetDiagnostics(eventDiagAdapter{d: a.diagnostics})
	}
}

// Run builds the app (if not already built) and hands control to the
// installed Runner — defaultRunner unless SetRunner overrode it.
func (a *App) Run() error {
	if err := a.Build(); err != nil {
		return err
	}
	return a.runner(a)
}

// defaultRunner is spec §4.7's reference main loop: startup schedules run
// once, then main-order schedules plus every sub-app's extract+own-order
// schedules repeat until an OS interrupt or App.Exit/RequestExit is
// observed, then exit-order schedules run once more to completion —
// against a fresh, uncancelled context, since the loop's own ctx is
// already done by the time exit runs.
func defaultRunner(a *App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		<-sig
		cancel()
	}()

	for _, label := range a.startupOrder {
		if err := a.main.run(ctx, label); err != nil {
			return err
		}
	}

	for ctx.Err() == nil && !a.exitRequested() {
		for _, label := range a.mainOrder {
			if err := a.main.run(ctx, label); err != nil {
				return err
			}
		}
		for _, wl := range a.subOrder {
			if err := a.Extract(wl); err != nil {
				return err
			}
			sub := a.subApps[wl]
			for _, label := range sub.order {
				if err := sub.run(ctx, label); err != nil {
					return err
				}
			}
		}
	}

	exitCtx := context.Background()
	for _, label := range a.exitOrder {
		if err := a.main.run(exitCtx, label); err != nil {
			return err
		}
	}
	return nil
}
