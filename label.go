package weave

import (
	"github.com/weaveecs/weave/internal/scheduler"
)

// Label is the stable, hashable identity described in spec §3: a type tag
// plus an integer index. weave's four label kinds below all wrap the same
// underlying scheduler.Label so that passing a ScheduleLabel where a
// SystemSetLabel is expected is a compile error, even though the runtime
// representation is identical.
type Label = scheduler.Label

// ScheduleLabel identifies one of an App's named schedules (First,
// Update, a user-defined custom schedule, ...).
type ScheduleLabel struct{ Label }

// SystemSetLabel identifies a SystemSet within a schedule.
type SystemSetLabel struct{ Label }

// WorldLabel identifies a World within an App's sub-app registry.
type WorldLabel struct{ Label }

// ExecutorLabel identifies a named thread pool in an Executors registry.
type ExecutorLabel struct{ Label }

// builtinScheduleTag and builtinSetTag distinguish user-defined enum-style label
// tags from each other when two different enums happen to share an
// underlying int value; built-in labels use these package-private tags.
type builtinScheduleTag int
type builtinSetTag int

func newScheduleLabel(tag any, index int) ScheduleLabel {
	return ScheduleLabel{scheduler.NewLabel(tag, index)}
}

// NewScheduleLabel builds a ScheduleLabel from any comparable tag value
// (typically a user enum constant) and an integer discriminator, letting
// user code mint its own custom schedules alongside the built-ins below.
func NewScheduleLabel(tag any, index int) ScheduleLabel {
	return newScheduleLabel(tag, index)
}

// NewSetLabel builds a SystemSetLabel the same way.
func NewSetLabel(tag any, index int) SystemSetLabel {
	return SystemSetLabel{scheduler.NewLabel(tag, index)}
}

// NewWorldLabel builds a WorldLabel the same way.
func NewWorldLabel(tag any, index int) WorldLabel {
	return WorldLabel{scheduler.NewLabel(tag, index)}
}

// NewExecutorLabel builds an ExecutorLabel the same way.
func NewExecutorLabel(tag any, index int) ExecutorLabel {
	return ExecutorLabel{scheduler.NewLabel(tag, index)}
}

// Built-in schedule labels, per spec §6. main_order defaults to the first
// six; PreStartup/Startup/PostStartup run once before the main loop
// begins; PreRender/Render/PostRender are the default render-sub-app
// order; PreExit/Exit/PostExit form exit_order; ExtractSchedule is the
// default extract_order's sole member.
var (
	First     = newScheduleLabel(builtinScheduleTag(0), 0)
	PreUpdate = newScheduleLabel(builtinScheduleTag(0), 1)

	StateTransition = newScheduleLabel(builtinScheduleTag(0), 2)
	Update          = newScheduleLabel(builtinScheduleTag(0), 3)
	PostUpdate      = newScheduleLabel(builtinScheduleTag(0), 4)
	Last            = newScheduleLabel(builtinScheduleTag(0), 5)

	PreStartup  = newScheduleLabel(builtinScheduleTag(0), 6)
	Startup     = newScheduleLabel(builtinScheduleTag(0), 7)
	PostStartup = newScheduleLabel(builtinScheduleTag(0), 8)

	PreRender  = newScheduleLabel(builtinScheduleTag(0), 9)
	Render     = newScheduleLabel(builtinScheduleTag(0), 10)
	PostRender = newScheduleLabel(builtinScheduleTag(0), 11)

	PreExit  = newScheduleLabel(builtinScheduleTag(0), 12)
	Exit     = newScheduleLabel(builtinScheduleTag(0), 13)
	PostExit = newScheduleLabel(builtinScheduleTag(0), 14)

	ExtractSchedule = newScheduleLabel(builtinScheduleTag(0), 15)
)

var scheduleLabelNames = map[ScheduleLabel]string{
	First: "First", PreUpdate: "PreUpdate", StateTransition: "StateTransition",
	Update: "Update", PostUpdate: "PostUpdate", Last: "Last",
	PreStartup: "PreStartup", Startup: "Startup", PostStartup: "PostStartup",
	PreRender: "PreRender", Render: "Render", PostRender: "PostRender",
	PreExit: "PreExit", Exit: "Exit", PostExit: "PostExit",
	ExtractSchedule: "ExtractSchedule",
}

func (l ScheduleLabel) String() string {
	if name, ok := scheduleLabelNames[l]; ok {
		return name
	}
	return l.Label.String()
}

// DefaultMainOrder is the default main_order from spec §4.7.
func DefaultMainOrder() []ScheduleLabel {
	return []ScheduleLabel{First, PreUpdate, StateTransition, Update, PostUpdate, Last}
}

// DefaultStartupOrder runs once, before the first DefaultMainOrder pass.
func DefaultStartupOrder() []ScheduleLabel {
	return []ScheduleLabel{PreStartup, Startup, PostStartup}
}

// DefaultExitOrder is the default exit_order.
func DefaultExitOrder() []ScheduleLabel {
	return []ScheduleLabel{PreExit, Exit, PostExit}
}

// DefaultExtractOrder is the default extract_order.
func DefaultExtractOrder() []ScheduleLabel {
	return []ScheduleLabel{ExtractSchedule}
}

// StateTransitionCallback and StateTransitionTransit name the two sub-sets
// installed inside the StateTransition schedule by InsertState, per spec
// §4.9: OnEnter/OnExit/
// OnChange callbacks run in Callback, the actual State<->NextState swap
// runs in Transit, ordered after Callback.
type stateTransitionSetTag int

var (
	StateTransitionCallback = NewSetLabel(stateTransitionSetTag(0), 0)
	StateTransitionTransit  = NewSetLabel(stateTransitionSetTag(0), 1)
)
