package weave

import (
	"sync"
	"time"

	"github.com/weaveecs/weave/internal/event"
	"github.com/weaveecs/weave/internal/scheduler"
)

// Diagnostics is weave's user-facing observability hook, richer than the
// internal/scheduler.Diagnostics contract the runner itself depends on:
// it adds timing and event-emission counts, per spec §9's diagnostics
// note. App.SetDiagnostics adapts one of these down onto every
// ScheduleRunner and the event bus.
type Diagnostics interface {
	SystemStart(name string)
	SystemEnd(name string, err error, duration time.Duration)
	EventEmit(name string, count int)
}

// NopDiagnostics discards everything; it's the default until
// App.SetDiagnostics is called.
type NopDiagnostics struct{}

func (NopDiagnostics) SystemStart(string)                      {}
func (NopDiagnostics) SystemEnd(string, error, time.Duration) {}
func (NopDiagnostics) EventEmit(string, int)                   {}

// LogDiagnostics logs every hook to a logger interface, matching the
// teacher's logger-agnostic pattern (any type with a Printf method —
// *log.Logger included — satisfies it without an import).
type LogDiagnostics struct {
	log interface{ Printf(string, ...any) }
}

// NewLogDiagnostics builds a LogDiagnostics writing through log.
func NewLogDiagnostics(log interface{ Printf(string, ...any) }) *LogDiagnostics {
	return &LogDiagnostics{log: log}
}

func (d *LogDiagnostics) SystemStart(name string) {
	d.log.Printf("system %s started", name)
}

func (d *LogDiagnostics) SystemEnd(name string, err error, duration time.Duration) {
	if err != nil {
		d.log.Printf("system %s finished with error in %v: %v", name, duration, err)
		return
	}
	d.log.Printf("system %s finished in %v", name, duration)
}

func (d *LogDiagnostics) EventEmit(name string, count int) {
	d.log.Printf("event %s emitted: %d", name, count)
}

// schedulerDiagAdapter adapts a weave.Diagnostics down to the timing-blind
// scheduler.Diagnostics contract the runner calls directly, timing each
// system itself since the runner only brackets Start/End. Concurrent
// systems on different executors may start/end interleaved, hence the
// mutex around the shared start-time map.
type schedulerDiagAdapter struct {
	d      Diagnostics
	mu     sync.Mutex
	starts map[string]time.Time
}

func newSchedulerDiagAdapter(d Diagnostics) *schedulerDiagAdapter {
	return &schedulerDiagAdapter{d: d, starts: make(map[string]time.Time)}
}

func (a *schedulerDiagAdapter) SystemStart(name string) {
	a.mu.Lock()
	a.starts[name] = time.Now()
	a.mu.Unlock()
	a.d.SystemStart(name)
}

func (a *schedulerDiagAdapter) SystemEnd(name string, err error) {
	a.mu.Lock()
	start, ok := a.starts[name]
	delete(a.starts, name)
	a.mu.Unlock()
	var dur time.Duration
	if ok {
		dur = time.Since(start)
	}
	a.d.SystemEnd(name, err, dur)
}

var _ scheduler.Diagnostics = (*schedulerDiagAdapter)(nil)

// eventDiagAdapter adapts weave.Diagnostics down to internal/event's
// narrower Diagnostics contract.
type eventDiagAdapter struct{ d Diagnostics }

func (a eventDiagAdapter) EventEmit(name string, count int) { a.d.EventEmit(name, count) }

var _ event.Diagnostics = eventDiagAdapter{}
