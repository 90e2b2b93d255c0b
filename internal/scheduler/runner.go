package scheduler

import (
	"context"
	"sync"
)

// Diagnostics receives timing/observability hooks from the runner. The
// no-op implementation is nopDiagnostics below; weave adapts its own
// richer Diagnostics interface down to this one.
type Diagnostics interface {
	SystemStart(name string)
	SystemEnd(name string, err error)
}

type nopDiagnostics struct{}

func (nopDiagnostics) SystemStart(string)      {}
func (nopDiagnostics) SystemEnd(string, error) {}

// ScheduleRunner is the concurrency core of spec §4.6: it walks a built
// schedule's graph, dispatching systems to named executors, serializing
// only the pairs whose access sets conflict via a mutex+condition
// variable gate rather than locking the world itself.
type ScheduleRunner struct {
	Executors  *Executors
	Diagnostics Diagnostics

	// FlushWorld, if set, is invoked against the bound world every time
	// the set of running systems drains to zero, and once more at
	// schedule termination — the synchronization points spec §4.5/§5
	// require deferred commands to be applied at ("commands apply only
	// when no systems are running"). weave wires this to its command
	// queue's Apply; a nil FlushWorld means the schedule carries no
	// Commands parameters at all.
	FlushWorld func(world any)
}

// NewScheduleRunner builds a runner dispatching onto executors, reporting
// through diag (nopDiagnostics if diag is nil).
func NewScheduleRunner(executors *Executors, diag Diagnostics) *ScheduleRunner {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	return &ScheduleRunner{Executors: executors, Diagnostics: diag}
}

// runState is the per-run mutable counters described in spec §4.6,
// reset from the schedule's cache at the start of every Run.
type runState struct {
	mu   sync.Mutex
	cond *sync.Cond

	cache *graphCache
	world any

	running map[*Meta]struct{}
	ready   []int
	waiting []func() bool

	// pendingReady holds successors of a just-finished Commands system
	// that would otherwise be ready, until the next actual FlushWorld
	// call releases them — the apply-commands barrier of spec §4.5/§5:
	// a successor must never observe a Commands system's world as it was
	// before that system's deferred mutations were applied.
	pendingReady  []int
	holdSuccessor []bool

	dependsCount     []int
	parentsRemaining []int
	remaining        []int // (1 if backing system or no children) + len(children); 0 => node finished
	entered          []bool
	passed           []bool
	finished         []bool

	finishedCh chan int
	stopped    bool
	firstErr   error
}

// Run executes schedule once against world, to completion or until ctx is
// cancelled. A failing system (RunError), a failing run-condition or a
// missing executor never aborts the schedule (spec §7): the other nodes
// still run, and the first such error is returned once every node has
// finished. Run returns early with ctx.Err() when ctx is cancelled, with a
// RunScheduleError{Kind: SetsRemaining} when the graph contains a cycle,
// and with any other error from Build or from initializing a system.
func (r *ScheduleRunner) Run(ctx context.Context, schedule *Schedule, world any) error {
	if err := schedule.Build(); err != nil {
		if _, ok := err.(*RunScheduleError); !ok {
			return err
		}
	}
	cache := schedule.Cache()
	if cache == nil {
		return &RunScheduleError{Label: schedule.Label, Kind: WorldsNotSet}
	}
	if remain := detectCycles(cache.nodes); remain > 0 {
		return &RunScheduleError{Label: schedule.Label, Kind: SetsRemaining, Remain: remain}
	}

	for _, n := range cache.nodes {
		if n.set.System != nil {
			if err := n.set.System.Initialize(world); err != nil {
				return err
			}
		}
		for _, cond := range n.set.RunConditions {
			if err := cond.Initialize(world); err != nil {
				return err
			}
		}
	}

	st := &runState{
		cache:            cache,
		world:            world,
		running:          make(map[*Meta]struct{}),
		dependsCount:     make([]int, len(cache.nodes)),
		parentsRemaining: make([]int, len(cache.nodes)),
		remaining:        make([]int, len(cache.nodes)),
		entered:          make([]bool, len(cache.nodes)),
		passed:           make([]bool, len(cache.nodes)),
		finished:         make([]bool, len(cache.nodes)),
		holdSuccessor:    make([]bool, len(cache.nodes)),
		finishedCh:       make(chan int, len(cache.nodes)+1),
	}
	st.cond = sync.NewCond(&st.mu)

	for i, n := range cache.nodes {
		st.dependsCount[i] = len(n.dependsOn)
		st.parentsRemaining[i] = len(n.parents)
		st.remaining[i] = len(n.children)
		if n.set.System != nil || len(n.children) == 0 {
			st.remaining[i]++
		}
	}

	st.ready = append(st.ready, cache.roots...)

	for st.countFinished() < len(cache.nodes) {
		select {
		case <-ctx.Done():
			st.mu.Lock()
			st.stopped = true
			st.mu.Unlock()
			return ctx.Err()
		default:
		}

		st.drainFinished(r, world)

		progressed := st.stepReady(r, ctx, world)

		if st.countFinished() >= len(cache.nodes) {
			break
		}
		if !progressed && len(st.ready) == 0 {
			st.waitForProgress(ctx)
		}
	}

	if r.FlushWorld != nil {
		r.FlushWorld(world)
	}

	return st.firstErr
}

func (st *runState) countFinished() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for _, f := range st.finished {
		if f {
			n++
		}
	}
	return n
}

// drainFinished processes every node reported complete by a worker since
// the last iteration: marks it finished, cascades to successors and
// parent sets, and wakes one waiting caller. If doing so drains the
// running set to zero, it flushes the world's deferred commands right
// then — the synchronization point spec §4.5/§5 require — and releases
// any successors of a Commands system that complete() held back in
// pendingReady, so they start only after seeing the flushed world.
func (st *runState) drainFinished(r *ScheduleRunner, world any) {
	drained := false
	for {
		select {
		case n := <-st.finishedCh:
			st.complete(n)
			drained = true
		default:
			if drained && r.FlushWorld != nil {
				st.mu.Lock()
				empty := len(st.running) == 0
				st.mu.Unlock()
				if empty {
					r.FlushWorld(world)
					st.mu.Lock()
					if len(st.pendingReady) > 0 {
						st.ready = append(st.ready, st.pendingReady...)
						st.pendingReady = nil
						for i := range st.holdSuccessor {
							st.holdSuccessor[i] = false
						}
					}
					st.mu.Unlock()
					st.cond.Broadcast()
				}
			}
			return
		}
	}
}

// complete marks node n's own work done and cascades completion, exactly
// matching the finished-queue processing in spec §4.6's pseudocode. A
// successor that becomes ready because n (a Commands system) just
// finished is diverted to pendingReady instead of ready — it must not
// start until the next flush applies n's deferred mutations, even if an
// unrelated system is still running and drainFinished's own flush gate
// (running == 0) hasn't fired yet.
func (st *runState) complete(n int) {
	st.mu.Lock()
	st.remaining[n]--
	if st.remaining[n] > 0 {
		st.mu.Unlock()
		return
	}
	st.finished[n] = true

	hold := false
	if sys := st.cache.nodes[n].set.System; sys != nil {
		if meta := sys.Meta(); meta != nil && meta.Access.Commands {
			hold = true
		}
	}

	for _, s := range st.cache.nodes[n].successors {
		if hold {
			st.holdSuccessor[s] = true
		}
		st.dependsCount[s]--
		if st.dependsCount[s] == 0 && st.parentsRemaining[s] == 0 {
			if st.holdSuccessor[s] {
				st.pendingReady = append(st.pendingReady, s)
			} else {
				st.ready = append(st.ready, s)
			}
		}
	}
	parents := st.cache.nodes[n].parents
	st.mu.Unlock()

	for _, p := range parents {
		st.complete(p)
	}

	st.mu.Lock()
	st.wakeOneWaiter()
	st.mu.Unlock()
	st.cond.Broadcast()
}

// stepReady pops every currently-ready node, evaluating run-conditions
// and either releasing a group's children or attempting to start its
// backing system. It returns whether any node was processed.
func (st *runState) stepReady(r *ScheduleRunner, ctx context.Context, world any) bool {
	st.mu.Lock()
	batch := st.ready
	st.ready = nil
	st.mu.Unlock()

	if len(batch) == 0 {
		return false
	}

	for _, n := range batch {
		st.runNode(r, ctx, world, n)
	}
	return true
}

func (st *runState) runNode(r *ScheduleRunner, ctx context.Context, world any, n int) {
	set := st.cache.nodes[n].set

	pass := true
	for _, cond := range set.RunConditions {
		ok, err := cond.RunBool(world)
		if err != nil {
			st.mu.Lock()
			if st.firstErr == nil {
				st.firstErr = err
			}
			st.mu.Unlock()
			ok = false
		}
		if !ok {
			pass = false
			break
		}
	}

	st.mu.Lock()
	st.entered[n] = true
	st.passed[n] = pass
	children := append([]int(nil), st.cache.nodes[n].children...)
	st.mu.Unlock()

	if !pass {
		st.skipSubtree(n)
		return
	}

	if len(children) > 0 {
		st.mu.Lock()
		for _, c := range children {
			st.parentsRemaining[c]--
			if st.parentsRemaining[c] == 0 && st.dependsCount[c] == 0 {
				st.ready = append(st.ready, c)
			}
		}
		st.mu.Unlock()
	}

	if set.System != nil {
		st.attemptStart(r, ctx, world, n)
	} else if len(children) == 0 {
		st.finishedCh <- n
	}
}

// skipSubtree marks n and every descendant as finished without running
// any backing system, used when a node's run-conditions evaluate false:
// per spec §4.9's run-condition contract, a failed condition takes the
// whole set out of this run, not just its own backing system.
func (st *runState) skipSubtree(n int) {
	children := st.cache.nodes[n].children
	for _, c := range children {
		st.skipSubtree(c)
	}
	set := st.cache.nodes[n].set
	if set.System != nil || len(children) == 0 {
		st.finishedCh <- n
	}
}

// attemptStart implements spec §4.6's attempt_start: under the runner
// mutex, check n's access against every currently-running system; if any
// conflict, queue a retry closure instead of starting it now.
func (st *runState) attemptStart(r *ScheduleRunner, ctx context.Context, world any, n int) {
	set := st.cache.nodes[n].set
	sys := set.System
	meta := sys.Meta()

	if set.Executor != (Label{}) && !r.Executors.Has(set.Executor) {
		st.mu.Lock()
		if st.firstErr == nil {
			st.firstErr = &MissingExecutorError{Label: set.Executor}
		}
		st.mu.Unlock()
		st.finishedCh <- n
		return
	}

	st.mu.Lock()
	for running := range st.running {
		if meta.Conflicts(running) {
			st.waiting = append(st.waiting, func() bool {
				st.attemptStart(r, ctx, world, n)
				return true
			})
			st.mu.Unlock()
			return
		}
	}
	st.running[meta] = struct{}{}
	st.mu.Unlock()

	executor := r.Executors.Get(st.cache.nodes[n].set.Executor)
	executor.Submit(func() {
		r.Diagnostics.SystemStart(sys.Name())
		err := sys.Run(world)
		r.Diagnostics.SystemEnd(sys.Name(), err)

		st.mu.Lock()
		delete(st.running, meta)
		if err != nil {
			if st.firstErr == nil {
				st.firstErr = err
			}
		}
		st.finishedCh <- n
		st.mu.Unlock()
		st.cond.Broadcast()
	})
}

// wakeOneWaiter retries the oldest queued start attempt. Every retry
// closure reports success, so exactly one attempt is retried per call; an
// attempt that still conflicts queues itself again at the back of the
// queue. Callers must hold st.mu.
func (st *runState) wakeOneWaiter() {
	for len(st.waiting) > 0 {
		next := st.waiting[0]
		st.waiting = st.waiting[1:]
		st.mu.Unlock()
		ok := next()
		st.mu.Lock()
		if ok {
			return
		}
	}
}

func (st *runState) waitForProgress(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			st.cond.Broadcast()
		case <-done:
		}
	}()

	st.mu.Lock()
	for len(st.ready) == 0 && len(st.finishedCh) == 0 && len(st.running) > 0 && st.countFinishedLocked() < len(st.finished) {
		if ctx.Err() != nil {
			break
		}
		st.cond.Wait()
	}
	st.mu.Unlock()
	close(done)
}

func (st *runState) countFinishedLocked() int {
	n := 0
	for _, f := range st.finished {
		if f {
			n++
		}
	}
	return n
}
