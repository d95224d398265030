// Package coordinator implements the six-state thread FSM of §4.F, gating
// mutator progress against occasional exclusive (stop-the-world) phases
// with the single state monitor carried on machine.Machine.
package coordinator

import (
	"github.com/pkg/errors"

	"corevm/internal/machine"
	"corevm/internal/platform"
)

// Admit transitions a freshly-constructed thread from None to Active. This
// is the sole place liveCount is incremented (§4.F property 2). It blocks
// until no exclusive phase is in progress.
func Admit(t *machine.Thread) {
	m := t.Machine
	release := platform.Scoped(m.StateMonitor)
	defer release()

	if t.State != machine.None {
		platform.Abort(errors.Errorf("coordinator: Admit called on thread in state %s", t.State).Error())
	}
	for m.Exclusive != nil {
		m.StateMonitor.Wait()
	}
	m.ActiveCount++
	m.LiveCount++
	t.State = machine.Active
}

// Safepoint is the Active<->Idle round trip every allocation takes (§4.E
// safepoint path, §5 "suspension points"). If another thread currently
// holds (or is waiting to acquire) exclusive, this thread parks in Idle
// until it clears, then resumes Active. Otherwise it is a no-op.
func Safepoint(t *machine.Thread) {
	m := t.Machine
	release := platform.Scoped(m.StateMonitor)
	defer release()

	requireState(t, machine.Active, "Safepoint")
	if m.Exclusive == nil {
		return
	}
	m.ActiveCount--
	t.State = machine.Idle
	m.StateMonitor.NotifyAll()
	for m.Exclusive != nil {
		m.StateMonitor.Wait()
	}
	m.ActiveCount++
	t.State = machine.Active
}

// AcquireExclusive transitions t from Active to Exclusive, waiting for
// every other mutator to reach a safepoint (observed as activeCount == 1)
// before proceeding (§4.F: "never proceeds until every other mutator has
// reached a safepoint").
func AcquireExclusive(t *machine.Thread) {
	m := t.Machine
	release := platform.Scoped(m.StateMonitor)
	defer release()

	requireState(t, machine.Active, "AcquireExclusive")
	m.Exclusive = t
	for m.ActiveCount != 1 {
		m.StateMonitor.Wait()
	}
	t.State = machine.Exclusive
}

// ReleaseExclusive transitions t from Exclusive back to Active, clearing
// the machine's exclusive holder and waking every parked mutator.
func ReleaseExclusive(t *machine.Thread) {
	m := t.Machine
	release := platform.Scoped(m.StateMonitor)
	defer release()

	requireState(t, machine.Exclusive, "ReleaseExclusive")
	m.Exclusive = nil
	t.State = machine.Active
	m.StateMonitor.NotifyAll()
}

// Zombie transitions t (from Active or Exclusive) to Zombie: decrements
// both active and live counts, notifies, and returns without waiting — an
// ordinary worker's death (§4.F Active→Zombie / Exclusive→Zombie). Unlike
// Exit it never blocks, so a worker finishing ahead of its siblings never
// has to wait on them.
func Zombie(t *machine.Thread) {
	m := t.Machine
	release := platform.Scoped(m.StateMonitor)
	defer release()

	switch t.State {
	case machine.Active:
		m.ActiveCount--
	case machine.Exclusive:
		m.Exclusive = nil
		m.ActiveCount--
	default:
		platform.Abort(errors.Errorf("coordinator: Zombie called on thread in state %s", t.State).Error())
	}
	m.LiveCount--
	t.State = machine.Zombie
	m.StateMonitor.NotifyAll()
}

// Exit transitions t (from Active or Exclusive) to Exit: decrements active
// only, then blocks until it is the last live thread (§4.F Active→Exit /
// Exclusive→Exit, "the termination-join point for root threads"). It never
// touches liveCount itself — only a sibling's Zombie transition can make
// LiveCount reach 1, and its final notifyAll is what wakes this wait.
func Exit(t *machine.Thread) {
	m := t.Machine
	release := platform.Scoped(m.StateMonitor)
	defer release()

	switch t.State {
	case machine.Active:
		m.ActiveCount--
	case machine.Exclusive:
		m.Exclusive = nil
		m.ActiveCount--
	default:
		platform.Abort(errors.Errorf("coordinator: Exit called on thread in state %s", t.State).Error())
	}
	t.State = machine.Exit
	m.StateMonitor.NotifyAll()
	for m.LiveCount > 1 {
		m.StateMonitor.Wait()
	}
}

func requireState(t *machine.Thread, want machine.CoordState, op string) {
	if t.State != want {
		platform.Abort(errors.Errorf("coordinator: %s requires state %s, thread is %s", op, want, t.State).Error())
	}
}
