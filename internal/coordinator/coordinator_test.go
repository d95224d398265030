package coordinator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"corevm/internal/finder"
	"corevm/internal/heap"
	"corevm/internal/machine"
)

func newTestMachine() *machine.Machine {
	mf := finder.NewMemoryFinder()
	h := heap.NewCompactingHeap()
	cfg := machine.ThreadConfig{StackSize: 8, NurserySize: 1 << 10}
	return machine.NewMachine(h, mf, cfg)
}

// TestAdmitExitSingleThread exercises the basic None->Active->Exit path for
// one thread, the root-join case (§4.F: "Exit is the termination-join
// point for root threads"). Exit alone never decrements liveCount — only a
// Zombie transition does — so a lone thread's own Exit leaves LiveCount at
// 1, not 0.
func TestAdmitExitSingleThread(t *testing.T) {
	m := newTestMachine()
	th := machine.NewThread(m, nil, m.Config)

	Admit(th)
	if th.State != machine.Active {
		t.Fatalf("after Admit, state = %s, want Active", th.State)
	}
	if m.ActiveCount != 1 || m.LiveCount != 1 {
		t.Fatalf("after Admit, active=%d live=%d, want 1/1", m.ActiveCount, m.LiveCount)
	}

	Exit(th)
	if th.State != machine.Exit {
		t.Fatalf("after Exit, state = %s, want Exit", th.State)
	}
	if m.ActiveCount != 0 || m.LiveCount != 1 {
		t.Fatalf("after Exit, active=%d live=%d, want 0/1", m.ActiveCount, m.LiveCount)
	}
}

// TestZombieDoesNotBlockOnActiveSiblings is the regression this pass's fix
// targets: an ordinary worker death (Active→Zombie) must decrement active
// and live and return immediately, never waiting on siblings that are
// still Active — only the root's own Exit/join waits.
func TestZombieDoesNotBlockOnActiveSiblings(t *testing.T) {
	m := newTestMachine()
	root := machine.NewThread(m, nil, m.Config)
	sibling := machine.NewThread(m, root, m.Config)
	dying := machine.NewThread(m, root, m.Config)

	Admit(root)
	Admit(sibling)
	Admit(dying)

	done := make(chan struct{})
	go func() {
		Zombie(dying)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Zombie blocked with siblings still Active")
	}

	if dying.State != machine.Zombie {
		t.Fatalf("dying.State = %s, want Zombie", dying.State)
	}
	if m.ActiveCount != 2 {
		t.Errorf("ActiveCount after one Zombie = %d, want 2 (root + sibling still Active)", m.ActiveCount)
	}
	if m.LiveCount != 2 {
		t.Errorf("LiveCount after one Zombie = %d, want 2", m.LiveCount)
	}
	if sibling.State != machine.Active {
		t.Errorf("sibling.State = %s, want Active (unaffected by dying's Zombie)", sibling.State)
	}
}

// TestExitLastThreadDoesNotDeadlock is the regression this pass's fix
// targets: the root's Exit/join must unblock the instant a sibling's
// Zombie transition brings LiveCount down to 1, rather than waiting on a
// LiveCount==1 that nothing remains to ever notify again.
func TestExitLastThreadDoesNotDeadlock(t *testing.T) {
	m := newTestMachine()
	root := machine.NewThread(m, nil, m.Config)
	worker := machine.NewThread(m, root, m.Config)

	Admit(root)
	Admit(worker)

	done := make(chan struct{})
	go func() {
		Zombie(worker)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker Zombie did not return")
	}

	done2 := make(chan struct{})
	go func() {
		Exit(root)
		close(done2)
	}()
	select {
	case <-done2:
	case <-time.After(2 * time.Second):
		t.Fatalf("root Exit (last live thread) did not return (deadlocked waiting on LiveCount==1)")
	}

	if m.LiveCount != 1 {
		t.Errorf("LiveCount after worker Zombie + root Exit = %d, want 1 (Exit never decrements live)", m.LiveCount)
	}
}

// TestCoordinatorSafety is §8's "no execution trace ever has two threads
// simultaneously in {Active, Exclusive} with one of them Exclusive": many
// workers spin through Safepoint while one thread repeatedly acquires and
// releases Exclusive; an instrumented counter observed under the state
// monitor must never exceed 1 active mutator while exclusive is held.
func TestCoordinatorSafety(t *testing.T) {
	m := newTestMachine()
	root := machine.NewThread(m, nil, m.Config)
	Admit(root)

	const numWorkers = 6
	const safepointsPerWorker = 200
	var violations atomic.Int32

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		worker := machine.NewThread(m, root, m.Config)
		Admit(worker)
		wg.Add(1)
		go func(w *machine.Thread) {
			defer wg.Done()
			for n := 0; n < safepointsPerWorker; n++ {
				Safepoint(w)
				select {
				case <-stop:
					Zombie(w)
					return
				default:
				}
			}
			Zombie(w)
		}(worker)
	}

	exclusiveRounds := 30
	for r := 0; r < exclusiveRounds; r++ {
		AcquireExclusive(root)

		m.StateMonitor.Acquire()
		if m.ActiveCount != 1 || m.Exclusive != root {
			violations.Add(1)
		}
		m.StateMonitor.Release()

		ReleaseExclusive(root)
	}
	close(stop)
	wg.Wait()
	Exit(root)

	if violations.Load() != 0 {
		t.Errorf("observed %d coordinator-safety violations", violations.Load())
	}
}
