// Package stats tracks per-thread and per-barrier workload counters.
//
// Two consumers exist: the sigil.stats.out summary written at shutdown, and
// an optional prometheus collector exposing live run counters while a long
// trace generation is in flight.
package stats

import (
	"fmt"
	"os"
	"strings"

	"github.com/kolkov/stgen/internal/stgen/primitive"
)

// ThreadStats counts the primitives processed for one thread over the whole
// run.
type ThreadStats struct {
	IOPs   uint64
	FLOPs  uint64
	Reads  uint64
	Writes uint64
	Instrs uint64
}

// BarrierTally is the slice of a thread's work attributed to one barrier:
// everything between the previous barrier wait (or thread start) and the
// wait on that barrier.
type BarrierTally struct {
	IOPs        uint64
	FLOPs       uint64
	Instrs      uint64
	Locks       uint64
	MemAccesses uint64
}

func (t *BarrierTally) add(other BarrierTally) {
	t.IOPs += other.IOPs
	t.FLOPs += other.FLOPs
	t.Instrs += other.Instrs
	t.Locks += other.Locks
	t.MemAccesses += other.MemAccesses
}

// BarrierSnapshot pairs a barrier address with the tally accumulated for it.
type BarrierSnapshot struct {
	Addr  primitive.Addr
	Tally BarrierTally
}

// PerBarrierStats accumulates a running tally and attributes it to a barrier
// address each time the thread waits on one. Multiple waits on the same
// barrier fold into one snapshot; snapshots keep first-wait order.
type PerBarrierStats struct {
	current  BarrierTally
	barriers []BarrierSnapshot
}

// IncIOPs counts one integer op toward the current tally.
func (s *PerBarrierStats) IncIOPs() { s.current.IOPs++ }

// IncFLOPs counts one floating-point op toward the current tally.
func (s *PerBarrierStats) IncFLOPs() { s.current.FLOPs++ }

// IncInstrs counts one instruction toward the current tally.
func (s *PerBarrierStats) IncInstrs() { s.current.Instrs++ }

// IncLocks counts one mutex acquisition toward the current tally.
func (s *PerBarrierStats) IncLocks() { s.current.Locks++ }

// IncMemAccesses counts one load or store toward the current tally.
func (s *PerBarrierStats) IncMemAccesses() { s.current.MemAccesses++ }

// Barrier attributes the running tally to addr and starts a fresh one.
func (s *PerBarrierStats) Barrier(addr primitive.Addr) {
	for i := range s.barriers {
		if s.barriers[i].Addr == addr {
			s.barriers[i].Tally.add(s.current)
			s.current = BarrierTally{}
			return
		}
	}
	s.barriers = append(s.barriers, BarrierSnapshot{Addr: addr, Tally: s.current})
	s.current = BarrierTally{}
}

// Snapshots returns the per-barrier tallies in first-wait order.
func (s *PerBarrierStats) Snapshots() []BarrierSnapshot {
	return s.barriers
}

// WriteFile writes the plain-text stats summary: per-thread primitive counts
// in thread-creation order, then each thread's per-barrier sub-tallies.
func WriteFile(path string, order []primitive.TID, threads map[primitive.TID]ThreadStats, barriers map[primitive.TID][]BarrierSnapshot) error {
	var b strings.Builder

	b.WriteString("Thread Stats\n")
	for _, tid := range order {
		ts := threads[tid]
		fmt.Fprintf(&b, "Thread %d\n", tid)
		fmt.Fprintf(&b, "\tIOPS  : %d\n", ts.IOPs)
		fmt.Fprintf(&b, "\tFLOPS : %d\n", ts.FLOPs)
		fmt.Fprintf(&b, "\tReads : %d\n", ts.Reads)
		fmt.Fprintf(&b, "\tWrites: %d\n", ts.Writes)
		fmt.Fprintf(&b, "\tInstrs: %d\n", ts.Instrs)
	}

	b.WriteString("Barrier Stats\n")
	for _, tid := range order {
		for _, snap := range barriers[tid] {
			fmt.Fprintf(&b, "Thread %d Barrier %x\n", tid, snap.Addr)
			fmt.Fprintf(&b, "\tIOPS  : %d\n", snap.Tally.IOPs)
			fmt.Fprintf(&b, "\tFLOPS : %d\n", snap.Tally.FLOPs)
			fmt.Fprintf(&b, "\tInstrs: %d\n", snap.Tally.Instrs)
			fmt.Fprintf(&b, "\tLocks : %d\n", snap.Tally.Locks)
			fmt.Fprintf(&b, "\tMemAcc: %d\n", snap.Tally.MemAccesses)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing stats summary: %w", err)
	}
	return nil
}
