package tracegen

import (
	"fmt"
	"math"

	"github.com/kolkov/stgen/internal/stgen/encoder"
	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/shadow"
	"github.com/kolkov/stgen/internal/stgen/siglog"
	"github.com/kolkov/stgen/internal/stgen/stats"
	"github.com/kolkov/stgen/internal/stgen/stevent"
)

// ThreadContext is the per-thread state machine. It owns the thread's event
// aggregators, its encoder, the running event-ID counter, and its statistics,
// and drives the flush policy over them.
//
// Contexts are created by the Dispatcher on the first Swap to a new TID and
// closed at shutdown, flushing any active aggregator state.
type ThreadContext struct {
	tid            primitive.TID
	primsPerCompEv uint64

	enc  encoder.Encoder
	shad *shadow.Memory

	// events is the ID the next flushed event will carry. Starts at 1;
	// stores record it into shadow memory so communication edges can name
	// the producer's event.
	events primitive.EID

	comp  *stevent.CompEvent
	comm  *stevent.CommEvent
	instr *stevent.InstrEvent

	// localBytes is scratch for OnRead: local-read candidates are held here
	// until the whole access is classified, so a mixed access can drop them.
	localBytes []primitive.Addr

	stats        stats.ThreadStats
	barrierStats stats.PerBarrierStats
	counters     *stats.RunCounters
}

func newThreadContext(tid primitive.TID, opts Options, shad *shadow.Memory, counters *stats.RunCounters) (*ThreadContext, error) {
	if tid == primitive.TIDUndef || tid > primitive.MaxTID {
		return nil, fmt.Errorf("thread id %d outside supported range 1-%d", tid, primitive.MaxTID)
	}

	enc, err := encoder.New(opts.Encoder, tid, opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating encoder for thread %d: %w", tid, err)
	}

	return &ThreadContext{
		tid:            tid,
		primsPerCompEv: uint64(opts.PrimsPerCompEv),
		enc:            enc,
		shad:           shad,
		events:         1,
		comp:           stevent.NewCompEvent(),
		comm:           stevent.NewCommEvent(),
		instr:          stevent.NewInstrEvent(),
		counters:       counters,
	}, nil
}

// OnRead processes a load of [start, start+size).
//
// Each byte may have been produced by a different thread, so classification
// is per byte: a byte last written by another, defined thread that this
// thread has not read since that write contributes a communication edge;
// every other byte is a thread-local read. If any byte forms an edge the
// whole load becomes part of a communication event and the would-be local
// bytes are dropped — coarse, but a single mixed load is rare and the
// replayer only consumes whole events.
func (tc *ThreadContext) OnRead(start primitive.Addr, size uint64) {
	if size == 0 {
		return
	}

	isCommEdge := false
	tc.localBytes = tc.localBytes[:0]
	for i := uint64(0); i < size; i++ {
		addr := start + primitive.Addr(i)

		writer, err := tc.shad.Writer(addr)
		if err != nil {
			// Out of tracked range: demote to a thread-local read.
			siglog.Warnf("thread %d: %v (addr %x), treating as local read", tc.tid, err, addr)
			tc.localBytes = append(tc.localBytes, addr)
			continue
		}
		isReader, _ := tc.shad.IsReader(addr, tc.tid)
		if !isReader {
			_ = tc.shad.UpdateReader(addr, 1, tc.tid)
		}

		if !isReader && writer != tc.tid && writer != primitive.TIDUndef {
			isCommEdge = true
			eid, _ := tc.shad.WriterEID(addr)
			tc.comm.AddEdge(writer, eid, addr)
		} else {
			// Unwritten bytes count as local: reads of never-stored memory
			// carry no producer to communicate with.
			tc.localBytes = append(tc.localBytes, addr)
		}
	}

	if !isCommEdge {
		tc.commFlushIfActive()
		for _, addr := range tc.localBytes {
			tc.comp.RecordRead(addr, 1)
		}
		tc.comp.IncRead()
	} else {
		tc.compFlushIfActive()
	}

	tc.checkCompFlushLimit()
	tc.stats.Reads++
	tc.barrierStats.IncMemAccesses()
}

// OnWrite processes a store of [start, start+size). Stores are always
// thread-local computation; they additionally stamp the shadow memory with
// this thread's current event ID so later readers can build edges back to
// the computation event containing the store.
func (tc *ThreadContext) OnWrite(start primitive.Addr, size uint64) {
	if size == 0 {
		return
	}

	tc.commFlushIfActive()
	tc.comp.IncWrite()
	tc.comp.RecordWrite(start, size)

	if err := tc.shad.UpdateWriter(start, size, tc.tid, tc.events); err != nil {
		// The write stays in the trace but is invisible to communication
		// detection.
		siglog.Warnf("thread %d: %v (store %x+%d), dropped from shadow tracking", tc.tid, err, start, size)
	}

	tc.checkCompFlushLimit()
	tc.stats.Writes++
	tc.barrierStats.IncMemAccesses()
}

// OnIOP folds one integer op into the computation aggregator.
func (tc *ThreadContext) OnIOP() {
	tc.commFlushIfActive()
	tc.comp.IncIOP()

	tc.stats.IOPs++
	tc.barrierStats.IncIOPs()
}

// OnFLOP folds one floating-point op into the computation aggregator.
func (tc *ThreadContext) OnFLOP() {
	tc.commFlushIfActive()
	tc.comp.IncFLOP()

	tc.stats.FLOPs++
	tc.barrierStats.IncFLOPs()
}

// OnSync emits a synchronization record. kind is the canonical SynchroTrace
// encoding; syncAddr the sync object's address. Both aggregators flush first
// so the sync record lands between complete events.
func (tc *ThreadContext) OnSync(kind byte, syncAddr primitive.Addr) {
	tc.compFlushIfActive()
	tc.commFlushIfActive()

	switch kind {
	case stevent.SyncMutexLock:
		tc.barrierStats.IncLocks()
	case stevent.SyncBarrierWait:
		tc.barrierStats.Barrier(syncAddr)
	}

	if err := tc.enc.EmitSync(tc.events, tc.tid, kind, syncAddr); err != nil {
		siglog.Fatalf("thread %d: %v", tc.tid, err)
	}
	tc.counters.SyncEvents.Add(1)
	tc.incrEID()
}

// OnInstr counts one instruction and emits a checkpoint marker every
// stevent.MarkerInterval instructions. Markers consume no event ID.
func (tc *ThreadContext) OnInstr() {
	tc.stats.Instrs++
	tc.barrierStats.IncInstrs()

	if tc.instr.Observe() {
		if err := tc.enc.EmitInstrMarker(stevent.MarkerInterval); err != nil {
			siglog.Fatalf("thread %d: %v", tc.tid, err)
		}
		tc.counters.Markers.Add(1)
	}
}

// checkCompFlushLimit enforces the compression cap: once the computation
// aggregator holds primsPerCompEv reads or writes it flushes. Immediately
// after this check the counters are strictly below the cap.
func (tc *ThreadContext) checkCompFlushLimit() {
	if tc.comp.Writes >= tc.primsPerCompEv || tc.comp.Reads >= tc.primsPerCompEv {
		tc.compFlushIfActive()
	}
}

// compFlushIfActive emits the computation aggregator if it holds state, then
// resets it and consumes an event ID. A no-op on an inactive aggregator.
func (tc *ThreadContext) compFlushIfActive() {
	if !tc.comp.Active() {
		return
	}
	if err := tc.enc.EmitComp(tc.events, tc.tid, tc.comp); err != nil {
		siglog.Fatalf("thread %d: %v", tc.tid, err)
	}
	tc.comp.Reset()
	tc.counters.CompEvents.Add(1)
	tc.incrEID()
}

// commFlushIfActive emits the communication aggregator if it holds state,
// then resets it and consumes an event ID. A no-op on an inactive aggregator.
func (tc *ThreadContext) commFlushIfActive() {
	if !tc.comm.Active() {
		return
	}
	if err := tc.enc.EmitComm(tc.events, tc.tid, tc.comm); err != nil {
		siglog.Fatalf("thread %d: %v", tc.tid, err)
	}
	tc.comm.Reset()
	tc.counters.CommEvents.Add(1)
	tc.incrEID()
}

func (tc *ThreadContext) incrEID() {
	if tc.events == math.MaxUint64 {
		siglog.Fatalf("event id overflow in thread %d", tc.tid)
	}
	tc.events++
}

// Stats returns the whole-run primitive counts for this thread.
func (tc *ThreadContext) Stats() stats.ThreadStats {
	return tc.stats
}

// BarrierSnapshots returns the per-barrier sub-tallies for this thread.
func (tc *ThreadContext) BarrierSnapshots() []stats.BarrierSnapshot {
	return tc.barrierStats.Snapshots()
}

// Close flushes any active aggregator state and closes the encoder.
func (tc *ThreadContext) Close() error {
	tc.compFlushIfActive()
	tc.commFlushIfActive()
	if err := tc.enc.Close(); err != nil {
		return fmt.Errorf("thread %d: %w", tc.tid, err)
	}
	return nil
}
