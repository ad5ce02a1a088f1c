package tracegen

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kolkov/stgen/internal/stgen/encoder"
	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/shadow"
	"github.com/kolkov/stgen/internal/stgen/siglog"
	"github.com/kolkov/stgen/internal/stgen/stats"
	"github.com/kolkov/stgen/internal/stgen/stevent"
)

// Options configures one trace-generation run.
type Options struct {
	// OutputDir receives the per-thread traces and the summary artifacts.
	OutputDir string

	// PrimsPerCompEv is the compression cap: the maximum reads or writes
	// folded into one Computation event. Range 1-100.
	PrimsPerCompEv uint

	// Encoder selects the sink strategy for all threads.
	Encoder encoder.Kind
}

func (o *Options) validate() error {
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.PrimsPerCompEv == 0 {
		o.PrimsPerCompEv = 100
	}
	if o.PrimsPerCompEv > 100 {
		return fmt.Errorf("compression level %d out of range 1-100", o.PrimsPerCompEv)
	}
	return nil
}

// barrierEntry pairs a barrier address with its participant set. Entries
// keep first-wait order; the replayer's barrier bookkeeping depends on it.
type barrierEntry struct {
	addr         primitive.Addr
	participants map[primitive.TID]struct{}
}

// GeneratorContext owns the run-wide mutable state: shadow memory, the
// dispatcher's metadata tables, and the final stats aggregation. The mutex
// guards the metadata tables and is only taken on Swap, Create, BarrierWait,
// and shutdown — never on the memory/compute hot path.
type GeneratorContext struct {
	shadow *shadow.Memory

	mu                  sync.Mutex
	newThreadsInOrder   []primitive.TID
	threadSpawns        []encoder.ThreadSpawn
	barrierParticipants []barrierEntry
	threadStats         map[primitive.TID]stats.ThreadStats
	barrierStats        map[primitive.TID][]stats.BarrierSnapshot

	counters stats.RunCounters
}

// Dispatcher routes the globally ordered primitive stream to per-thread
// contexts. It is not safe for concurrent use; the frontend serializes
// primitives before delivery.
type Dispatcher struct {
	opts Options
	gctx *GeneratorContext

	tcxts      map[primitive.TID]*ThreadContext
	currentTID primitive.TID
	cached     *ThreadContext

	warnedNoThread bool
	closed         bool
}

// NewDispatcher validates opts and prepares a run. Shadow memory is created
// here, before the first primitive is dispatched.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{
		opts: opts,
		gctx: &GeneratorContext{
			shadow:       shadow.New(),
			threadStats:  make(map[primitive.TID]stats.ThreadStats),
			barrierStats: make(map[primitive.TID][]stats.BarrierSnapshot),
		},
		tcxts: make(map[primitive.TID]*ThreadContext),
	}, nil
}

// Counters exposes the live run counters for metrics scraping. Safe to read
// concurrently with dispatching.
func (d *Dispatcher) Counters() *stats.RunCounters {
	return &d.gctx.counters
}

// OnMem dispatches a memory-access primitive to the current thread.
func (d *Dispatcher) OnMem(ev primitive.MemEv) {
	tc := d.current()
	if tc == nil {
		return
	}
	d.gctx.counters.Primitives.Add(1)

	switch ev.Type {
	case primitive.MemLoad:
		tc.OnRead(ev.Addr, ev.Size)
	case primitive.MemStore:
		tc.OnWrite(ev.Addr, ev.Size)
	}
}

// OnComp dispatches a compute primitive to the current thread.
func (d *Dispatcher) OnComp(ev primitive.CompEv) {
	tc := d.current()
	if tc == nil {
		return
	}
	d.gctx.counters.Primitives.Add(1)

	switch ev.Type {
	case primitive.CompIOP:
		tc.OnIOP()
	case primitive.CompFLOP:
		tc.OnFLOP()
	}
}

// OnCxt dispatches a context-marker primitive to the current thread.
func (d *Dispatcher) OnCxt(ev primitive.CxtEv) {
	tc := d.current()
	if tc == nil {
		return
	}
	d.gctx.counters.Primitives.Add(1)

	if ev.Type == primitive.CxtInstr {
		tc.OnInstr()
	}
}

// OnSync handles a synchronization primitive. Swap switches the current
// thread without emitting anything; Create and BarrierWait update the run
// metadata before the record is emitted like any other sync.
func (d *Dispatcher) OnSync(ev primitive.SyncEv) {
	d.gctx.counters.Primitives.Add(1)

	if ev.Type == primitive.SyncSwap {
		d.onSwap(primitive.TID(ev.ID))
		return
	}

	tc := d.current()
	if tc == nil {
		return
	}

	switch ev.Type {
	case primitive.SyncCreate:
		d.gctx.mu.Lock()
		d.gctx.threadSpawns = append(d.gctx.threadSpawns, encoder.ThreadSpawn{
			Spawner:   d.currentTID,
			ChildAddr: ev.ID,
		})
		d.gctx.mu.Unlock()
	case primitive.SyncBarrier:
		d.onBarrier(ev.ID)
	}

	kind, err := canonicalSyncType(ev.Type)
	if err != nil {
		siglog.Fatalf("%v", err)
	}
	tc.OnSync(kind, ev.ID)
}

// onSwap switches the dispatch cursor to newTID, creating its context on
// first sight. The outgoing thread's aggregators flush so its events do not
// interleave with the incoming thread's.
func (d *Dispatcher) onSwap(newTID primitive.TID) {
	if newTID == d.currentTID {
		return
	}

	if _, ok := d.tcxts[newTID]; !ok {
		tc, err := newThreadContext(newTID, d.opts, d.gctx.shadow, &d.gctx.counters)
		if err != nil {
			siglog.Fatalf("%v", err)
		}
		d.tcxts[newTID] = tc

		d.gctx.mu.Lock()
		d.gctx.newThreadsInOrder = append(d.gctx.newThreadsInOrder, newTID)
		d.gctx.mu.Unlock()
	}

	if d.cached != nil {
		d.cached.compFlushIfActive()
		d.cached.commFlushIfActive()
	}

	d.currentTID = newTID
	d.cached = d.tcxts[newTID]
}

// onBarrier records the current thread as a participant of the barrier at
// addr. Entries are probed linearly in first-wait order; barrier counts per
// run are small.
func (d *Dispatcher) onBarrier(addr primitive.Addr) {
	d.gctx.mu.Lock()
	defer d.gctx.mu.Unlock()

	for i := range d.gctx.barrierParticipants {
		if d.gctx.barrierParticipants[i].addr == addr {
			d.gctx.barrierParticipants[i].participants[d.currentTID] = struct{}{}
			return
		}
	}
	d.gctx.barrierParticipants = append(d.gctx.barrierParticipants, barrierEntry{
		addr:         addr,
		participants: map[primitive.TID]struct{}{d.currentTID: {}},
	})
}

// current returns the context of the thread currently executing. Primitives
// arriving before the first Swap have no thread to belong to and are
// dropped with a one-time warning.
func (d *Dispatcher) current() *ThreadContext {
	if d.cached == nil && !d.warnedNoThread {
		siglog.Warnf("primitive received before first thread swap, dropping")
		d.warnedNoThread = true
	}
	return d.cached
}

// canonicalSyncType translates a frontend sync code into the canonical
// SynchroTrace encoding. Swap never reaches here.
func canonicalSyncType(t primitive.SyncType) (byte, error) {
	switch t {
	case primitive.SyncLock:
		return stevent.SyncMutexLock, nil
	case primitive.SyncUnlock:
		return stevent.SyncMutexUnlock, nil
	case primitive.SyncCreate:
		return stevent.SyncThreadCreate, nil
	case primitive.SyncJoin:
		return stevent.SyncThreadJoin, nil
	case primitive.SyncBarrier:
		return stevent.SyncBarrierWait, nil
	case primitive.SyncCondWait:
		return stevent.SyncCondWait, nil
	case primitive.SyncCondSignal:
		return stevent.SyncCondSignal, nil
	case primitive.SyncCondBroadcast:
		return stevent.SyncCondBroadcast, nil
	case primitive.SyncSpinLock:
		return stevent.SyncSpinLock, nil
	case primitive.SyncSpinUnlock:
		return stevent.SyncSpinUnlock, nil
	default:
		return 0, fmt.Errorf("unknown sync code %d from frontend", int(t))
	}
}

// Close flushes every thread context, aggregates final statistics, and
// writes the pthread and stats summary artifacts. The dispatcher must not be
// used afterwards.
func (d *Dispatcher) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error

	d.gctx.mu.Lock()
	defer d.gctx.mu.Unlock()

	for _, tid := range d.gctx.newThreadsInOrder {
		tc := d.tcxts[tid]
		d.gctx.threadStats[tid] = tc.Stats()
		d.gctx.barrierStats[tid] = tc.BarrierSnapshots()
		if err := tc.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	barriers := make([]encoder.BarrierParticipants, len(d.gctx.barrierParticipants))
	for i, entry := range d.gctx.barrierParticipants {
		bp := encoder.BarrierParticipants{Addr: entry.addr}
		for tid := range entry.participants {
			bp.Participants = append(bp.Participants, tid)
		}
		barriers[i] = bp
	}

	pthreadPath := filepath.Join(d.opts.OutputDir, "sigil.pthread.out")
	if err := encoder.WritePthread(pthreadPath, d.gctx.newThreadsInOrder, d.gctx.threadSpawns, barriers); err != nil {
		errs = append(errs, err)
	}

	statsPath := filepath.Join(d.opts.OutputDir, "sigil.stats.out")
	if err := stats.WriteFile(statsPath, d.gctx.newThreadsInOrder, d.gctx.threadStats, d.gctx.barrierStats); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
