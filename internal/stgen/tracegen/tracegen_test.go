package tracegen

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/stgen/internal/stgen/encoder"
	"github.com/kolkov/stgen/internal/stgen/primitive"
)

// newRun builds a dispatcher writing text traces into a temp dir.
func newRun(t *testing.T, primsPerCompEv uint) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := NewDispatcher(Options{
		OutputDir:      dir,
		PrimsPerCompEv: primsPerCompEv,
		Encoder:        encoder.KindText,
	})
	require.NoError(t, err)
	return d, dir
}

func swap(d *Dispatcher, tid primitive.TID) {
	d.OnSync(primitive.SyncEv{Type: primitive.SyncSwap, ID: primitive.Addr(tid)})
}

func store(d *Dispatcher, addr primitive.Addr, size uint64) {
	d.OnMem(primitive.MemEv{Type: primitive.MemStore, Addr: addr, Size: size})
}

func load(d *Dispatcher, addr primitive.Addr, size uint64) {
	d.OnMem(primitive.MemEv{Type: primitive.MemLoad, Addr: addr, Size: size})
}

func iop(d *Dispatcher) {
	d.OnComp(primitive.CompEv{Type: primitive.CompIOP})
}

// traceLines reads back a thread's text trace.
func traceLines(t *testing.T, dir string, tid primitive.TID) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, fmt.Sprintf("sigil.events.out-%d.gz", tid)))
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	var lines []string
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

// TestScenarioStoreAndIops: a store plus two integer ops fold into a single
// computation event.
func TestScenarioStoreAndIops(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x1000, 4)
	iop(d)
	iop(d)
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,1,2,0,0,1 $ 1000 1003"}, traceLines(t, dir, 1))
}

// TestScenarioSingleByteCommEdge: store by T1 then load by T2 produces
// exactly one communication record naming T1's event.
func TestScenarioSingleByteCommEdge(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x2000, 1)
	swap(d, 2)
	load(d, 0x2000, 1)
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,1,0,0,0,1 $ 2000 2000"}, traceLines(t, dir, 1))
	require.Equal(t, []string{"1,2 # 1 1 2000 2000"}, traceLines(t, dir, 2))
}

// TestScenarioSameThreadReadsStayLocal: a thread re-reading its own store is
// computation, never communication, and repeated loads do not re-classify.
func TestScenarioSameThreadReadsStayLocal(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x3000, 1)
	load(d, 0x3000, 1)
	load(d, 0x3000, 1)
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,1,0,0,2,1 $ 3000 3000 * 3000 3000"}, traceLines(t, dir, 1))
}

// TestScenarioPthreadSummary: spawn and barrier bookkeeping lands in
// sigil.pthread.out in observation order with sorted participants.
func TestScenarioPthreadSummary(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	d.OnSync(primitive.SyncEv{Type: primitive.SyncCreate, ID: 0xA})
	swap(d, 2)
	d.OnSync(primitive.SyncEv{Type: primitive.SyncBarrier, ID: 0xB})
	swap(d, 1)
	d.OnSync(primitive.SyncEv{Type: primitive.SyncBarrier, ID: 0xB})
	require.NoError(t, d.Close())

	data, err := os.ReadFile(filepath.Join(dir, "sigil.pthread.out"))
	require.NoError(t, err)
	require.Equal(t, "##1\n##2\n^^1,a\n**b,1,2\n", string(data))

	// The sync records themselves carry the canonical type encodings.
	require.Equal(t, []string{"1,1,pth_ty:3^a", "2,1,pth_ty:5^b"}, traceLines(t, dir, 1))
	require.Equal(t, []string{"1,2,pth_ty:5^b"}, traceLines(t, dir, 2))
}

// TestScenarioIopsOnly: 100 compute primitives under the default cap stay in
// one event. The cap applies to reads and writes, not ops.
func TestScenarioIopsOnly(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	for i := 0; i < 100; i++ {
		iop(d)
	}
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,1,100,0,0,0"}, traceLines(t, dir, 1))
}

// TestScenarioPartialRangeCommEdge: a load overlapping part of another
// thread's store communicates exactly the loaded bytes.
func TestScenarioPartialRangeCommEdge(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x4000, 8)
	swap(d, 2)
	load(d, 0x4004, 2)
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,2 # 1 1 4004 4005"}, traceLines(t, dir, 2))
}

// TestCompressionCap: with cap 3, four stores split into comp events of 3
// and 1 writes, consuming consecutive event IDs.
func TestCompressionCap(t *testing.T) {
	d, dir := newRun(t, 3)

	swap(d, 1)
	store(d, 0x100, 1)
	store(d, 0x200, 1)
	store(d, 0x300, 1)
	store(d, 0x400, 1)
	require.NoError(t, d.Close())

	require.Equal(t, []string{
		"1,1,0,0,0,3 $ 100 100 $ 200 200 $ 300 300",
		"2,1,0,0,0,1 $ 400 400",
	}, traceLines(t, dir, 1))
}

// TestZeroSizeStoreIgnored: a size-0 store leaves no trace and no shadow
// state.
func TestZeroSizeStoreIgnored(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x1000, 0)
	swap(d, 2)
	load(d, 0x1000, 1) // would be a comm edge if the store had registered
	require.NoError(t, d.Close())

	require.Empty(t, traceLines(t, dir, 1))
	require.Equal(t, []string{"1,2,0,0,1,0 * 1000 1000"}, traceLines(t, dir, 2))
}

// TestMixedLoadCoarsensToComm: when one byte of a load is an edge and
// another is local, the whole load becomes a communication event and the
// local byte is dropped from computation.
func TestMixedLoadCoarsensToComm(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x5000, 1)
	swap(d, 2)
	load(d, 0x5000, 2) // byte 0x5001 was never written
	iop(d)             // flushes the comm event; starts a comp event
	require.NoError(t, d.Close())

	// The comp event must not contain the dropped byte 0x5001.
	require.Equal(t, []string{
		"1,2 # 1 1 5000 5000",
		"2,2,1,0,0,0",
	}, traceLines(t, dir, 2))
}

// TestStoreFlushesActiveComm: a store while a communication event is active
// flushes it first, so at most one aggregator is ever active.
func TestStoreFlushesActiveComm(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x6000, 1)
	swap(d, 2)
	load(d, 0x6000, 1) // comm aggregator now active
	store(d, 0x7000, 1)
	require.NoError(t, d.Close())

	require.Equal(t, []string{
		"1,2 # 1 1 6000 6000",
		"2,2,0,0,0,1 $ 7000 7000",
	}, traceLines(t, dir, 2))
}

// TestEIDsContiguous: event IDs across event kinds form 1..N per thread.
func TestEIDsContiguous(t *testing.T) {
	d, dir := newRun(t, 1)

	swap(d, 1)
	store(d, 0x100, 1)                                               // comp event, eid 1 (cap 1 flushes immediately)
	iop(d)                                                           // comp event...
	d.OnSync(primitive.SyncEv{Type: primitive.SyncLock, ID: 0x10})   // flushes iop as eid 2, lock is eid 3
	d.OnSync(primitive.SyncEv{Type: primitive.SyncUnlock, ID: 0x10}) // eid 4
	require.NoError(t, d.Close())

	lines := traceLines(t, dir, 1)
	require.Len(t, lines, 4)
	for i, line := range lines {
		var eid, tid int
		_, err := fmt.Sscanf(line, "%d,%d", &eid, &tid)
		require.NoError(t, err)
		require.Equal(t, i+1, eid, "line %d: %s", i, line)
		require.Equal(t, 1, tid)
	}
}

// TestInactiveFlushConsumesNoEID: an immediate sync on a fresh thread gets
// event ID 1; the no-op aggregator flushes before it must not bump the
// counter.
func TestInactiveFlushConsumesNoEID(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	d.OnSync(primitive.SyncEv{Type: primitive.SyncJoin, ID: 0x20})
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,1,pth_ty:4^20"}, traceLines(t, dir, 1))
}

// TestSwapBackAndForth: swapping flushes the outgoing thread and resumes the
// incoming one with its own event numbering.
func TestSwapBackAndForth(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	iop(d)
	swap(d, 2)
	iop(d)
	iop(d)
	swap(d, 1) // T2's comp event flushes here
	iop(d)
	require.NoError(t, d.Close())

	// T1 does not accumulate across the swap gap: the swap flushed its first
	// iop, so the second iop starts a new event.
	require.Equal(t, []string{"1,1,1,0,0,0", "2,1,1,0,0,0"}, traceLines(t, dir, 1))
	require.Equal(t, []string{"1,2,2,0,0,0"}, traceLines(t, dir, 2))
}

// TestRedundantSwapKeepsAggregation: swapping to the current thread is a
// no-op and must not flush.
func TestRedundantSwapKeepsAggregation(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	iop(d)
	swap(d, 1)
	iop(d)
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,1,2,0,0,0"}, traceLines(t, dir, 1))
}

// TestWriterEIDTracksFlushes: a consumer names the producer event that was
// current when the store happened, not the producer's latest event.
func TestWriterEIDTracksFlushes(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	store(d, 0x100, 1)
	d.OnSync(primitive.SyncEv{Type: primitive.SyncLock, ID: 0x10}) // flushes comp as eid 1, lock eid 2
	store(d, 0x200, 1)                                             // recorded under eid 3
	swap(d, 2)
	load(d, 0x100, 1) // produced during T1 eid 1
	load(d, 0x200, 1) // produced during T1 eid 3
	require.NoError(t, d.Close())

	require.Equal(t, []string{"1,2 # 1 1 100 100 # 1 3 200 200"}, traceLines(t, dir, 2))
}

// TestRunCounters: the live counters reflect dispatched primitives and
// emitted events.
func TestRunCounters(t *testing.T) {
	d, _ := newRun(t, 100)

	swap(d, 1)
	store(d, 0x100, 4)
	iop(d)
	d.OnSync(primitive.SyncEv{Type: primitive.SyncLock, ID: 0x10})
	require.NoError(t, d.Close())

	rc := d.Counters()
	require.Equal(t, uint64(4), rc.Primitives.Load()) // swap, store, iop, lock
	require.Equal(t, uint64(1), rc.CompEvents.Load())
	require.Equal(t, uint64(1), rc.SyncEvents.Load())
}

// TestStatsSummaryWritten: per-thread stats land in sigil.stats.out.
func TestStatsSummaryWritten(t *testing.T) {
	d, dir := newRun(t, 100)

	swap(d, 1)
	iop(d)
	store(d, 0x100, 1)
	load(d, 0x100, 1)
	d.OnCxt(primitive.CxtEv{Type: primitive.CxtInstr, Addr: 0x400000})
	require.NoError(t, d.Close())

	data, err := os.ReadFile(filepath.Join(dir, "sigil.stats.out"))
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, "Thread 1\n")
	require.Contains(t, out, "\tIOPS  : 1\n")
	require.Contains(t, out, "\tReads : 1\n")
	require.Contains(t, out, "\tWrites: 1\n")
	require.Contains(t, out, "\tInstrs: 1\n")
}

// TestNullEncoderRun: the null strategy still produces the summary
// artifacts but no per-thread traces.
func TestNullEncoderRun(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDispatcher(Options{OutputDir: dir, PrimsPerCompEv: 100, Encoder: encoder.KindNull})
	require.NoError(t, err)

	swap(d, 1)
	iop(d)
	require.NoError(t, d.Close())

	_, err = os.Stat(filepath.Join(dir, "sigil.events.out-1.gz"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "sigil.pthread.out"))
	require.NoError(t, err)
}

// TestOptionsValidation: compression above 100 is rejected before any file
// is touched; zero-valued options take their defaults.
func TestOptionsValidation(t *testing.T) {
	_, err := NewDispatcher(Options{OutputDir: t.TempDir(), PrimsPerCompEv: 101})
	require.Error(t, err)

	d, err := NewDispatcher(Options{}) // defaults: ".", 100, text
	require.NoError(t, err)
	require.Equal(t, uint(100), d.opts.PrimsPerCompEv)
	require.Equal(t, ".", d.opts.OutputDir)
}
