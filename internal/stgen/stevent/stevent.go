// Package stevent implements the SynchroTrace event aggregators.
//
// A SynchroTrace event is one emitted trace record: Computation,
// Communication, Synchronization, or an instruction Marker. Trillions of
// primitives can flow through a run, so event state is kept in three
// long-lived aggregators per thread and reset on every flush instead of being
// allocated per event.
//
// Synchronization events carry no accumulated state; they are translated and
// handed to the encoder immediately by the thread context.
package stevent

import (
	"github.com/kolkov/stgen/internal/stgen/addrset"
	"github.com/kolkov/stgen/internal/stgen/primitive"
)

// Canonical SynchroTrace sync type encodings, as expected by the downstream
// replay simulator. Semaphore values (11-15) exist in that numbering but are
// not supported here.
const (
	SyncMutexLock     byte = 1
	SyncMutexUnlock   byte = 2
	SyncThreadCreate  byte = 3
	SyncThreadJoin    byte = 4
	SyncBarrierWait   byte = 5
	SyncCondWait      byte = 6
	SyncCondSignal    byte = 7
	SyncCondBroadcast byte = 8
	SyncSpinLock      byte = 9
	SyncSpinUnlock    byte = 10
)

// CompEvent aggregates a run of compute and thread-local memory primitives
// into one Computation record.
//
// Counters track the primitives folded in; the two range sets deduplicate the
// byte ranges touched. The event is "active" once any counter has been
// bumped; recording a range alone does not activate it.
type CompEvent struct {
	IOPs   uint64
	FLOPs  uint64
	Reads  uint64
	Writes uint64

	WriteRanges *addrset.Set // unique bytes stored
	ReadRanges  *addrset.Set // unique bytes loaded thread-locally

	active bool
}

// NewCompEvent returns an inactive, empty aggregator.
func NewCompEvent() *CompEvent {
	return &CompEvent{
		WriteRanges: addrset.New(),
		ReadRanges:  addrset.New(),
	}
}

// Active reports whether the aggregator holds unflushed state.
func (e *CompEvent) Active() bool {
	return e.active
}

// IncIOP folds one integer operation into the event.
func (e *CompEvent) IncIOP() {
	e.active = true
	e.IOPs++
}

// IncFLOP folds one floating-point operation into the event.
func (e *CompEvent) IncFLOP() {
	e.active = true
	e.FLOPs++
}

// IncRead folds one thread-local load into the event.
func (e *CompEvent) IncRead() {
	e.active = true
	e.Reads++
}

// IncWrite folds one store into the event.
func (e *CompEvent) IncWrite() {
	e.active = true
	e.Writes++
}

// RecordRead absorbs the byte range [begin, begin+size) into the unique read
// set. Size zero records nothing.
func (e *CompEvent) RecordRead(begin primitive.Addr, size uint64) {
	if size == 0 {
		return
	}
	e.ReadRanges.Insert(addrset.Range{First: begin, Last: begin + primitive.Addr(size) - 1})
}

// RecordWrite absorbs the byte range [begin, begin+size) into the unique
// write set. Size zero records nothing.
func (e *CompEvent) RecordWrite(begin primitive.Addr, size uint64) {
	if size == 0 {
		return
	}
	e.WriteRanges.Insert(addrset.Range{First: begin, Last: begin + primitive.Addr(size) - 1})
}

// Reset zeroes all counters, clears both range sets, and deactivates the
// event. Called after every flush.
func (e *CompEvent) Reset() {
	e.IOPs = 0
	e.FLOPs = 0
	e.Reads = 0
	e.Writes = 0
	e.WriteRanges.Clear()
	e.ReadRanges.Clear()
	e.active = false
}

// CommEdge is one producer→consumer dependency inside a Communication event:
// the consumer read bytes last written by Producer during that thread's
// ProducerEID event.
type CommEdge struct {
	Producer    primitive.TID
	ProducerEID primitive.EID
	Addrs       *addrset.Set
}

// CommEvent aggregates the communication edges of one outgoing Communication
// record. Edges keep insertion order; the downstream simulator relies on it.
type CommEvent struct {
	Edges []CommEdge

	active bool
}

// NewCommEvent returns an inactive, empty aggregator.
func NewCommEvent() *CommEvent {
	return &CommEvent{}
}

// Active reports whether the aggregator holds unflushed edges.
func (e *CommEvent) Active() bool {
	return e.active
}

// AddEdge folds the byte at addr into the edge for (producer, producerEID),
// appending a new edge if none exists. Events hold few edges, so a linear
// probe beats any indexed structure here.
func (e *CommEvent) AddEdge(producer primitive.TID, producerEID primitive.EID, addr primitive.Addr) {
	e.active = true

	for i := range e.Edges {
		edge := &e.Edges[i]
		if edge.Producer == producer && edge.ProducerEID == producerEID {
			edge.Addrs.InsertAddr(addr)
			return
		}
	}

	set := addrset.New()
	set.InsertAddr(addr)
	e.Edges = append(e.Edges, CommEdge{
		Producer:    producer,
		ProducerEID: producerEID,
		Addrs:       set,
	})
}

// Reset drops all edges and deactivates the event.
func (e *CommEvent) Reset() {
	e.Edges = e.Edges[:0]
	e.active = false
}

// MarkerInterval is the instruction-count granularity of trace markers:
// one marker per 2^12 observed instructions.
const MarkerInterval = 1 << 12

// InstrEvent batches instruction primitives into periodic checkpoint markers.
// Markers are pure bookkeeping for the replayer and consume no event ID.
type InstrEvent struct {
	instrs uint64
}

// NewInstrEvent returns a zeroed batcher.
func NewInstrEvent() *InstrEvent {
	return &InstrEvent{}
}

// Observe counts one instruction and reports whether a marker is due.
func (e *InstrEvent) Observe() bool {
	e.instrs++
	return e.instrs&(MarkerInterval-1) == 0
}

// Count returns the number of instructions observed so far.
func (e *InstrEvent) Count() uint64 {
	return e.instrs
}
