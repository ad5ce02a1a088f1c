package stevent

import (
	"testing"

	"github.com/kolkov/stgen/internal/stgen/addrset"
)

// TestCompEventActivation verifies that counters activate the event and
// range recording alone does not.
func TestCompEventActivation(t *testing.T) {
	e := NewCompEvent()
	if e.Active() {
		t.Fatal("new CompEvent is active")
	}

	e.RecordRead(0x1000, 4)
	if e.Active() {
		t.Error("RecordRead activated the event; only counters may")
	}

	e.IncRead()
	if !e.Active() {
		t.Error("IncRead did not activate the event")
	}
}

// TestCompEventCountersAndRanges folds a small mix of primitives and checks
// the aggregate state.
func TestCompEventCountersAndRanges(t *testing.T) {
	e := NewCompEvent()

	e.IncIOP()
	e.IncIOP()
	e.IncFLOP()
	e.IncWrite()
	e.RecordWrite(0x1000, 4)
	e.IncRead()
	e.RecordRead(0x1002, 4)
	e.RecordRead(0x1006, 2)

	if e.IOPs != 2 || e.FLOPs != 1 || e.Reads != 1 || e.Writes != 1 {
		t.Errorf("counters = {iops:%d flops:%d reads:%d writes:%d}, want {2 1 1 1}",
			e.IOPs, e.FLOPs, e.Reads, e.Writes)
	}

	wantWrites := []addrset.Range{{First: 0x1000, Last: 0x1003}}
	if got := e.WriteRanges.Ranges(); len(got) != 1 || got[0] != wantWrites[0] {
		t.Errorf("write ranges = %v, want %v", got, wantWrites)
	}

	// The two read ranges are adjacent and must have fused.
	wantReads := []addrset.Range{{First: 0x1002, Last: 0x1007}}
	if got := e.ReadRanges.Ranges(); len(got) != 1 || got[0] != wantReads[0] {
		t.Errorf("read ranges = %v, want %v", got, wantReads)
	}
}

// TestCompEventZeroSizeRecordIgnored verifies size-0 ranges record nothing.
func TestCompEventZeroSizeRecordIgnored(t *testing.T) {
	e := NewCompEvent()
	e.RecordRead(0x1000, 0)
	e.RecordWrite(0x2000, 0)
	if !e.ReadRanges.Empty() || !e.WriteRanges.Empty() {
		t.Errorf("zero-size record stored ranges: reads=%v writes=%v",
			e.ReadRanges.Ranges(), e.WriteRanges.Ranges())
	}
}

// TestCompEventReset verifies the post-flush state: counters zero, sets
// empty, inactive.
func TestCompEventReset(t *testing.T) {
	e := NewCompEvent()
	e.IncIOP()
	e.IncWrite()
	e.RecordWrite(0x1000, 8)

	e.Reset()

	if e.Active() {
		t.Error("active after Reset")
	}
	if e.IOPs != 0 || e.FLOPs != 0 || e.Reads != 0 || e.Writes != 0 {
		t.Error("counters nonzero after Reset")
	}
	if !e.WriteRanges.Empty() || !e.ReadRanges.Empty() {
		t.Error("range sets nonempty after Reset")
	}
}

// TestCommEventEdgeMerging verifies bytes from the same (producer, event)
// fold into one edge while distinct producers append, preserving insertion
// order.
func TestCommEventEdgeMerging(t *testing.T) {
	e := NewCommEvent()
	if e.Active() {
		t.Fatal("new CommEvent is active")
	}

	e.AddEdge(2, 10, 0x1000)
	e.AddEdge(2, 10, 0x1001) // same edge, adjacent byte
	e.AddEdge(3, 4, 0x2000)  // new producer
	e.AddEdge(2, 11, 0x1002) // same producer, different event

	if !e.Active() {
		t.Fatal("AddEdge did not activate the event")
	}
	if len(e.Edges) != 3 {
		t.Fatalf("got %d edges, want 3: %+v", len(e.Edges), e.Edges)
	}

	first := e.Edges[0]
	if first.Producer != 2 || first.ProducerEID != 10 {
		t.Errorf("edge[0] = (%d,%d), want (2,10)", first.Producer, first.ProducerEID)
	}
	if got := first.Addrs.Ranges(); len(got) != 1 || got[0] != (addrset.Range{First: 0x1000, Last: 0x1001}) {
		t.Errorf("edge[0] ranges = %v, want [(1000,1001)]", got)
	}

	if e.Edges[1].Producer != 3 || e.Edges[2].ProducerEID != 11 {
		t.Errorf("insertion order not preserved: %+v", e.Edges)
	}
}

// TestCommEventReset verifies Reset drops edges and deactivates.
func TestCommEventReset(t *testing.T) {
	e := NewCommEvent()
	e.AddEdge(1, 1, 0x1000)
	e.Reset()

	if e.Active() || len(e.Edges) != 0 {
		t.Errorf("after Reset: active=%v edges=%d, want inactive empty", e.Active(), len(e.Edges))
	}
}

// TestInstrEventMarkerCadence verifies a marker fires exactly every
// MarkerInterval instructions.
func TestInstrEventMarkerCadence(t *testing.T) {
	e := NewInstrEvent()

	markers := 0
	for i := 1; i <= 3*MarkerInterval; i++ {
		if e.Observe() {
			markers++
			if i%MarkerInterval != 0 {
				t.Errorf("marker fired at instruction %d", i)
			}
		}
	}
	if markers != 3 {
		t.Errorf("got %d markers over 3 intervals, want 3", markers)
	}
	if e.Count() != 3*MarkerInterval {
		t.Errorf("Count() = %d, want %d", e.Count(), 3*MarkerInterval)
	}
}
