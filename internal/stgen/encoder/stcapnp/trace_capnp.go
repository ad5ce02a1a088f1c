// Package stcapnp contains Cap'n Proto bindings for the packed-binary trace
// schema in trace.capnp.
//
// The bindings are maintained by hand in the capnpc-go style rather than
// generated, so the repo builds without the capnp compiler installed. The
// struct layouts below (data-section offsets, pointer slots, union
// discriminants) are the wire format; they must stay in sync with
// trace.capnp.
//
// Layouts:
//
//	AddrRange:   data 16 bytes (start u64 @0, end u64 @8), 0 pointers
//	CommEdge:    data 16 bytes (producerThread u16 @0, producerEvent u64 @8),
//	             1 pointer (addrs)
//	Event:       data 24 bytes (which u16 @0; comp: iops u32 @4, flops u32 @8,
//	             reads u32 @12, writes u32 @16; sync: type u16 @2, id u64 @8;
//	             marker: count u64 @8), 2 pointers (comp: writeAddrs,
//	             readAddrs; comm: edges in slot 0)
//	EventStream: data 0 bytes, 1 pointer (events)
package stcapnp

import (
	capnp "capnproto.org/go/capnp/v3"
)

// SyncType mirrors the schema enum. Values are one less than the canonical
// SynchroTrace text encoding (which starts at 1).
type SyncType uint16

const (
	SyncType_lock          SyncType = 0
	SyncType_unlock        SyncType = 1
	SyncType_spawn         SyncType = 2
	SyncType_join          SyncType = 3
	SyncType_barrier       SyncType = 4
	SyncType_condWait      SyncType = 5
	SyncType_condSignal    SyncType = 6
	SyncType_condBroadcast SyncType = 7
	SyncType_spinLock      SyncType = 8
	SyncType_spinUnlock    SyncType = 9
)

// String returns the schema name of the enum value.
func (t SyncType) String() string {
	switch t {
	case SyncType_lock:
		return "lock"
	case SyncType_unlock:
		return "unlock"
	case SyncType_spawn:
		return "spawn"
	case SyncType_join:
		return "join"
	case SyncType_barrier:
		return "barrier"
	case SyncType_condWait:
		return "condWait"
	case SyncType_condSignal:
		return "condSignal"
	case SyncType_condBroadcast:
		return "condBroadcast"
	case SyncType_spinLock:
		return "spinLock"
	case SyncType_spinUnlock:
		return "spinUnlock"
	default:
		return ""
	}
}

// AddrRange is a closed byte-address interval.
type AddrRange capnp.Struct

var addrRangeSize = capnp.ObjectSize{DataSize: 16, PointerCount: 0}

func NewAddrRange(s *capnp.Segment) (AddrRange, error) {
	st, err := capnp.NewStruct(s, addrRangeSize)
	return AddrRange(st), err
}

func (r AddrRange) Start() uint64 {
	return capnp.Struct(r).Uint64(0)
}

func (r AddrRange) SetStart(v uint64) {
	capnp.Struct(r).SetUint64(0, v)
}

func (r AddrRange) End() uint64 {
	return capnp.Struct(r).Uint64(8)
}

func (r AddrRange) SetEnd(v uint64) {
	capnp.Struct(r).SetUint64(8, v)
}

// AddrRange_List is a list of AddrRange.
type AddrRange_List = capnp.StructList[AddrRange]

func NewAddrRange_List(s *capnp.Segment, sz int32) (AddrRange_List, error) {
	l, err := capnp.NewCompositeList(s, addrRangeSize, sz)
	return AddrRange_List(l), err
}

// CommEdge is one producer→consumer dependency.
type CommEdge capnp.Struct

var commEdgeSize = capnp.ObjectSize{DataSize: 16, PointerCount: 1}

func NewCommEdge(s *capnp.Segment) (CommEdge, error) {
	st, err := capnp.NewStruct(s, commEdgeSize)
	return CommEdge(st), err
}

func (e CommEdge) ProducerThread() uint16 {
	return capnp.Struct(e).Uint16(0)
}

func (e CommEdge) SetProducerThread(v uint16) {
	capnp.Struct(e).SetUint16(0, v)
}

func (e CommEdge) ProducerEvent() uint64 {
	return capnp.Struct(e).Uint64(8)
}

func (e CommEdge) SetProducerEvent(v uint64) {
	capnp.Struct(e).SetUint64(8, v)
}

func (e CommEdge) Addrs() (AddrRange_List, error) {
	p, err := capnp.Struct(e).Ptr(0)
	return AddrRange_List(p.List()), err
}

// NewAddrs allocates a new addrs list of length n and attaches it.
func (e CommEdge) NewAddrs(n int32) (AddrRange_List, error) {
	l, err := NewAddrRange_List(capnp.Struct(e).Segment(), n)
	if err != nil {
		return AddrRange_List{}, err
	}
	err = capnp.Struct(e).SetPtr(0, l.ToPtr())
	return l, err
}

// CommEdge_List is a list of CommEdge.
type CommEdge_List = capnp.StructList[CommEdge]

func NewCommEdge_List(s *capnp.Segment, sz int32) (CommEdge_List, error) {
	l, err := capnp.NewCompositeList(s, commEdgeSize, sz)
	return CommEdge_List(l), err
}

// Event is one trace record; exactly one union arm is set.
type Event capnp.Struct

var eventSize = capnp.ObjectSize{DataSize: 24, PointerCount: 2}

// Event_Which is the union discriminant.
type Event_Which uint16

const (
	Event_Which_comp   Event_Which = 0
	Event_Which_comm   Event_Which = 1
	Event_Which_sync   Event_Which = 2
	Event_Which_marker Event_Which = 3
)

func NewEvent(s *capnp.Segment) (Event, error) {
	st, err := capnp.NewStruct(s, eventSize)
	return Event(st), err
}

func (e Event) Which() Event_Which {
	return Event_Which(capnp.Struct(e).Uint16(0))
}

// Event_comp is the computation arm.
type Event_comp capnp.Struct

// InitComp selects the comp arm and returns its accessor.
func (e Event) InitComp() Event_comp {
	capnp.Struct(e).SetUint16(0, uint16(Event_Which_comp))
	return Event_comp(e)
}

// Comp returns the comp arm accessor; meaningful only when Which() reports
// Event_Which_comp.
func (e Event) Comp() Event_comp {
	return Event_comp(e)
}

func (c Event_comp) Iops() uint32       { return capnp.Struct(c).Uint32(4) }
func (c Event_comp) SetIops(v uint32)   { capnp.Struct(c).SetUint32(4, v) }
func (c Event_comp) Flops() uint32      { return capnp.Struct(c).Uint32(8) }
func (c Event_comp) SetFlops(v uint32)  { capnp.Struct(c).SetUint32(8, v) }
func (c Event_comp) Reads() uint32      { return capnp.Struct(c).Uint32(12) }
func (c Event_comp) SetReads(v uint32)  { capnp.Struct(c).SetUint32(12, v) }
func (c Event_comp) Writes() uint32     { return capnp.Struct(c).Uint32(16) }
func (c Event_comp) SetWrites(v uint32) { capnp.Struct(c).SetUint32(16, v) }

func (c Event_comp) WriteAddrs() (AddrRange_List, error) {
	p, err := capnp.Struct(c).Ptr(0)
	return AddrRange_List(p.List()), err
}

func (c Event_comp) NewWriteAddrs(n int32) (AddrRange_List, error) {
	l, err := NewAddrRange_List(capnp.Struct(c).Segment(), n)
	if err != nil {
		return AddrRange_List{}, err
	}
	err = capnp.Struct(c).SetPtr(0, l.ToPtr())
	return l, err
}

func (c Event_comp) ReadAddrs() (AddrRange_List, error) {
	p, err := capnp.Struct(c).Ptr(1)
	return AddrRange_List(p.List()), err
}

func (c Event_comp) NewReadAddrs(n int32) (AddrRange_List, error) {
	l, err := NewAddrRange_List(capnp.Struct(c).Segment(), n)
	if err != nil {
		return AddrRange_List{}, err
	}
	err = capnp.Struct(c).SetPtr(1, l.ToPtr())
	return l, err
}

// Event_comm is the communication arm.
type Event_comm capnp.Struct

// InitComm selects the comm arm and returns its accessor.
func (e Event) InitComm() Event_comm {
	capnp.Struct(e).SetUint16(0, uint16(Event_Which_comm))
	return Event_comm(e)
}

// Comm returns the comm arm accessor.
func (e Event) Comm() Event_comm {
	return Event_comm(e)
}

func (c Event_comm) Edges() (CommEdge_List, error) {
	p, err := capnp.Struct(c).Ptr(0)
	return CommEdge_List(p.List()), err
}

func (c Event_comm) NewEdges(n int32) (CommEdge_List, error) {
	l, err := NewCommEdge_List(capnp.Struct(c).Segment(), n)
	if err != nil {
		return CommEdge_List{}, err
	}
	err = capnp.Struct(c).SetPtr(0, l.ToPtr())
	return l, err
}

// Event_sync is the synchronization arm.
type Event_sync capnp.Struct

// InitSync selects the sync arm and returns its accessor.
func (e Event) InitSync() Event_sync {
	capnp.Struct(e).SetUint16(0, uint16(Event_Which_sync))
	return Event_sync(e)
}

// Sync returns the sync arm accessor.
func (e Event) Sync() Event_sync {
	return Event_sync(e)
}

func (s Event_sync) Type() SyncType     { return SyncType(capnp.Struct(s).Uint16(2)) }
func (s Event_sync) SetType(v SyncType) { capnp.Struct(s).SetUint16(2, uint16(v)) }
func (s Event_sync) Id() uint64         { return capnp.Struct(s).Uint64(8) }
func (s Event_sync) SetId(v uint64)     { capnp.Struct(s).SetUint64(8, v) }

// Event_marker is the instruction-marker arm.
type Event_marker capnp.Struct

// InitMarker selects the marker arm and returns its accessor.
func (e Event) InitMarker() Event_marker {
	capnp.Struct(e).SetUint16(0, uint16(Event_Which_marker))
	return Event_marker(e)
}

// Marker returns the marker arm accessor.
func (e Event) Marker() Event_marker {
	return Event_marker(e)
}

func (m Event_marker) Count() uint64     { return capnp.Struct(m).Uint64(8) }
func (m Event_marker) SetCount(v uint64) { capnp.Struct(m).SetUint64(8, v) }

// Event_List is a list of Event.
type Event_List = capnp.StructList[Event]

func NewEvent_List(s *capnp.Segment, sz int32) (Event_List, error) {
	l, err := capnp.NewCompositeList(s, eventSize, sz)
	return Event_List(l), err
}

// EventStream is the root of one packed message.
type EventStream capnp.Struct

var eventStreamSize = capnp.ObjectSize{DataSize: 0, PointerCount: 1}

func NewRootEventStream(s *capnp.Segment) (EventStream, error) {
	st, err := capnp.NewRootStruct(s, eventStreamSize)
	return EventStream(st), err
}

func ReadRootEventStream(msg *capnp.Message) (EventStream, error) {
	root, err := msg.Root()
	return EventStream(root.Struct()), err
}

func (s EventStream) Events() (Event_List, error) {
	p, err := capnp.Struct(s).Ptr(0)
	return Event_List(p.List()), err
}

// NewEvents allocates the events list of length n and attaches it.
func (s EventStream) NewEvents(n int32) (Event_List, error) {
	l, err := NewEvent_List(capnp.Struct(s).Segment(), n)
	if err != nil {
		return Event_List{}, err
	}
	err = capnp.Struct(s).SetPtr(0, l.ToPtr())
	return l, err
}
