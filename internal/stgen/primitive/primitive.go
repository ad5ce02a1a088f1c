// Package primitive defines the execution primitives delivered by a
// dynamic-instrumentation frontend.
//
// A frontend observes a running program and serializes what it sees into a
// single ordered stream of primitives: memory accesses, compute operations,
// synchronization operations, and context markers. Logical thread identity is
// carried in-band by SyncSwap primitives; all primitives between two swaps
// belong to the thread named by the first one.
//
// The types here are the wire-level vocabulary shared by the dispatcher, the
// per-thread aggregation engine, and the CLI stream reader.
package primitive

import "fmt"

// TID identifies a logical thread observed by the frontend.
//
// Valid thread IDs start at 1. The zero value is reserved as the
// "no writer recorded" sentinel in shadow memory (see TIDUndef).
type TID uint16

// EID is a per-thread event ID. Every SynchroTrace event emitted for a thread
// consumes the next EID; the sequence starts at 1 and is contiguous.
// Overflow is a fatal error.
type EID uint64

// Addr is an unsigned byte address in the traced program's address space.
type Addr uint64

const (
	// TIDUndef marks a shadow memory byte that has never been written.
	TIDUndef TID = 0

	// MaxTID is the highest thread ID the engine tracks. The per-byte reader
	// sets in shadow memory are fixed-width bitsets, which bounds the usable
	// TID range.
	MaxTID TID = 128
)

// MemType distinguishes the two kinds of memory access primitives.
type MemType int

const (
	MemLoad MemType = iota
	MemStore
)

func (t MemType) String() string {
	switch t {
	case MemLoad:
		return "load"
	case MemStore:
		return "store"
	default:
		return "unknown"
	}
}

// CompType distinguishes the two kinds of compute primitives.
type CompType int

const (
	CompIOP  CompType = iota // integer operation
	CompFLOP                 // floating-point operation
)

func (t CompType) String() string {
	switch t {
	case CompIOP:
		return "iop"
	case CompFLOP:
		return "flop"
	default:
		return "unknown"
	}
}

// SyncType is the frontend's encoding of a synchronization primitive.
//
// SyncSwap is a control value: it signals that the frontend's logical thread
// of execution changed, and is consumed by the dispatcher without producing a
// trace record. All other values are translated to the canonical SynchroTrace
// numbering when a sync record is emitted (see the stevent package).
type SyncType int

const (
	SyncSwap SyncType = iota
	SyncLock
	SyncUnlock
	SyncCreate
	SyncJoin
	SyncBarrier
	SyncCondWait
	SyncCondSignal
	SyncCondBroadcast
	SyncSpinLock
	SyncSpinUnlock
)

func (t SyncType) String() string {
	switch t {
	case SyncSwap:
		return "swap"
	case SyncLock:
		return "lock"
	case SyncUnlock:
		return "unlock"
	case SyncCreate:
		return "create"
	case SyncJoin:
		return "join"
	case SyncBarrier:
		return "barrier"
	case SyncCondWait:
		return "condwait"
	case SyncCondSignal:
		return "condsignal"
	case SyncCondBroadcast:
		return "condbroadcast"
	case SyncSpinLock:
		return "spinlock"
	case SyncSpinUnlock:
		return "spinunlock"
	default:
		return "unknown"
	}
}

// ParseSyncType parses the textual frontend name of a sync primitive.
// It accepts exactly the names produced by SyncType.String.
func ParseSyncType(s string) (SyncType, error) {
	for t := SyncSwap; t <= SyncSpinUnlock; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown sync primitive %q", s)
}

// CxtType distinguishes context-marker primitives.
type CxtType int

const (
	// CxtInstr marks an instruction boundary at a given address.
	CxtInstr CxtType = iota
)

// MemEv is a memory access primitive covering the byte range
// [Addr, Addr+Size).
type MemEv struct {
	Type MemType
	Addr Addr
	Size uint64
}

// CompEv is a compute primitive (a single integer or floating-point op).
type CompEv struct {
	Type CompType
}

// SyncEv is a synchronization primitive.
//
// The meaning of ID depends on Type: a thread ID for SyncSwap, the address of
// the created thread's handle for SyncCreate, and the address of the sync
// object (mutex, barrier, condition variable, spin lock) otherwise.
type SyncEv struct {
	Type SyncType
	ID   Addr
}

// CxtEv is a context-marker primitive. For CxtInstr, Addr is the address of
// the instruction.
type CxtEv struct {
	Type CxtType
	Addr Addr
}
