package shadow

import (
	"errors"

	"github.com/kolkov/stgen/internal/stgen/primitive"
)

// ErrAddrOutOfRange reports an access beyond the tracked address space in
// strict mode. Callers demote the offending access to a thread-local one.
var ErrAddrOutOfRange = errors.New("shadow: address out of tracked range")

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1

	// allowAddrOverflow permits tracking of addresses beyond maxTrackedAddr.
	// Some frontends report very high addresses for thread-local storage and
	// kernel-mapped pages; until those are classified, track them like any
	// other address. Build with false to surface them as ErrAddrOutOfRange.
	allowAddrOverflow = true

	// maxTrackedAddr bounds the tracked address space in strict mode:
	// 2^48-1 covers the canonical user-space range of the usual targets.
	maxTrackedAddr primitive.Addr = 1<<48 - 1
)

// cell is the shadow state for a single byte.
type cell struct {
	writerTID primitive.TID // primitive.TIDUndef until first write
	writerEID primitive.EID
	readers   [2]uint64 // bitset over TIDs 1..128, bit index tid-1
}

type page struct {
	cells [pageSize]cell
}

// Memory is the process-wide shadow table. Create one with New before the
// first primitive is dispatched and retain it until shutdown.
type Memory struct {
	pages map[primitive.Addr]*page

	// One-entry page cache for the per-byte loops of multi-byte accesses.
	lastIdx  primitive.Addr
	lastPage *page
}

// New returns an empty shadow table.
func New() *Memory {
	return &Memory{pages: make(map[primitive.Addr]*page)}
}

// lookup returns the cell for addr, or nil if its page was never materialized
// and create is false.
func (m *Memory) lookup(addr primitive.Addr, create bool) (*cell, error) {
	if !allowAddrOverflow && addr > maxTrackedAddr {
		return nil, ErrAddrOutOfRange
	}

	idx := addr >> pageShift
	p := m.lastPage
	if p == nil || idx != m.lastIdx {
		p = m.pages[idx]
		if p == nil {
			if !create {
				return nil, nil
			}
			p = new(page)
			m.pages[idx] = p
		}
		m.lastIdx, m.lastPage = idx, p
	}
	return &p.cells[addr&pageMask], nil
}

// Writer returns the last thread to write addr, or primitive.TIDUndef if no
// write has been recorded.
func (m *Memory) Writer(addr primitive.Addr) (primitive.TID, error) {
	c, err := m.lookup(addr, false)
	if err != nil || c == nil {
		return primitive.TIDUndef, err
	}
	return c.writerTID, nil
}

// WriterEID returns the event ID of the last write to addr. The value is only
// meaningful when Writer reports a defined thread.
func (m *Memory) WriterEID(addr primitive.Addr) (primitive.EID, error) {
	c, err := m.lookup(addr, false)
	if err != nil || c == nil {
		return 0, err
	}
	return c.writerEID, nil
}

// UpdateWriter marks each byte in [start, start+size) as written by (tid, eid)
// and clears that byte's reader set. A write supersedes all reads since the
// previous write, so subsequent loads by any thread see a fresh producer.
func (m *Memory) UpdateWriter(start primitive.Addr, size uint64, tid primitive.TID, eid primitive.EID) error {
	checkTID(tid)
	for i := uint64(0); i < size; i++ {
		c, err := m.lookup(start+primitive.Addr(i), true)
		if err != nil {
			return err
		}
		c.writerTID = tid
		c.writerEID = eid
		c.readers[0] = 0
		c.readers[1] = 0
	}
	return nil
}

// IsReader reports whether tid has read addr since the last write to it.
func (m *Memory) IsReader(addr primitive.Addr, tid primitive.TID) (bool, error) {
	checkTID(tid)
	c, err := m.lookup(addr, false)
	if err != nil || c == nil {
		return false, err
	}
	word, mask := readerBit(tid)
	return c.readers[word]&mask != 0, nil
}

// UpdateReader adds tid to the reader set of each byte in [start, start+size).
func (m *Memory) UpdateReader(start primitive.Addr, size uint64, tid primitive.TID) error {
	checkTID(tid)
	word, mask := readerBit(tid)
	for i := uint64(0); i < size; i++ {
		c, err := m.lookup(start+primitive.Addr(i), true)
		if err != nil {
			return err
		}
		c.readers[word] |= mask
	}
	return nil
}

// Reset drops all shadow state. Only used by tests; the table normally lives
// for the whole run.
func (m *Memory) Reset() {
	m.pages = make(map[primitive.Addr]*page)
	m.lastPage = nil
	m.lastIdx = 0
}

func readerBit(tid primitive.TID) (word int, mask uint64) {
	bit := uint(tid - 1)
	return int(bit >> 6), 1 << (bit & 63)
}

// checkTID enforces the reader-bitset TID bound. The dispatcher validates
// thread IDs when a context is created, so a violation here is a programming
// error, not bad input.
func checkTID(tid primitive.TID) {
	if tid == primitive.TIDUndef || tid > primitive.MaxTID {
		panic("shadow: thread id outside tracked range")
	}
}
