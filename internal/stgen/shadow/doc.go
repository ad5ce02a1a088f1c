// Package shadow implements the byte-granular shadow memory used to detect
// inter-thread communication.
//
// # Overview
//
// For every byte the traced program touches, shadow memory maintains a cell
// recording:
//   - the last writer thread and the event ID current in that thread when the
//     write happened, and
//   - the set of threads that have read the byte since that write.
//
// The per-thread aggregation engine interrogates these cells on every load: a
// byte whose last writer is a different, defined thread and that the reading
// thread has not yet read produces a communication edge (producer thread,
// producer event, byte address). Everything else is a thread-local access.
//
// # Layout
//
// The table is a sparse two-level structure: a map keyed by the high bits of
// the address selects a page, and the page is a dense array of cells covering
// pageSize consecutive bytes. Pages materialize lazily on first write or read
// of any byte they cover. A one-entry page cache short-circuits the map lookup
// for the byte loops of multi-byte accesses, which overwhelmingly stay within
// one page.
//
// Reader sets are fixed-width 128-bit bitsets indexed by TID-1, which bounds
// tracked thread IDs to 1..128 and keeps a cell at 32 bytes.
//
// # Addressing policy
//
// Frontends occasionally report addresses far beyond the traced program's
// plausible address space. The build-time allowAddrOverflow constant selects
// the policy: when true (the default) such addresses are tracked like any
// other; when false, accesses beyond maxTrackedAddr fail with
// ErrAddrOutOfRange and the caller demotes the access to a thread-local one.
//
// # Concurrency
//
// The primitive stream is serialized by the dispatcher, so exactly one thread
// context touches shadow memory at any moment. The table therefore takes no
// locks; it must not be shared with concurrent writers.
package shadow
