// Package tracegen is the event-aggregation and communication-detection
// engine.
//
// A Dispatcher consumes the frontend's globally ordered primitive stream and
// routes each primitive to the ThreadContext of the thread currently
// executing. Thread identity changes arrive in-band as Swap sync primitives;
// contexts are created lazily the first time a thread is seen.
//
// Each ThreadContext folds primitives into three SynchroTrace event classes:
//
//   - Computation: runs of compute ops and thread-local memory accesses,
//     compressed up to a configurable primitive cap per event.
//   - Communication: producer→consumer edges derived from loads of bytes last
//     written by another thread (detected via shared shadow memory).
//   - Synchronization: translated one-for-one from sync primitives.
//
// At most one of the computation and communication aggregators is active per
// thread at any instant; a primitive that would activate one flushes the
// other first. Every flushed event consumes the thread's next event ID;
// per-thread IDs start at 1 and are contiguous, which the shadow memory
// relies on to stamp producer events into communication edges.
//
// The engine is single-threaded with respect to primitive processing. The
// only lock is the GeneratorContext mutex guarding dispatcher metadata
// (thread order, spawns, barrier participants, final stats), taken off the
// hot path on Swap, Create, BarrierWait, and shutdown.
package tracegen
