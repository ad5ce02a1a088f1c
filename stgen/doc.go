// Package stgen provides the public API for the SynchroTrace generation
// backend.
//
// A dynamic-instrumentation frontend observes a running multithreaded
// program and reports what it sees as a single ordered stream of primitives:
// memory accesses, integer and floating-point ops, synchronization
// operations, and instruction boundaries. This package aggregates that
// stream into per-thread SynchroTrace event traces suitable for replay-based
// architectural simulation.
//
// # Quick Start
//
//	gen, err := stgen.New(stgen.Options{OutputDir: "traces"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gen.Swap(1)              // thread 1 starts executing
//	gen.Store(0x1000, 4)     // it stores 4 bytes
//	gen.IOP()                // and computes
//	gen.Swap(2)              // thread 2 takes over
//	gen.Load(0x1000, 4)      // reading thread 1's data: a communication edge
//
//	if err := gen.Close(); err != nil {
//		log.Fatal(err)
//	}
//
// The run produces one trace per observed thread
// (sigil.events.out-<tid>.gz), a thread/barrier summary (sigil.pthread.out),
// and per-thread statistics (sigil.stats.out) under OutputDir.
//
// # Event model
//
// Primitives fold into three event classes. Runs of compute ops and
// thread-local memory accesses compress into Computation events, capped at
// Options.Compression reads or writes per event (ops are not capped). Loads of bytes last written by a
// different thread become Communication events carrying producer→consumer
// edges; detection is byte-granular through a shared shadow memory.
// Synchronization primitives emit one Synchronization record each.
//
// # Threading
//
// The generator is not safe for concurrent use: the frontend must serialize
// primitives before delivery, announcing thread changes with Swap. This
// mirrors how instrumentation frontends already operate — they interleave
// application threads onto one event stream.
package stgen
