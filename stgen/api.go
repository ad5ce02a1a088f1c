package stgen

import (
	"fmt"

	"github.com/kolkov/stgen/internal/stgen/encoder"
	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/tracegen"
)

// SyncType identifies a synchronization primitive reported by the frontend.
type SyncType int

// Frontend synchronization primitive types. SyncSwap is control flow for the
// generator itself (thread identity change); the rest emit trace records.
const (
	SyncSwap          SyncType = SyncType(primitive.SyncSwap)
	SyncLock          SyncType = SyncType(primitive.SyncLock)
	SyncUnlock        SyncType = SyncType(primitive.SyncUnlock)
	SyncCreate        SyncType = SyncType(primitive.SyncCreate)
	SyncJoin          SyncType = SyncType(primitive.SyncJoin)
	SyncBarrier       SyncType = SyncType(primitive.SyncBarrier)
	SyncCondWait      SyncType = SyncType(primitive.SyncCondWait)
	SyncCondSignal    SyncType = SyncType(primitive.SyncCondSignal)
	SyncCondBroadcast SyncType = SyncType(primitive.SyncCondBroadcast)
	SyncSpinLock      SyncType = SyncType(primitive.SyncSpinLock)
	SyncSpinUnlock    SyncType = SyncType(primitive.SyncSpinUnlock)
)

// Options configures a generation run.
type Options struct {
	// OutputDir receives all trace artifacts. Defaults to ".".
	OutputDir string

	// Compression is the maximum reads or writes folded into one Computation
	// event, range 1-100. Defaults to 100.
	Compression uint

	// Format selects the trace encoding: "text" (default), "capnp", or
	// "null".
	Format string
}

// Generator consumes frontend primitives and writes SynchroTrace traces.
// Create one per run with New; it is not safe for concurrent use.
type Generator struct {
	d *tracegen.Dispatcher
}

// New validates opts and prepares a generation run.
func New(opts Options) (*Generator, error) {
	format := opts.Format
	if format == "" {
		format = "text"
	}
	kind, err := encoder.ParseKind(format)
	if err != nil {
		return nil, fmt.Errorf("stgen: %w", err)
	}

	d, err := tracegen.NewDispatcher(tracegen.Options{
		OutputDir:      opts.OutputDir,
		PrimsPerCompEv: opts.Compression,
		Encoder:        kind,
	})
	if err != nil {
		return nil, fmt.Errorf("stgen: %w", err)
	}
	return &Generator{d: d}, nil
}

// Swap announces that the frontend's logical thread of execution changed.
// The first primitive for a new thread must be preceded by its Swap.
func (g *Generator) Swap(tid uint16) {
	g.d.OnSync(primitive.SyncEv{Type: primitive.SyncSwap, ID: primitive.Addr(tid)})
}

// Load reports a load of size bytes starting at addr.
func (g *Generator) Load(addr, size uint64) {
	g.d.OnMem(primitive.MemEv{Type: primitive.MemLoad, Addr: primitive.Addr(addr), Size: size})
}

// Store reports a store of size bytes starting at addr.
func (g *Generator) Store(addr, size uint64) {
	g.d.OnMem(primitive.MemEv{Type: primitive.MemStore, Addr: primitive.Addr(addr), Size: size})
}

// IOP reports one integer operation.
func (g *Generator) IOP() {
	g.d.OnComp(primitive.CompEv{Type: primitive.CompIOP})
}

// FLOP reports one floating-point operation.
func (g *Generator) FLOP() {
	g.d.OnComp(primitive.CompEv{Type: primitive.CompFLOP})
}

// Sync reports a synchronization primitive. id is the sync object's address
// (or the child thread handle for SyncCreate, the new TID for SyncSwap).
func (g *Generator) Sync(t SyncType, id uint64) {
	g.d.OnSync(primitive.SyncEv{Type: primitive.SyncType(t), ID: primitive.Addr(id)})
}

// Instr reports an instruction boundary at addr.
func (g *Generator) Instr(addr uint64) {
	g.d.OnCxt(primitive.CxtEv{Type: primitive.CxtInstr, Addr: primitive.Addr(addr)})
}

// Close flushes all per-thread state, writes the summary artifacts, and
// closes every trace file. The generator must not be used afterwards.
func (g *Generator) Close() error {
	return g.d.Close()
}
