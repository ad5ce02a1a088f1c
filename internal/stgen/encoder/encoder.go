// Package encoder implements the per-thread trace sinks.
//
// Every thread context owns one encoder. Three interchangeable strategies
// exist, selected once per run:
//
//   - Text: the line-oriented SynchroTrace format, gzip-compressed, the
//     format the downstream replay simulator parses.
//   - Capnp: Cap'n Proto packed messages batched into EventStream roots,
//     gzip-compressed. Denser than text for large traces.
//   - Null: discards everything; used to profile the frontend.
//
// Encoders open their output artifact at construction and close it in Close.
// Write errors surface as returned errors; the caller treats them as fatal.
package encoder

import (
	"fmt"

	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/stevent"
)

// Encoder is the sink contract for one thread's event stream.
type Encoder interface {
	// EmitComp writes a Computation record for the given aggregator state.
	EmitComp(eid primitive.EID, tid primitive.TID, ev *stevent.CompEvent) error

	// EmitComm writes a Communication record for the given aggregator state.
	EmitComm(eid primitive.EID, tid primitive.TID, ev *stevent.CommEvent) error

	// EmitSync writes a Synchronization record. kind is the canonical
	// SynchroTrace sync encoding (stevent.SyncMutexLock etc).
	EmitSync(eid primitive.EID, tid primitive.TID, kind byte, syncAddr primitive.Addr) error

	// EmitInstrMarker writes an instruction checkpoint marker carrying the
	// number of instructions since the previous marker.
	EmitInstrMarker(count uint64) error

	// Close flushes buffered records and closes the output artifact.
	Close() error
}

// Kind selects an encoder strategy.
type Kind int

const (
	KindText Kind = iota
	KindCapnp
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCapnp:
		return "capnp"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// ParseKind parses the -l option value.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text":
		return KindText, nil
	case "capnp":
		return KindCapnp, nil
	case "null":
		return KindNull, nil
	default:
		return 0, fmt.Errorf("unknown trace format %q (must be text, capnp, or null)", s)
	}
}

// New opens an encoder of the given kind for one thread's stream under
// outputDir.
func New(kind Kind, tid primitive.TID, outputDir string) (Encoder, error) {
	switch kind {
	case KindText:
		return NewText(tid, outputDir)
	case KindCapnp:
		return NewCapnp(tid, outputDir)
	case KindNull:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown encoder kind %d", int(kind))
	}
}
