package encoder

import (
	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/stevent"
)

// Null discards every record. Running the full pipeline against it isolates
// frontend and aggregation cost from sink cost.
type Null struct{}

// NewNull returns a sink that discards everything.
func NewNull() *Null {
	return &Null{}
}

// EmitComp implements Encoder.
func (*Null) EmitComp(primitive.EID, primitive.TID, *stevent.CompEvent) error { return nil }

// EmitComm implements Encoder.
func (*Null) EmitComm(primitive.EID, primitive.TID, *stevent.CommEvent) error { return nil }

// EmitSync implements Encoder.
func (*Null) EmitSync(primitive.EID, primitive.TID, byte, primitive.Addr) error { return nil }

// EmitInstrMarker implements Encoder.
func (*Null) EmitInstrMarker(uint64) error { return nil }

// Close implements Encoder.
func (*Null) Close() error { return nil }
