package encoder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/stevent"
)

// filebase is the per-thread trace filename prefix. The downstream replay
// simulator globs for it; do not change.
const filebase = "sigil.events.out-"

// Text writes the line-oriented SynchroTrace format, one record per line,
// gzip-compressed:
//
//	Computation:   eid,tid,iops,flops,reads,writes[ $ lo hi]*[ * lo hi]*
//	Communication: eid,tid[ # producerTid producerEid lo hi]+
//	Synchronization: eid,tid,pth_ty:<kind>^<addr>
//	Marker:        ! <count>
//
// Addresses are lowercase hex without prefix. `$` introduces a write range,
// `*` a read range, `#` a communication edge range, `!` an instruction
// marker.
type Text struct {
	f   *os.File
	gz  *gzip.Writer
	buf bytes.Buffer
}

// NewText opens outputDir/sigil.events.out-<tid>.gz for writing.
func NewText(tid primitive.TID, outputDir string) (*Text, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("%s%d.gz", filebase, tid))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	return &Text{f: f, gz: gzip.NewWriter(f)}, nil
}

// EmitComp implements Encoder.
func (t *Text) EmitComp(eid primitive.EID, tid primitive.TID, ev *stevent.CompEvent) error {
	t.buf.Reset()
	fmt.Fprintf(&t.buf, "%d,%d,%d,%d,%d,%d", eid, tid, ev.IOPs, ev.FLOPs, ev.Reads, ev.Writes)
	for _, r := range ev.WriteRanges.Ranges() {
		fmt.Fprintf(&t.buf, " $ %x %x", r.First, r.Last)
	}
	for _, r := range ev.ReadRanges.Ranges() {
		fmt.Fprintf(&t.buf, " * %x %x", r.First, r.Last)
	}
	t.buf.WriteByte('\n')
	return t.write()
}

// EmitComm implements Encoder.
func (t *Text) EmitComm(eid primitive.EID, tid primitive.TID, ev *stevent.CommEvent) error {
	t.buf.Reset()
	fmt.Fprintf(&t.buf, "%d,%d", eid, tid)
	for _, edge := range ev.Edges {
		for _, r := range edge.Addrs.Ranges() {
			fmt.Fprintf(&t.buf, " # %d %d %x %x", edge.Producer, edge.ProducerEID, r.First, r.Last)
		}
	}
	t.buf.WriteByte('\n')
	return t.write()
}

// EmitSync implements Encoder.
func (t *Text) EmitSync(eid primitive.EID, tid primitive.TID, kind byte, syncAddr primitive.Addr) error {
	t.buf.Reset()
	fmt.Fprintf(&t.buf, "%d,%d,pth_ty:%d^%x\n", eid, tid, kind, syncAddr)
	return t.write()
}

// EmitInstrMarker implements Encoder.
func (t *Text) EmitInstrMarker(count uint64) error {
	t.buf.Reset()
	fmt.Fprintf(&t.buf, "! %x \n", count)
	return t.write()
}

func (t *Text) write() error {
	if _, err := t.gz.Write(t.buf.Bytes()); err != nil {
		return fmt.Errorf("writing trace record: %w", err)
	}
	return nil
}

// Close implements Encoder.
func (t *Text) Close() error {
	if err := t.gz.Close(); err != nil {
		t.f.Close()
		return fmt.Errorf("closing trace stream: %w", err)
	}
	if err := t.f.Close(); err != nil {
		return fmt.Errorf("closing trace file: %w", err)
	}
	return nil
}
