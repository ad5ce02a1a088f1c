package encoder

import (
	"fmt"
	"os"
	"path/filepath"

	capnp "capnproto.org/go/capnp/v3"
	"github.com/klauspost/compress/gzip"

	"github.com/kolkov/stgen/internal/stgen/addrset"
	"github.com/kolkov/stgen/internal/stgen/encoder/stcapnp"
	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/stevent"
)

// eventsPerMessage bounds how many events share one EventStream root. Each
// root is one packed Cap'n Proto message; batching amortizes the per-message
// framing without letting a single message grow unboundedly.
const eventsPerMessage = 1000

// pendingEvent buffers one record between aggregator flush and message
// build. The aggregators reset right after flushing, so range data is copied
// out here.
type pendingEvent struct {
	which stcapnp.Event_Which

	// comp
	iops, flops, reads, writes uint64
	writeRanges, readRanges    []addrset.Range

	// comm
	edges []pendingEdge

	// sync
	syncType byte
	syncAddr primitive.Addr

	// marker
	count uint64
}

type pendingEdge struct {
	producer    primitive.TID
	producerEID primitive.EID
	ranges      []addrset.Range
}

// Capnp writes packed Cap'n Proto messages, gzip-compressed, to
// sigil.events.out-<tid>.capn.bin.gz.
type Capnp struct {
	f       *os.File
	gz      *gzip.Writer
	enc     *capnp.Encoder
	pending []pendingEvent
}

// NewCapnp opens the packed-binary trace file for one thread.
func NewCapnp(tid primitive.TID, outputDir string) (*Capnp, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("%s%d.capn.bin.gz", filebase, tid))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	gz := gzip.NewWriter(f)
	return &Capnp{f: f, gz: gz, enc: capnp.NewPackedEncoder(gz)}, nil
}

// EmitComp implements Encoder.
func (c *Capnp) EmitComp(_ primitive.EID, _ primitive.TID, ev *stevent.CompEvent) error {
	c.pending = append(c.pending, pendingEvent{
		which:       stcapnp.Event_Which_comp,
		iops:        ev.IOPs,
		flops:       ev.FLOPs,
		reads:       ev.Reads,
		writes:      ev.Writes,
		writeRanges: append([]addrset.Range(nil), ev.WriteRanges.Ranges()...),
		readRanges:  append([]addrset.Range(nil), ev.ReadRanges.Ranges()...),
	})
	return c.flushIfFull()
}

// EmitComm implements Encoder.
func (c *Capnp) EmitComm(_ primitive.EID, _ primitive.TID, ev *stevent.CommEvent) error {
	edges := make([]pendingEdge, len(ev.Edges))
	for i, e := range ev.Edges {
		edges[i] = pendingEdge{
			producer:    e.Producer,
			producerEID: e.ProducerEID,
			ranges:      append([]addrset.Range(nil), e.Addrs.Ranges()...),
		}
	}
	c.pending = append(c.pending, pendingEvent{
		which: stcapnp.Event_Which_comm,
		edges: edges,
	})
	return c.flushIfFull()
}

// EmitSync implements Encoder.
func (c *Capnp) EmitSync(_ primitive.EID, _ primitive.TID, kind byte, syncAddr primitive.Addr) error {
	c.pending = append(c.pending, pendingEvent{
		which:    stcapnp.Event_Which_sync,
		syncType: kind,
		syncAddr: syncAddr,
	})
	return c.flushIfFull()
}

// EmitInstrMarker implements Encoder.
func (c *Capnp) EmitInstrMarker(count uint64) error {
	c.pending = append(c.pending, pendingEvent{
		which: stcapnp.Event_Which_marker,
		count: count,
	})
	return c.flushIfFull()
}

func (c *Capnp) flushIfFull() error {
	if len(c.pending) < eventsPerMessage {
		return nil
	}
	return c.flushPending()
}

// flushPending builds one EventStream message from the buffered records and
// writes it packed.
func (c *Capnp) flushPending() error {
	if len(c.pending) == 0 {
		return nil
	}

	msg, seg, err := capnp.NewMessage(capnp.SingleSegment(nil))
	if err != nil {
		return fmt.Errorf("allocating trace message: %w", err)
	}
	stream, err := stcapnp.NewRootEventStream(seg)
	if err != nil {
		return fmt.Errorf("allocating event stream root: %w", err)
	}
	list, err := stream.NewEvents(int32(len(c.pending)))
	if err != nil {
		return fmt.Errorf("allocating event list: %w", err)
	}

	for i, pe := range c.pending {
		ev := list.At(i)
		if err := buildEvent(ev, &pe); err != nil {
			return err
		}
	}

	c.pending = c.pending[:0]
	if err := c.enc.Encode(msg); err != nil {
		return fmt.Errorf("writing packed trace message: %w", err)
	}
	return nil
}

func buildEvent(ev stcapnp.Event, pe *pendingEvent) error {
	switch pe.which {
	case stcapnp.Event_Which_comp:
		comp := ev.InitComp()
		comp.SetIops(uint32(pe.iops))
		comp.SetFlops(uint32(pe.flops))
		comp.SetReads(uint32(pe.reads))
		comp.SetWrites(uint32(pe.writes))
		if err := setRanges(comp.NewWriteAddrs, pe.writeRanges); err != nil {
			return err
		}
		if err := setRanges(comp.NewReadAddrs, pe.readRanges); err != nil {
			return err
		}

	case stcapnp.Event_Which_comm:
		edges, err := ev.InitComm().NewEdges(int32(len(pe.edges)))
		if err != nil {
			return fmt.Errorf("allocating edge list: %w", err)
		}
		for i, edge := range pe.edges {
			ce := edges.At(i)
			ce.SetProducerThread(uint16(edge.producer))
			ce.SetProducerEvent(uint64(edge.producerEID))
			if err := setRanges(ce.NewAddrs, edge.ranges); err != nil {
				return err
			}
		}

	case stcapnp.Event_Which_sync:
		sync := ev.InitSync()
		// Canonical SynchroTrace codes are 1-based; the schema enum is 0-based.
		sync.SetType(stcapnp.SyncType(pe.syncType - 1))
		sync.SetId(uint64(pe.syncAddr))

	case stcapnp.Event_Which_marker:
		ev.InitMarker().SetCount(pe.count)
	}
	return nil
}

func setRanges(alloc func(int32) (stcapnp.AddrRange_List, error), ranges []addrset.Range) error {
	list, err := alloc(int32(len(ranges)))
	if err != nil {
		return fmt.Errorf("allocating range list: %w", err)
	}
	for i, r := range ranges {
		ar := list.At(i)
		ar.SetStart(uint64(r.First))
		ar.SetEnd(uint64(r.Last))
	}
	return nil
}

// Close flushes any partial batch and closes the stream.
func (c *Capnp) Close() error {
	if err := c.flushPending(); err != nil {
		c.gz.Close()
		c.f.Close()
		return err
	}
	if err := c.gz.Close(); err != nil {
		c.f.Close()
		return fmt.Errorf("closing trace stream: %w", err)
	}
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("closing trace file: %w", err)
	}
	return nil
}
