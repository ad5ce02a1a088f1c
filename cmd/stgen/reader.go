// reader.go parses the line-oriented primitive stream.
//
// Grammar, one primitive per line; blank lines and lines starting with '#'
// are skipped:
//
//	@ <tid>             thread swap (decimal TID)
//	l <addr> <size>     load (hex address, decimal size)
//	s <addr> <size>     store
//	i                   integer op
//	f                   floating-point op
//	x <addr>            instruction boundary (hex address)
//	p <kind> <addr>     sync primitive; kind is the frontend name
//	                    (lock, unlock, create, join, barrier, condwait,
//	                    condsignal, condbroadcast, spinlock, spinunlock)
package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kolkov/stgen/internal/stgen/primitive"
	"github.com/kolkov/stgen/internal/stgen/tracegen"
)

// streamEvent is one parsed primitive; exactly one arm is meaningful,
// selected by kind.
type streamEvent struct {
	kind byte // 'm' mem, 'c' comp, 'y' sync, 'x' cxt

	mem  primitive.MemEv
	comp primitive.CompEv
	sync primitive.SyncEv
	cxt  primitive.CxtEv
}

// parseLine parses one stream line. It returns (nil, nil) for blank and
// comment lines.
func parseLine(line string) (*streamEvent, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Fields(line)
	op, args := fields[0], fields[1:]

	switch op {
	case "@":
		if len(args) != 1 {
			return nil, fmt.Errorf("swap takes one argument: %q", line)
		}
		tid, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad thread id %q: %w", args[0], err)
		}
		return &streamEvent{kind: 'y', sync: primitive.SyncEv{
			Type: primitive.SyncSwap,
			ID:   primitive.Addr(tid),
		}}, nil

	case "l", "s":
		if len(args) != 2 {
			return nil, fmt.Errorf("memory access takes two arguments: %q", line)
		}
		addr, err := strconv.ParseUint(args[0], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad address %q: %w", args[0], err)
		}
		size, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad size %q: %w", args[1], err)
		}
		ty := primitive.MemLoad
		if op == "s" {
			ty = primitive.MemStore
		}
		return &streamEvent{kind: 'm', mem: primitive.MemEv{
			Type: ty,
			Addr: primitive.Addr(addr),
			Size: size,
		}}, nil

	case "i":
		return &streamEvent{kind: 'c', comp: primitive.CompEv{Type: primitive.CompIOP}}, nil

	case "f":
		return &streamEvent{kind: 'c', comp: primitive.CompEv{Type: primitive.CompFLOP}}, nil

	case "x":
		if len(args) != 1 {
			return nil, fmt.Errorf("instruction takes one argument: %q", line)
		}
		addr, err := strconv.ParseUint(args[0], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad address %q: %w", args[0], err)
		}
		return &streamEvent{kind: 'x', cxt: primitive.CxtEv{
			Type: primitive.CxtInstr,
			Addr: primitive.Addr(addr),
		}}, nil

	case "p":
		if len(args) != 2 {
			return nil, fmt.Errorf("sync takes two arguments: %q", line)
		}
		ty, err := primitive.ParseSyncType(args[0])
		if err != nil {
			return nil, err
		}
		if ty == primitive.SyncSwap {
			return nil, fmt.Errorf("swap is spelled %q, not a sync primitive: %q", "@ <tid>", line)
		}
		addr, err := strconv.ParseUint(args[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad sync address %q: %w", args[1], err)
		}
		return &streamEvent{kind: 'y', sync: primitive.SyncEv{
			Type: ty,
			ID:   primitive.Addr(addr),
		}}, nil

	default:
		return nil, fmt.Errorf("unknown primitive %q", line)
	}
}

// replay parses the stream and dispatches every primitive in order,
// returning the number dispatched.
func replay(r io.Reader, d *tracegen.Dispatcher) (uint64, error) {
	var count uint64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		ev, err := parseLine(sc.Text())
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ev == nil {
			continue
		}

		switch ev.kind {
		case 'm':
			d.OnMem(ev.mem)
		case 'c':
			d.OnComp(ev.comp)
		case 'y':
			d.OnSync(ev.sync)
		case 'x':
			d.OnCxt(ev.cxt)
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return count, err
	}
	return count, nil
}
