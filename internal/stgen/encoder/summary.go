package encoder

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kolkov/stgen/internal/stgen/primitive"
)

// ThreadSpawn records that Spawner created a thread whose handle lives at
// ChildAddr.
type ThreadSpawn struct {
	Spawner   primitive.TID
	ChildAddr primitive.Addr
}

// BarrierParticipants records the set of threads observed waiting on the
// barrier at Addr. Entries keep first-wait order across barriers; the
// participant list is sorted for the summary.
type BarrierParticipants struct {
	Addr         primitive.Addr
	Participants []primitive.TID
}

// WritePthread writes the sigil.pthread.out summary: each observed thread's
// TID in first-seen order, each (spawner, child-address) pair in spawn order,
// and each barrier with its sorted participants in first-wait order.
//
// Line markers: "##" thread, "^^" spawn, "**" barrier. Addresses are
// lowercase hex without prefix.
func WritePthread(path string, threadsInOrder []primitive.TID, spawns []ThreadSpawn, barriers []BarrierParticipants) error {
	var b strings.Builder

	for _, tid := range threadsInOrder {
		fmt.Fprintf(&b, "##%d\n", tid)
	}
	for _, sp := range spawns {
		fmt.Fprintf(&b, "^^%d,%x\n", sp.Spawner, sp.ChildAddr)
	}
	for _, bp := range barriers {
		participants := append([]primitive.TID(nil), bp.Participants...)
		sort.Slice(participants, func(i, j int) bool { return participants[i] < participants[j] })

		fmt.Fprintf(&b, "**%x", bp.Addr)
		for _, tid := range participants {
			fmt.Fprintf(&b, ",%d", tid)
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing pthread summary: %w", err)
	}
	return nil
}
