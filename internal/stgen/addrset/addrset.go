// Package addrset implements an insertion-coalescing set of closed byte
// address ranges.
//
// The set maintains two invariants at all times:
//   - every stored range (first, last) satisfies first <= last, and
//   - no two stored ranges overlap or are adjacent: if (a, b) and (c, d) are
//     both stored with b < c, then b+1 < c. Touching ranges are fused into one.
//
// Because fusion happens eagerly on insertion, the stored ranges are a unique
// canonical representation of the covered point-set: any sequence of inserts
// covering the same bytes yields the same set, regardless of order.
//
// The set backs the unique-read/unique-write address tracking of compute
// events and the per-edge address tracking of communication events. Those sets
// are small (they are reset on every event flush), so a sorted slice with
// binary search beats tree structures on both memory and cache behavior.
package addrset

import (
	"slices"
	"sort"

	"github.com/kolkov/stgen/internal/stgen/primitive"
)

// Range is a closed interval [First, Last] of byte addresses.
type Range struct {
	First primitive.Addr
	Last  primitive.Addr
}

// Set is an ordered collection of disjoint, non-adjacent closed ranges.
// Ranges are ordered by (First, Last) ascending.
//
// The zero value is an empty set ready for use.
type Set struct {
	ranges []Range
}

// New returns an empty set.
func New() *Set {
	return &Set{}
}

// Len returns the number of stored (fused) ranges.
func (s *Set) Len() int {
	return len(s.ranges)
}

// Empty reports whether the set covers no bytes.
func (s *Set) Empty() bool {
	return len(s.ranges) == 0
}

// Ranges returns the stored ranges in ascending order. The returned slice
// aliases the set's storage and is invalidated by the next Insert or Clear.
func (s *Set) Ranges() []Range {
	return s.ranges
}

// Clear empties the set. Storage is retained for reuse because event
// aggregators clear their sets on every flush.
func (s *Set) Clear() {
	s.ranges = s.ranges[:0]
}

// InsertAddr absorbs the single byte at addr.
func (s *Set) InsertAddr(addr primitive.Addr) {
	s.Insert(Range{First: addr, Last: addr})
}

// Insert absorbs r into the set, fusing it with any stored ranges it overlaps
// or touches. Inserting a range already covered by the set is a no-op.
//
// The probe mirrors ordered-set insertion: locate the first stored range whose
// ordering key is not less than r, back off by one to consider a potentially
// preceding candidate, then classify the relationship between r and the
// candidate. Every merge removes the candidate, widens r, and re-inserts, so
// a single insert can cascade across several stored neighbors (for example
// when r bridges the gap between two existing ranges).
func (s *Set) Insert(r Range) {
	if r.First > r.Last {
		panic("addrset: inverted range")
	}

	if len(s.ranges) == 0 {
		s.ranges = append(s.ranges, r)
		return
	}

	// First stored range not less than r by (First, Last) ordering.
	i := sort.Search(len(s.ranges), func(j int) bool {
		c := s.ranges[j]
		return c.First > r.First || (c.First == r.First && c.Last >= r.Last)
	})

	if i > 0 {
		if i == len(s.ranges) {
			// No stored range starts at a higher address; examine the last one.
			i = len(s.ranges) - 1
		} else {
			// Examine the preceding range unless r starts strictly past its
			// upper edge with a gap in between.
			i--
			if gapAbove(s.ranges[i], r) {
				i++
			}
		}
	}

	c := s.ranges[i]

	switch {
	case touchesUpperEdge(c, r):
		// r starts exactly one past c's last byte: extend c by r and recheck,
		// the widened range may now reach further stored neighbors.
		s.removeAt(i)
		s.Insert(Range{First: c.First, Last: r.Last})

	case touchesUpperEdge(r, c):
		// c starts exactly one past r's last byte: extend downward and recheck.
		s.removeAt(i)
		s.Insert(Range{First: r.First, Last: c.Last})

	case r.First > c.Last:
		// Disjoint above the candidate: plain sorted insert.
		s.insertSorted(r)

	case r.First >= c.First:
		if r.Last > c.Last {
			// Overlap extending c's upper end: merge and recheck.
			s.removeAt(i)
			s.Insert(Range{First: c.First, Last: r.Last})
		}
		// Otherwise c fully contains r: nothing to do.

	default: // r.First < c.First
		switch {
		case r.Last < c.First:
			// Disjoint below the candidate.
			s.insertSorted(r)
		case r.Last <= c.Last:
			// Overlap extending c's lower end: merge, no recheck needed
			// because nothing below can touch (the probe already chose the
			// closest lower neighbor).
			last := c.Last
			s.removeAt(i)
			s.insertSorted(Range{First: r.First, Last: last})
		default:
			// r encompasses c entirely: drop c and recheck with r unchanged.
			s.removeAt(i)
			s.Insert(r)
		}
	}
}

// gapAbove reports whether r starts strictly above c's upper edge with at
// least one uncovered byte between them.
func gapAbove(c, r Range) bool {
	return r.First > c.Last && r.First-c.Last > 1
}

// touchesUpperEdge reports whether hi starts exactly one byte past lo's last
// byte. Written without lo.Last+1 so that a range ending at the maximum
// address cannot wrap.
func touchesUpperEdge(lo, hi Range) bool {
	return hi.First > lo.Last && hi.First-lo.Last == 1
}

func (s *Set) removeAt(i int) {
	s.ranges = slices.Delete(s.ranges, i, i+1)
}

// insertSorted inserts r at its ordering position. Callers must have
// established that r neither overlaps nor touches any stored range.
func (s *Set) insertSorted(r Range) {
	i := sort.Search(len(s.ranges), func(j int) bool {
		c := s.ranges[j]
		return c.First > r.First || (c.First == r.First && c.Last >= r.Last)
	})
	s.ranges = slices.Insert(s.ranges, i, r)
}
