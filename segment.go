package htm

import (
	"sort"
)

/*
 A distal dendrite segment. Synapses holds arena indices in creation
order. Destroyed segments stay in the arena with Alive unset until their
slot is reused.
*/
type Segment struct {
	Cell              int
	Ordinal           int
	LastUsedIteration int
	Synapses          []int
	Alive             bool
}

//Sorts segment indices by owning cell, then creation ordinal
func (c *Connections) sortSegments(segments []int) {
	sort.Slice(segments, func(i, j int) bool {
		a, b := &c.segments[segments[i]], &c.segments[segments[j]]
		if a.Cell != b.Cell {
			return a.Cell < b.Cell
		}
		return a.Ordinal < b.Ordinal
	})
}

//Column owning the segment
func (c *Connections) columnForSegment(segment int) int {
	return c.cells[c.segments[segment].Cell].Column
}

/*
 Returns the segment of cell used least recently, ties go to the lower
ordinal.
*/
func (c *Connections) leastRecentlyUsedSegment(cell int) int {
	best := -1
	for _, seg := range c.cells[cell].Segments {
		if best == -1 {
			best = seg
			continue
		}
		s, b := &c.segments[seg], &c.segments[best]
		if s.LastUsedIteration < b.LastUsedIteration ||
			(s.LastUsedIteration == b.LastUsedIteration && s.Ordinal < b.Ordinal) {
			best = seg
		}
	}
	return best
}

/*
 Returns the synapse with the lowest permanence on a segment, ties go to
the earliest created.
*/
func (c *Connections) minPermanenceSynapse(segment int) int {
	best := -1
	minPerm := 0.0
	for _, syn := range c.segments[segment].Synapses {
		if best == -1 || c.synapses[syn].Permanence < minPerm-EPSILON {
			best = syn
			minPerm = c.synapses[syn].Permanence
		}
	}
	return best
}

//Removes the first occurrence of v, keeping order
func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			copy(s[i:], s[i+1:])
			return s[:len(s)-1]
		}
	}
	return s
}
