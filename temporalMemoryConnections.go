package htm

import (
	"math"
)

//A distal synapse from SourceCell onto Segment
type Synapse struct {
	Segment    int
	SourceCell int
	Permanence float64
	Ordinal    int
	Alive      bool
}

/*
 A cell owns its distal segments and keeps the receptor synapses that use
it as presynaptic source, so that an active cell finds every segment it
depolarizes without scanning the arena.
*/
type Cell struct {
	Index     int
	Column    int
	Segments  []int
	Receptors []int
}

func (c *Connections) validCell(cell int) error {
	if cell < 0 || cell >= len(c.cells) {
		return indexError("cell", cell, len(c.cells))
	}
	return nil
}

func (c *Connections) validSegment(segment int) error {
	if segment < 0 || segment >= len(c.segments) {
		return indexError("segment", segment, len(c.segments))
	}
	if !c.segments[segment].Alive {
		return notFoundError("segment", segment)
	}
	return nil
}

func (c *Connections) validSynapse(synapse int) error {
	if synapse < 0 || synapse >= len(c.synapses) {
		return indexError("synapse", synapse, len(c.synapses))
	}
	if !c.synapses[synapse].Alive {
		return notFoundError("synapse", synapse)
	}
	return nil
}

/*
 Creates a segment on cell and returns its flat index. When the cell
already holds MaxSegmentsPerCell segments the least recently used one is
destroyed first.
*/
func (c *Connections) CreateDistalSegment(cell int) (int, error) {
	if err := c.validCell(cell); err != nil {
		return -1, err
	}
	for len(c.cells[cell].Segments) >= c.cfg.MaxSegmentsPerCell {
		if err := c.DestroySegment(c.leastRecentlyUsedSegment(cell)); err != nil {
			return -1, err
		}
	}

	var idx int
	if n := len(c.freeSegments); n > 0 {
		idx = c.freeSegments[n-1]
		c.freeSegments = c.freeSegments[:n-1]
	} else {
		idx = len(c.segments)
		c.segments = append(c.segments, Segment{})
		c.numActiveConnected = append(c.numActiveConnected, 0)
		c.numActivePotential = append(c.numActivePotential, 0)
	}

	c.segments[idx] = Segment{
		Cell:              cell,
		Ordinal:           c.nextSegmentOrdinal,
		LastUsedIteration: c.tmIteration,
		Alive:             true,
	}
	c.nextSegmentOrdinal++
	c.numActiveConnected[idx] = 0
	c.numActivePotential[idx] = 0
	c.cells[cell].Segments = append(c.cells[cell].Segments, idx)
	c.numSegments++
	return idx, nil
}

//Destroys a segment with all of its synapses
func (c *Connections) DestroySegment(segment int) error {
	if err := c.validSegment(segment); err != nil {
		return err
	}
	seg := &c.segments[segment]
	for _, syn := range seg.Synapses {
		c.releaseSynapse(syn)
	}
	seg.Synapses = nil
	seg.Alive = false

	cell := &c.cells[seg.Cell]
	cell.Segments = removeInt(cell.Segments, segment)
	c.freeSegments = append(c.freeSegments, segment)
	c.numSegments--
	return nil
}

/*
 Creates a synapse from presynaptic cell onto segment. When the segment is
full its weakest synapse is destroyed first.
*/
func (c *Connections) CreateSynapse(segment, presynapticCell int, permanence float64) (int, error) {
	if err := c.validSegment(segment); err != nil {
		return -1, err
	}
	if err := c.validCell(presynapticCell); err != nil {
		return -1, err
	}
	for len(c.segments[segment].Synapses) >= c.cfg.MaxSynapsesPerSegment {
		weakest := c.minPermanenceSynapse(segment)
		seg := &c.segments[segment]
		seg.Synapses = removeInt(seg.Synapses, weakest)
		c.releaseSynapse(weakest)
	}

	var idx int
	if n := len(c.freeSynapses); n > 0 {
		idx = c.freeSynapses[n-1]
		c.freeSynapses = c.freeSynapses[:n-1]
	} else {
		idx = len(c.synapses)
		c.synapses = append(c.synapses, Synapse{})
	}

	c.synapses[idx] = Synapse{
		Segment:    segment,
		SourceCell: presynapticCell,
		Permanence: clampPermanence(permanence),
		Ordinal:    c.nextSynapseOrdinal,
		Alive:      true,
	}
	c.nextSynapseOrdinal++
	seg := &c.segments[segment]
	seg.Synapses = append(seg.Synapses, idx)
	src := &c.cells[presynapticCell]
	src.Receptors = append(src.Receptors, idx)
	c.numSynapses++
	return idx, nil
}

/*
 Destroys a synapse. A segment left without synapses is destroyed as
well.
*/
func (c *Connections) DestroySynapse(synapse int) error {
	if err := c.validSynapse(synapse); err != nil {
		return err
	}
	segment := c.synapses[synapse].Segment
	seg := &c.segments[segment]
	seg.Synapses = removeInt(seg.Synapses, synapse)
	c.releaseSynapse(synapse)
	if len(seg.Synapses) == 0 {
		return c.DestroySegment(segment)
	}
	return nil
}

//Drops the receptor back reference and frees the slot
func (c *Connections) releaseSynapse(synapse int) {
	syn := &c.synapses[synapse]
	src := &c.cells[syn.SourceCell]
	src.Receptors = removeInt(src.Receptors, synapse)
	syn.Alive = false
	c.freeSynapses = append(c.freeSynapses, synapse)
	c.numSynapses--
}

func (c *Connections) UpdateSynapsePermanence(synapse int, permanence float64) error {
	if err := c.validSynapse(synapse); err != nil {
		return err
	}
	c.synapses[synapse].Permanence = clampPermanence(permanence)
	return nil
}

func clampPermanence(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

//Returns a copy of the synapse
func (c *Connections) SynapseData(synapse int) (Synapse, error) {
	if err := c.validSynapse(synapse); err != nil {
		return Synapse{}, err
	}
	return c.synapses[synapse], nil
}

//Returns a copy of the segment
func (c *Connections) SegmentData(segment int) (Segment, error) {
	if err := c.validSegment(segment); err != nil {
		return Segment{}, err
	}
	s := c.segments[segment]
	s.Synapses = append([]int(nil), s.Synapses...)
	return s, nil
}

func (c *Connections) SegmentsForCell(cell int) ([]int, error) {
	if err := c.validCell(cell); err != nil {
		return nil, err
	}
	return append([]int(nil), c.cells[cell].Segments...), nil
}

func (c *Connections) SynapsesForSegment(segment int) ([]int, error) {
	if err := c.validSegment(segment); err != nil {
		return nil, err
	}
	return append([]int(nil), c.segments[segment].Synapses...), nil
}

//Synapses using cell as presynaptic source
func (c *Connections) ReceptorSynapses(cell int) ([]int, error) {
	if err := c.validCell(cell); err != nil {
		return nil, err
	}
	return append([]int(nil), c.cells[cell].Receptors...), nil
}

//Live segments
func (c *Connections) NumSegments() int {
	return c.numSegments
}

//Live distal synapses
func (c *Connections) NumSynapses() int {
	return c.numSynapses
}

/*
 Counts, for every segment, synapses from activeCells (potential) and
those among them at or above connectedPermanence (connected). Both slices
are indexed by segment.
*/
func (c *Connections) ComputeActivity(activeCells []int, connectedPermanence float64) (connected, potential []int) {
	connected = make([]int, len(c.segments))
	potential = make([]int, len(c.segments))
	threshold := connectedPermanence - EPSILON

	for _, cell := range activeCells {
		for _, syn := range c.cells[cell].Receptors {
			s := &c.synapses[syn]
			potential[s.Segment]++
			if s.Permanence > threshold {
				connected[s.Segment]++
			}
		}
	}
	return
}
