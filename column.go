package htm

import (
	"math"
)

/*
 A column owns CellsPerColumn cells (global index column*CellsPerColumn+i)
and one proximal dendrite. Duty cycles and boost factors are kept by
Connections in column index order.
*/
type Column struct {
	Index    int
	Proximal ProximalDendrite
}

/*
 Receptive field of a column. InputIndices is sorted and Permanences runs
parallel to it, one proximal synapse per potential input bit.
*/
type ProximalDendrite struct {
	InputIndices []int
	Permanences  []float64
	NumConnected int
}

func NewColumn(index int) *Column {
	return &Column{Index: index}
}

//Number of synapses in the potential pool
func (pd *ProximalDendrite) Size() int {
	return len(pd.InputIndices)
}

//Recounts synapses at or above the connected threshold
func (pd *ProximalDendrite) updateConnected(threshold float64) {
	n := 0
	for _, p := range pd.Permanences {
		if p >= threshold {
			n++
		}
	}
	pd.NumConnected = n
}

//Returns input indices of connected synapses
func (pd *ProximalDendrite) ConnectedInputs(threshold float64) []int {
	result := make([]int, 0, pd.NumConnected)
	for i, p := range pd.Permanences {
		if p >= threshold {
			result = append(result, pd.InputIndices[i])
		}
	}
	return result
}

//Number of connected synapses whose input bit is on
func (pd *ProximalDendrite) Overlap(input []int, threshold float64) int {
	overlap := 0
	for i, idx := range pd.InputIndices {
		if pd.Permanences[i] >= threshold && input[idx] != 0 {
			overlap++
		}
	}
	return overlap
}

/*
 Sets the pool and its permanences, then applies the same clean up
used after every learning step: raise to stimulus threshold, trim weak
values to zero and clip to [min,max].
*/
func (pd *ProximalDendrite) setPermanences(cfg *HtmConfig, inputs []int, perms []float64) error {
	pd.InputIndices = inputs
	pd.Permanences = perms
	return pd.normalize(cfg, true)
}

func (pd *ProximalDendrite) normalize(cfg *HtmConfig, raise bool) error {
	if raise {
		if err := pd.raisePermanenceToThreshold(cfg); err != nil {
			return err
		}
	}
	for i, p := range pd.Permanences {
		if p < cfg.SynPermTrimThreshold {
			p = 0
		}
		pd.Permanences[i] = math.Max(cfg.SynPermMin, math.Min(cfg.SynPermMax, p))
	}
	pd.updateConnected(cfg.SynPermConnected)
	return nil
}

/*
 Adds SynPermBelowStimulusInc to every synapse in the pool until at least
StimulusThreshold synapses are connected.
*/
func (pd *ProximalDendrite) raisePermanenceToThreshold(cfg *HtmConfig) error {
	threshold := int(math.Ceil(cfg.StimulusThreshold))
	if len(pd.InputIndices) < threshold {
		return configError("StimulusThreshold", "%v exceeds potential pool size %d", cfg.StimulusThreshold, len(pd.InputIndices))
	}

	for i, p := range pd.Permanences {
		pd.Permanences[i] = math.Max(cfg.SynPermMin, math.Min(cfg.SynPermMax, p))
	}
	for {
		pd.updateConnected(cfg.SynPermConnected)
		if pd.NumConnected >= threshold {
			return nil
		}
		for i := range pd.Permanences {
			pd.Permanences[i] = math.Min(cfg.SynPermMax, pd.Permanences[i]+cfg.SynPermBelowStimulusInc)
		}
	}
}

func (c *Column) clone() *Column {
	cp := &Column{Index: c.Index}
	cp.Proximal.InputIndices = append([]int(nil), c.Proximal.InputIndices...)
	cp.Proximal.Permanences = append([]float64(nil), c.Proximal.Permanences...)
	cp.Proximal.NumConnected = c.Proximal.NumConnected
	return cp
}
