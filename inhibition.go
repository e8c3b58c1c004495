package htm

import (
	"math"
	"sort"

	"github.com/cznic/mathutil"
)

// Upper bound of the local inhibition density.
const MaxInhibitionDensity = 0.5

/*
 Default inhibition strategy. Global inhibition runs when configured or
when the inhibition radius covers the whole column space, local
inhibition otherwise.
*/
func (sp *SpatialPooler) InhibitColumns(overlaps []int, boostedOverlaps []float64) ([]int, error) {
	if sp.useGlobalInhibition() {
		return sp.InhibitColumnsGlobal(overlaps, boostedOverlaps), nil
	}
	return sp.InhibitColumnsLocal(overlaps, boostedOverlaps, sp.InhibitionDensity())
}

func (sp *SpatialPooler) useGlobalInhibition() bool {
	cfg := sp.conn.cfg
	return cfg.GlobalInhibition || sp.conn.inhibitionRadius > maxInt(cfg.ColumnDimensions)
}

/*
 Target fraction of active columns within an inhibition area. Either
LocalAreaDensity, or NumActiveColumnsPerInhArea over the area covered by
the current radius, capped at MaxInhibitionDensity.
*/
func (sp *SpatialPooler) InhibitionDensity() float64 {
	cfg := sp.conn.cfg
	if cfg.LocalAreaDensity > 0 {
		return cfg.LocalAreaDensity
	}
	diameter := float64(2*sp.conn.inhibitionRadius + 1)
	area := math.Pow(diameter, float64(len(cfg.ColumnDimensions)))
	area = math.Min(area, float64(sp.conn.NumColumns()))
	return math.Min(cfg.NumActiveColumnsPerInhArea/area, MaxInhibitionDensity)
}

//Number of winners global inhibition selects
func (sp *SpatialPooler) numActiveColumnsGlobal() int {
	cfg := sp.conn.cfg
	n := sp.conn.NumColumns()
	var numActive int
	if cfg.LocalAreaDensity > 0 {
		numActive = int(cfg.LocalAreaDensity*float64(n) + 0.5)
	} else {
		numActive = int(math.Round(cfg.NumActiveColumnsPerInhArea))
	}
	return mathutil.Min(numActive, n)
}

/*
 Picks the columns with the highest boosted overlap over the whole
population. Ties go to the lower column index. Columns below the stimulus
threshold never win.
*/
func (sp *SpatialPooler) InhibitColumnsGlobal(overlaps []int, boostedOverlaps []float64) []int {
	stimulus := sp.conn.cfg.StimulusThreshold
	candidates := make([]int, 0, len(overlaps))
	for i, o := range overlaps {
		if float64(o) >= stimulus {
			candidates = append(candidates, i)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return boostedOverlaps[candidates[i]] > boostedOverlaps[candidates[j]]
	})

	numActive := mathutil.Min(sp.numActiveColumnsGlobal(), len(candidates))
	winners := append([]int(nil), candidates[:numActive]...)
	sort.Ints(winners)
	return winners
}

/*
 A column wins when fewer than density * neighborhood size columns in
its neighborhood beat it. A neighbor beats a column with a strictly
higher boosted overlap, or an equal one at a lower index. The scan is
split by column range across the worker pool.
*/
func (sp *SpatialPooler) InhibitColumnsLocal(overlaps []int, boostedOverlaps []float64, density float64) ([]int, error) {
	stimulus := sp.conn.cfg.StimulusThreshold
	nbhds, err := sp.neighborhoods()
	if err != nil {
		return nil, err
	}
	won := make([]bool, len(overlaps))

	err = sp.pool.run(len(overlaps), func(start, end int) error {
		for c := start; c < end; c++ {
			if float64(overlaps[c]) < stimulus {
				continue
			}
			nbhd := nbhds[c]
			own := boostedOverlaps[c]
			numHigher := 0
			for _, n := range nbhd {
				if n == c {
					continue
				}
				if boostedOverlaps[n] > own || (boostedOverlaps[n] == own && n < c) {
					numHigher++
				}
			}
			numActive := int(0.5 + density*float64(len(nbhd)))
			won[c] = numHigher < numActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	winners := make([]int, 0, int(density*float64(len(overlaps)))+1)
	for c, w := range won {
		if w {
			winners = append(winners, c)
		}
	}
	return winners, nil
}

/*
 Column neighborhoods for the current inhibition radius, rebuilt when the
radius changes.
*/
func (sp *SpatialPooler) neighborhoods() ([][]int, error) {
	conn := sp.conn
	if sp.nbhdRadius == conn.inhibitionRadius && sp.nbhds != nil {
		return sp.nbhds, nil
	}
	nbhds := make([][]int, conn.NumColumns())
	err := sp.pool.run(len(nbhds), func(start, end int) error {
		for c := start; c < end; c++ {
			nbhds[c] = conn.columnTopology.Neighborhood(c, conn.inhibitionRadius, conn.cfg.WrapAround)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sp.nbhds = nbhds
	sp.nbhdRadius = conn.inhibitionRadius
	return nbhds, nil
}

/*
 Recomputes the inhibition radius. With global inhibition it spans the
largest column dimension, otherwise it is the average connected span of
the columns scaled by columns per input.
*/
func (sp *SpatialPooler) updateInhibitionRadius() error {
	conn := sp.conn
	cfg := conn.cfg
	if cfg.GlobalInhibition {
		conn.inhibitionRadius = maxInt(cfg.ColumnDimensions)
		return nil
	}

	spanSum := 0.0
	err := conn.store.ForEach(func(col *Column) error {
		spanSum += sp.avgConnectedSpanForColumn(col)
		return nil
	})
	if err != nil {
		return err
	}
	avgSpan := spanSum / float64(conn.NumColumns())

	diameter := avgSpan * sp.avgColumnsPerInput()
	radius := math.Max(1, (diameter-1)/2)
	conn.inhibitionRadius = int(radius + 0.5)
	return nil
}

//Mean over dimensions of the columns to inputs ratio
func (sp *SpatialPooler) avgColumnsPerInput() float64 {
	cfg := sp.conn.cfg
	n := mathutil.Max(len(cfg.ColumnDimensions), len(cfg.InputDimensions))
	sum := 0.0
	for i := 0; i < n; i++ {
		colDim := 1.0
		if i < len(cfg.ColumnDimensions) {
			colDim = float64(cfg.ColumnDimensions[i])
		}
		inDim := 1.0
		if i < len(cfg.InputDimensions) {
			inDim = float64(cfg.InputDimensions[i])
		}
		sum += colDim / inDim
	}
	return sum / float64(n)
}

//Mean extent, over input dimensions, of the connected synapses of a column
func (sp *SpatialPooler) avgConnectedSpanForColumn(col *Column) float64 {
	conn := sp.conn
	connected := col.Proximal.ConnectedInputs(conn.cfg.SynPermConnected)
	if len(connected) == 0 {
		return 0
	}

	dims := len(conn.cfg.InputDimensions)
	lo := make([]int, dims)
	hi := make([]int, dims)
	for i := range lo {
		lo[i] = math.MaxInt32
		hi[i] = -1
	}
	for _, idx := range connected {
		for d, v := range conn.inputTopology.Coordinates(idx) {
			lo[d] = mathutil.Min(lo[d], v)
			hi[d] = mathutil.Max(hi[d], v)
		}
	}

	sum := 0
	for d := range lo {
		sum += hi[d] - lo[d] + 1
	}
	return float64(sum) / float64(dims)
}

func maxInt(values []int) int {
	m := 0
	for _, v := range values {
		m = mathutil.Max(m, v)
	}
	return m
}
