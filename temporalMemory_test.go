package htm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTemporalMemory(t *testing.T, cfg *HtmConfig) (*TemporalMemory, *Connections) {
	conn, err := NewConnections(cfg, nil)
	require.NoError(t, err)
	tm := NewTemporalMemory()
	require.NoError(t, tm.Init(conn))
	return tm, conn
}

func tmConfig() *HtmConfig {
	cfg := NewHtmConfig([]int{32}, []int{32})
	return cfg
}

//Transition config where a single synapse pair predicts a column
func sequenceConfig() *HtmConfig {
	cfg := NewHtmConfig([]int{16}, []int{8})
	cfg.CellsPerColumn = 4
	cfg.ActivationThreshold = 2
	cfg.MinThreshold = 1
	cfg.InitialPermanence = 0.5
	cfg.ConnectedPermanence = 0.5
	cfg.PredictedSegmentDecrement = 0
	return cfg
}

func prevActiveMask(conn *Connections, cells ...int) []bool {
	mask := make([]bool, conn.NumCells())
	for _, c := range cells {
		mask[c] = true
	}
	return mask
}

func TestGrowSynapsesAvoidsDuplicates(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, tmConfig())
	seg, err := conn.CreateDistalSegment(0)
	require.NoError(t, err)
	_, err = conn.CreateSynapse(seg, 23, 0.6)
	require.NoError(t, err)

	require.NoError(t, tm.growSynapses(seg, []int{23, 144, 233}, 0.21, 10))
	syns, _ := conn.SynapsesForSegment(seg)
	var sources []int
	for _, s := range syns {
		d, _ := conn.SynapseData(s)
		sources = append(sources, d.SourceCell)
	}
	assert.ElementsMatch(t, []int{23, 144, 233}, sources)
}

func TestGrowSynapsesSamplesCandidates(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, tmConfig())
	seg, _ := conn.CreateDistalSegment(0)
	candidates := []int{4, 47, 58, 93}

	require.NoError(t, tm.growSynapses(seg, candidates, 0.21, 2))
	syns, _ := conn.SynapsesForSegment(seg)
	require.Len(t, syns, 2)
	for _, s := range syns {
		d, _ := conn.SynapseData(s)
		assert.Contains(t, candidates, d.SourceCell)
		assert.Equal(t, 0.21, d.Permanence)
	}

	require.NoError(t, tm.growSynapses(seg, candidates, 0.21, 0))
	assert.Equal(t, 2, conn.NumSynapses())
}

func TestAdaptSegment(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, tmConfig())
	seg, _ := conn.CreateDistalSegment(0)
	s0, _ := conn.CreateSynapse(seg, 23, 0.5)
	s1, _ := conn.CreateSynapse(seg, 37, 0.5)
	s2, _ := conn.CreateSynapse(seg, 477, 0.9)

	require.NoError(t, tm.adaptSegment(seg, prevActiveMask(conn, 23, 37), 0.1, 0.1))
	d0, _ := conn.SynapseData(s0)
	d1, _ := conn.SynapseData(s1)
	d2, _ := conn.SynapseData(s2)
	assert.InDelta(t, 0.6, d0.Permanence, 1e-9)
	assert.InDelta(t, 0.6, d1.Permanence, 1e-9)
	assert.InDelta(t, 0.8, d2.Permanence, 1e-9)
}

func TestAdaptSegmentToMax(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, tmConfig())
	seg, _ := conn.CreateDistalSegment(0)
	syn, _ := conn.CreateSynapse(seg, 23, 0.9)

	require.NoError(t, tm.adaptSegment(seg, prevActiveMask(conn, 23), 0.1, 0.1))
	d, _ := conn.SynapseData(syn)
	assert.InDelta(t, 1.0, d.Permanence, 1e-9)

	// Now permanence should be at max
	require.NoError(t, tm.adaptSegment(seg, prevActiveMask(conn, 23), 0.1, 0.1))
	d, _ = conn.SynapseData(syn)
	assert.Equal(t, 1.0, d.Permanence)
}

func TestAdaptSegmentToMinDestroys(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, tmConfig())
	seg, _ := conn.CreateDistalSegment(0)
	syn, _ := conn.CreateSynapse(seg, 23, 0.1)

	require.NoError(t, tm.adaptSegment(seg, prevActiveMask(conn), 0.1, 0.1))
	_, err := conn.SynapseData(syn)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = conn.SegmentData(seg)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, conn.NumSegments())
	assert.Equal(t, 0, conn.NumSynapses())
}

func TestLeastUsedCell(t *testing.T) {
	cfg := tmConfig()
	cfg.ColumnDimensions = []int{2}
	cfg.CellsPerColumn = 2
	cfg.NumActiveColumnsPerInhArea = 1
	tm, conn := newTestTemporalMemory(t, cfg)

	assert.Equal(t, 0, tm.leastUsedCell([]int{0, 1}))
	conn.CreateDistalSegment(0)
	assert.Equal(t, 1, tm.leastUsedCell([]int{0, 1}))
	conn.CreateDistalSegment(1)
	assert.Equal(t, 0, tm.leastUsedCell([]int{0, 1}))
}

func TestBestMatchingSegment(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, tmConfig())
	s0, _ := conn.CreateDistalSegment(0)
	s1, _ := conn.CreateDistalSegment(1)
	s2, _ := conn.CreateDistalSegment(2)
	conn.numActivePotential[s0] = 2
	conn.numActivePotential[s1] = 3
	conn.numActivePotential[s2] = 3

	assert.Equal(t, s1, tm.bestMatchingSegment([]int{s2, s0, s1}))
}

func TestBurstOnFirstInput(t *testing.T) {
	cfg := NewHtmConfig([]int{4}, []int{36})
	cfg.CellsPerColumn = 5
	cfg.ActivationThreshold = 3
	cfg.MinThreshold = 2
	tm, conn := newTestTemporalMemory(t, cfg)

	cycle, err := tm.Compute([]int{0}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, cycle.ActiveColumns)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, cycle.ActiveCells)
	assert.Equal(t, []int{0}, cycle.WinnerCells)
	assert.Empty(t, cycle.PredictiveCells)
	// nothing to grow towards on the first step
	assert.Equal(t, 0, conn.NumSegments())
}

func TestLearnTransition(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, sequenceConfig())

	_, err := tm.Compute([]int{0, 1}, true)
	require.NoError(t, err)
	cycle, err := tm.Compute([]int{2, 3}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 12}, cycle.WinnerCells)
	assert.Equal(t, 2, conn.NumSegments())
	assert.Equal(t, 4, conn.NumSynapses())

	for _, cell := range []int{8, 12} {
		segs, _ := conn.SegmentsForCell(cell)
		require.Len(t, segs, 1)
		syns, _ := conn.SynapsesForSegment(segs[0])
		var sources []int
		for _, s := range syns {
			d, _ := conn.SynapseData(s)
			sources = append(sources, d.SourceCell)
			assert.Equal(t, 0.5, d.Permanence)
		}
		assert.ElementsMatch(t, []int{0, 4}, sources)
	}

	tm.Reset()
	cycle, err = tm.Compute([]int{0, 1}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, cycle.ActiveCells)
	assert.Equal(t, []int{8, 12}, cycle.PredictiveCells)
	assert.Equal(t, []int{2, 3}, cycle.PredictedColumns())
	assert.Len(t, cycle.ActiveSegments, 2)

	cycle, err = tm.Compute([]int{2, 3}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 12}, cycle.ActiveCells)
	assert.Equal(t, []int{8, 12}, cycle.WinnerCells)
}

func TestPredictedColumnReinforcesSegment(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, sequenceConfig())
	tm.Compute([]int{0, 1}, true)
	tm.Compute([]int{2, 3}, true)
	tm.Reset()

	tm.Compute([]int{0, 1}, true)
	// cells 0..7 were active, 0 and 4 among them
	_, err := tm.Compute([]int{2, 3}, true)
	require.NoError(t, err)

	segs, _ := conn.SegmentsForCell(8)
	syns, _ := conn.SynapsesForSegment(segs[0])
	for _, s := range syns {
		d, _ := conn.SynapseData(s)
		assert.InDelta(t, 0.6, d.Permanence, 1e-9)
	}
}

func TestPunishPredictedColumn(t *testing.T) {
	cfg := sequenceConfig()
	cfg.PredictedSegmentDecrement = 0.1
	tm, conn := newTestTemporalMemory(t, cfg)
	tm.Compute([]int{0, 1}, true)
	tm.Compute([]int{2, 3}, true)
	tm.Reset()

	tm.Compute([]int{0, 1}, true)
	// columns 2 and 3 were predicted but column 5 arrives
	cycle, err := tm.Compute([]int{5}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 21, 22, 23}, cycle.ActiveCells)

	for _, cell := range []int{8, 12} {
		segs, _ := conn.SegmentsForCell(cell)
		require.Len(t, segs, 1)
		syns, _ := conn.SynapsesForSegment(segs[0])
		for _, s := range syns {
			d, _ := conn.SynapseData(s)
			assert.InDelta(t, 0.4, d.Permanence, 1e-9)
		}
	}
	// the surprise grew a new segment on the winner of column 5
	segs, _ := conn.SegmentsForCell(20)
	assert.Len(t, segs, 1)
}

func TestInferenceIsIdempotent(t *testing.T) {
	cfg := sequenceConfig()
	cfg.ActivationThreshold = 1
	tm, _ := newTestTemporalMemory(t, cfg)

	sequence := [][]int{{0}, {1}, {2}, {3}, {4}, {5}, {6}}
	for pass := 0; pass < 10; pass++ {
		for _, cols := range sequence {
			_, err := tm.Compute(cols, true)
			require.NoError(t, err)
		}
		tm.Reset()
	}

	replay := func() []*ComputeCycle {
		tm.Reset()
		var cycles []*ComputeCycle
		for _, cols := range sequence {
			cycle, err := tm.Compute(cols, false)
			require.NoError(t, err)
			cycles = append(cycles, cycle)
		}
		return cycles
	}
	first := replay()
	second := replay()
	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]), "step %d", i)
	}

	// after the first step every column is predicted
	assert.Len(t, first[0].ActiveCells, 4)
	for _, cycle := range first[1:] {
		assert.Len(t, cycle.ActiveCells, 1)
	}
}

func TestCapacityLimitsHold(t *testing.T) {
	cfg := NewHtmConfig([]int{16}, []int{16})
	cfg.CellsPerColumn = 4
	cfg.MaxSegmentsPerCell = 2
	cfg.MaxSynapsesPerSegment = 3
	cfg.MaxNewSynapseCount = 5
	cfg.ActivationThreshold = 2
	cfg.MinThreshold = 1
	tm, conn := newTestTemporalMemory(t, cfg)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		cols := []int{rnd.Intn(16), rnd.Intn(16), rnd.Intn(16)}
		_, err := tm.Compute(cols, true)
		require.NoError(t, err)
	}

	segments, synapses := 0, 0
	for cell := 0; cell < conn.NumCells(); cell++ {
		segs, err := conn.SegmentsForCell(cell)
		require.NoError(t, err)
		assert.True(t, len(segs) <= cfg.MaxSegmentsPerCell)
		segments += len(segs)
		for _, seg := range segs {
			data, err := conn.SegmentData(seg)
			require.NoError(t, err)
			assert.Equal(t, cell, data.Cell)
			assert.True(t, len(data.Synapses) > 0 && len(data.Synapses) <= cfg.MaxSynapsesPerSegment)
			synapses += len(data.Synapses)
			for _, syn := range data.Synapses {
				d, err := conn.SynapseData(syn)
				require.NoError(t, err)
				assert.Equal(t, seg, d.Segment)
				assert.True(t, d.Permanence >= 0 && d.Permanence <= 1)
				receptors, _ := conn.ReceptorSynapses(d.SourceCell)
				assert.Contains(t, receptors, syn)
			}
		}
	}
	assert.Equal(t, segments, conn.NumSegments())
	assert.Equal(t, synapses, conn.NumSynapses())
	assert.True(t, segments > 0)
}

func TestComputeInvalidColumns(t *testing.T) {
	tm, conn := newTestTemporalMemory(t, sequenceConfig())
	_, err := tm.Compute([]int{8}, true)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = tm.Compute([]int{-1}, true)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, tm.ActiveCells())
	assert.Equal(t, 0, conn.NumSegments())

	// duplicates collapse
	cycle, err := tm.Compute([]int{3, 1, 3}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, cycle.ActiveColumns)
}

func TestResetBeforeInit(t *testing.T) {
	tm := NewTemporalMemory()
	assert.NotPanics(t, tm.Reset)
	assert.Nil(t, tm.Connections())
}
