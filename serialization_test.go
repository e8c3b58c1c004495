package htm

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkpointConfig() *HtmConfig {
	cfg := NewHtmConfig([]int{32}, []int{64})
	cfg.PotentialRadius = -1
	cfg.NumActiveColumnsPerInhArea = 4
	cfg.CellsPerColumn = 4
	cfg.ActivationThreshold = 2
	cfg.MinThreshold = 1
	cfg.MaxNewSynapseCount = 6
	cfg.UpdatePeriod = 7
	return cfg
}

func TestCheckpointContinuesIdentically(t *testing.T) {
	conn, err := NewConnections(checkpointConfig(), nil)
	require.NoError(t, err)
	sp := NewSpatialPooler()
	require.NoError(t, sp.Init(conn))
	tm := NewTemporalMemory()
	require.NoError(t, tm.Init(conn))

	rnd := rand.New(rand.NewSource(21))
	inputs := make([][]int, 40)
	for i := range inputs {
		inputs[i] = randomInput(rnd, 32, 0.3)
	}

	for _, input := range inputs[:20] {
		active, err := sp.Compute(input, true)
		require.NoError(t, err)
		_, err = tm.Compute(active, true)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, conn.Save(&buf))

	restored, err := LoadConnections(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, conn.Stats().Segments, restored.Stats().Segments)
	assert.Equal(t, conn.NumSynapses(), restored.NumSynapses())
	assert.Equal(t, conn.IterationNum(), restored.IterationNum())
	assert.Equal(t, conn.BoostFactors(), restored.BoostFactors())

	sp2 := NewSpatialPooler()
	sp2.Attach(restored)
	tm2 := NewTemporalMemory()
	tm2.Attach(restored)
	assert.Equal(t, tm.ActiveCells(), tm2.ActiveCells())

	for i, input := range inputs[20:] {
		a, err := sp.Compute(input, true)
		require.NoError(t, err)
		b, err := sp2.Compute(input, true)
		require.NoError(t, err)
		require.Equal(t, a, b, "step %d", i)

		c1, err := tm.Compute(a, true)
		require.NoError(t, err)
		c2, err := tm2.Compute(b, true)
		require.NoError(t, err)
		assert.True(t, c1.Equal(c2), "step %d", i)
	}
	assert.Equal(t, conn.NumSegments(), restored.NumSegments())
	assert.Equal(t, conn.NumSynapses(), restored.NumSynapses())
}

func TestLoadConnectionsRejectsGarbage(t *testing.T) {
	_, err := LoadConnections(strings.NewReader("not a checkpoint"), nil)
	assert.Error(t, err)
}

func TestSeededSourceRestore(t *testing.T) {
	src := newSeededSource(9)
	r := rand.New(src)
	for i := 0; i < 17; i++ {
		r.Intn(100)
	}
	restored := rand.New(restoreSeededSource(src.seed, src.draws))
	for i := 0; i < 10; i++ {
		assert.Equal(t, r.Int63(), restored.Int63())
	}
}
