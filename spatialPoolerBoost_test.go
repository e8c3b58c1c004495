package htm

import (
	"math"
	"testing"

	"github.com/htm-community/htmcore/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
 Duty cycles are a moving average with a fixed window. A column that is
always on converges to 1, one that is on every other step settles around
one half.
*/
func TestDutyCycleAverage(t *testing.T) {
	for _, period := range []int{100, 200, 500} {
		always := make([]float64, 1)
		alternate := make([]float64, 1)
		on := []float64{1}
		off := []float64{0}

		for i := 0; i < period*100; i++ {
			updateDutyCyclesHelper(always, on, period)
			if i%2 == 0 {
				updateDutyCyclesHelper(alternate, on, period)
			} else {
				updateDutyCyclesHelper(alternate, off, period)
			}
		}

		assert.True(t, always[0] >= 0.99 && always[0] <= 1, "period %d: %v", period, always[0])
		assert.InDelta(t, 0.5, alternate[0], 0.01, "period %d", period)
	}
}

func TestDutyCycleFirstIteration(t *testing.T) {
	dc := []float64{0.3, 0.7, 0}
	updateDutyCyclesHelper(dc, []float64{1, 0, 1}, 1)
	assert.Equal(t, []float64{1, 0, 1}, dc)

	dc = []float64{0.5, 0.5}
	updateDutyCyclesHelper(dc, []float64{1, 0}, 2)
	assert.Equal(t, []float64{0.75, 0.25}, dc)
}

func TestBoostFactor(t *testing.T) {
	assert.Equal(t, 1.0, boostFactor(0.5, 0.5, 10))
	assert.Equal(t, 10.0, boostFactor(0, 0.5, 10))
	assert.InDelta(t, math.Sqrt(10), boostFactor(0.25, 0.5, 10), 1e-9)
	// above target never drops below one
	assert.Equal(t, 1.0, boostFactor(1, 0.5, 10))
	assert.Equal(t, 1.0, boostFactor(0, 0, 10))
}

func TestBoostFactorsDisabled(t *testing.T) {
	cfg := spConfig()
	cfg.MaxBoost = 1
	sp := newTestSpatialPooler(t, cfg)
	sp.conn.activeDutyCycles[0] = 0.9

	require.NoError(t, sp.updateBoostFactors())
	expected := utils.MakeSliceFloat64(64, 1)
	assert.Equal(t, expected, sp.conn.BoostFactors())
}

func TestBoostFactorsLocal(t *testing.T) {
	sp := localInhibitionPooler(t, 1)
	conn := sp.conn
	conn.cfg.MaxBoost = 10
	// column 4 is the only active one around columns 3..5
	conn.activeDutyCycles[4] = 0.3

	require.NoError(t, sp.updateBoostFactors())
	boost := conn.BoostFactors()
	assert.Equal(t, 1.0, boost[4])
	assert.Equal(t, 10.0, boost[3])
	assert.Equal(t, 10.0, boost[5])
	// no activity in the neighborhood, nothing to compare against
	assert.Equal(t, 1.0, boost[0])
	assert.Equal(t, 1.0, boost[8])
}

func TestMinDutyCyclesLocal(t *testing.T) {
	sp := localInhibitionPooler(t, 1)
	conn := sp.conn
	conn.overlapDutyCycles[2] = 0.8
	conn.activeDutyCycles[2] = 0.4

	require.NoError(t, sp.updateMinDutyCycles())
	minOverlap := conn.MinOverlapDutyCycles()
	minActive := conn.MinActiveDutyCycles()
	for _, c := range []int{1, 2, 3} {
		assert.InDelta(t, 0.001*0.8, minOverlap[c], 1e-12)
		assert.InDelta(t, 0.001*0.4, minActive[c], 1e-12)
	}
	assert.Equal(t, 0.0, minOverlap[5])
	assert.Equal(t, 0.0, minActive[0])
}
