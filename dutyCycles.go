package htm

import (
	"fmt"
	"math"

	"github.com/cznic/mathutil"
	"github.com/gonum/floats"
	zfloats "github.com/zacg/floats"
)

/*
 Updates overlap and active duty cycles. A column counts as overlapping
when its overlap is non zero. The moving average window is
min(DutyCyclePeriod, iteration), so early iterations converge quickly.
*/
func (sp *SpatialPooler) updateDutyCycles(overlaps []int, activeColumns []int) {
	conn := sp.conn
	n := len(overlaps)
	overlapArray := make([]float64, n)
	activeArray := make([]float64, n)
	for i, o := range overlaps {
		if o > 0 {
			overlapArray[i] = 1
		}
	}
	for _, c := range activeColumns {
		activeArray[c] = 1
	}

	period := mathutil.Min(conn.cfg.DutyCyclePeriod, conn.iterationNum)
	updateDutyCyclesHelper(conn.overlapDutyCycles, overlapArray, period)
	updateDutyCyclesHelper(conn.activeDutyCycles, activeArray, period)
}

/*
 Exponential moving average, in place:

	dutyCycle = (dutyCycle * (period - 1) + newValue) / period
*/
func updateDutyCyclesHelper(dutyCycles []float64, newInput []float64, period int) {
	if period < 1 {
		period = 1
	}
	floats.Scale(float64(period-1), dutyCycles)
	floats.Add(dutyCycles, newInput)
	zfloats.DivConst(float64(period), dutyCycles)
}

/*
 Boost factors follow an exponential curve of a column's active duty cycle
relative to the mean of its neighborhood: a column at the mean gets 1, a
column that was never active gets MaxBoost.
*/
func (sp *SpatialPooler) updateBoostFactors() error {
	conn := sp.conn
	maxBoost := conn.cfg.MaxBoost
	if maxBoost <= 1 {
		for i := range conn.boostFactors {
			conn.boostFactors[i] = 1
		}
		return nil
	}

	if sp.useGlobalInhibition() {
		target := floats.Sum(conn.activeDutyCycles) / float64(len(conn.activeDutyCycles))
		for i, dc := range conn.activeDutyCycles {
			conn.boostFactors[i] = boostFactor(dc, target, maxBoost)
		}
		return nil
	}

	nbhds, err := sp.neighborhoods()
	if err != nil {
		return err
	}
	for i, dc := range conn.activeDutyCycles {
		local := zfloats.SubSet(conn.activeDutyCycles, nbhds[i])
		target := floats.Sum(local) / float64(len(local))
		conn.boostFactors[i] = boostFactor(dc, target, maxBoost)
	}
	return nil
}

func boostFactor(dutyCycle, target, maxBoost float64) float64 {
	if target <= 0 {
		return 1
	}
	b := math.Pow(maxBoost, (target-dutyCycle)/target)
	return math.Max(1, math.Min(maxBoost, b))
}

// Updates the minimum duty cycles defining normal activity for a column. A
// column with activity duty cycle below this minimum threshold is boosted.
func (sp *SpatialPooler) updateMinDutyCycles() error {
	if sp.useGlobalInhibition() {
		sp.updateMinDutyCyclesGlobal()
		return nil
	}
	return sp.updateMinDutyCyclesLocal()
}

// Sets the minimum duty cycles for the overlap and activation of all columns
// to be a percent of the maximum in the region, specified by
// MinPctOverlapDutyCycles and MinPctActiveDutyCycles respectively.
func (sp *SpatialPooler) updateMinDutyCyclesGlobal() {
	conn := sp.conn
	minOverlap := conn.cfg.MinPctOverlapDutyCycles * floats.Max(conn.overlapDutyCycles)
	minActive := conn.cfg.MinPctActiveDutyCycles * floats.Max(conn.activeDutyCycles)
	for i := range conn.minOverlapDutyCycles {
		conn.minOverlapDutyCycles[i] = minOverlap
		conn.minActiveDutyCycles[i] = minActive
	}
}

// Same as the global variant, but the maximum is taken over each column's
// inhibition neighborhood.
func (sp *SpatialPooler) updateMinDutyCyclesLocal() error {
	conn := sp.conn
	nbhds, err := sp.neighborhoods()
	if err != nil {
		return err
	}
	for i, nbhd := range nbhds {
		maxOverlap := floats.Max(zfloats.SubSet(conn.overlapDutyCycles, nbhd))
		maxActive := floats.Max(zfloats.SubSet(conn.activeDutyCycles, nbhd))
		conn.minOverlapDutyCycles[i] = conn.cfg.MinPctOverlapDutyCycles * maxOverlap
		conn.minActiveDutyCycles[i] = conn.cfg.MinPctActiveDutyCycles * maxActive
	}
	return nil
}

/*
 Default bump up strategy. Columns whose overlap duty cycle fell below
their minimum get SynPermBelowStimulusInc added to every synapse in the
pool so they can compete again.
*/
func (sp *SpatialPooler) BumpUpWeakColumns() error {
	conn := sp.conn
	cfg := conn.cfg
	for c, dc := range conn.overlapDutyCycles {
		if dc >= conn.minOverlapDutyCycles[c] {
			continue
		}
		col, err := conn.store.Get(c)
		if err != nil {
			return fmt.Errorf("bump up column %d: %w", c, err)
		}
		floats.AddConst(cfg.SynPermBelowStimulusInc, col.Proximal.Permanences)
		if err := col.Proximal.normalize(cfg, false); err != nil {
			return err
		}
		if err := conn.store.Set(c, col); err != nil {
			return fmt.Errorf("bump up column %d: %w", c, err)
		}
	}
	return nil
}
