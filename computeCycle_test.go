package htm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCycleEqual(t *testing.T) {
	a := &ComputeCycle{ActiveColumns: []int{1, 2}, ActiveCells: []int{4, 5}, WinnerCells: []int{4}}
	b := &ComputeCycle{ActiveColumns: []int{1, 2}, ActiveCells: []int{4, 5}, WinnerCells: []int{4}, PredictiveCells: []int{}}
	assert.True(t, a.Equal(b))

	b.WinnerCells = []int{5}
	assert.False(t, a.Equal(b))

	var nilCycle *ComputeCycle
	assert.False(t, a.Equal(nilCycle))
	assert.True(t, nilCycle.Equal(nil))
}

func TestComputeCycleMatrices(t *testing.T) {
	cc := &ComputeCycle{
		ActiveCells:     []int{0, 1, 7},
		PredictiveCells: []int{2, 7, 8},
		numColumns:      3,
		cellsPerColumn:  3,
	}
	assert.Equal(t, []int{0, 2}, cc.PredictedColumns())

	active := cc.ActiveCellMatrix()
	assert.Equal(t, "110\n000\n010\n", active.ToString())

	predictive := cc.PredictiveCellMatrix()
	assert.Equal(t, []int{0, 2}, predictive.NonZeroRows())
	assert.Equal(t, []int{1, 2}, predictive.GetRowIndices(2))
}
