package htm

import (
	"reflect"
)

/*
 Snapshot of one temporal memory cycle. All sets are sorted flat indices.
PredictiveCells are the cells depolarized for the next cycle. A cycle is
immutable once returned.
*/
type ComputeCycle struct {
	ActiveColumns    []int
	ActiveCells      []int
	WinnerCells      []int
	PredictiveCells  []int
	ActiveSegments   []int
	MatchingSegments []int

	numColumns     int
	cellsPerColumn int
}

//Equality by content of the sets
func (cc *ComputeCycle) Equal(other *ComputeCycle) bool {
	if cc == nil || other == nil {
		return cc == other
	}
	return equalSet(cc.ActiveColumns, other.ActiveColumns) &&
		equalSet(cc.ActiveCells, other.ActiveCells) &&
		equalSet(cc.WinnerCells, other.WinnerCells) &&
		equalSet(cc.PredictiveCells, other.PredictiveCells) &&
		equalSet(cc.ActiveSegments, other.ActiveSegments) &&
		equalSet(cc.MatchingSegments, other.MatchingSegments)
}

func equalSet(a, b []int) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

//Columns holding at least one predictive cell
func (cc *ComputeCycle) PredictedColumns() []int {
	result := make([]int, 0, len(cc.PredictiveCells))
	for _, cell := range cc.PredictiveCells {
		col := cell / cc.cellsPerColumn
		if len(result) == 0 || result[len(result)-1] != col {
			result = append(result, col)
		}
	}
	return result
}

//Active cells as a columns x cells per column matrix
func (cc *ComputeCycle) ActiveCellMatrix() *DenseBinaryMatrix {
	return cellMatrix(cc.ActiveCells, cc.numColumns, cc.cellsPerColumn)
}

//Predictive cells as a columns x cells per column matrix
func (cc *ComputeCycle) PredictiveCellMatrix() *DenseBinaryMatrix {
	return cellMatrix(cc.PredictiveCells, cc.numColumns, cc.cellsPerColumn)
}

func cellMatrix(cells []int, numColumns, cellsPerColumn int) *DenseBinaryMatrix {
	m := NewDenseBinaryMatrix(numColumns, cellsPerColumn)
	for _, cell := range cells {
		m.Set(cell/cellsPerColumn, cell%cellsPerColumn, true)
	}
	return m
}
