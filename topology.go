package htm

import (
	"github.com/cznic/mathutil"
	"github.com/htm-community/htmcore/utils"
)

//Maps flat indices to N dimensional coordinates and back
type Topology struct {
	Dimensions    []int
	IsColumnMajor bool
	strides       []int
	size          int
}

func NewTopology(dimensions []int, columnMajor bool) *Topology {
	t := &Topology{
		Dimensions:    append([]int(nil), dimensions...),
		IsColumnMajor: columnMajor,
		size:          utils.ProdInt(dimensions),
	}
	n := len(dimensions)
	t.strides = make([]int, n)
	if columnMajor {
		cum := utils.CumProdInt(dimensions)
		t.strides[0] = 1
		for i := 1; i < n; i++ {
			t.strides[i] = cum[i-1]
		}
	} else {
		cum := utils.RevCumProdInt(dimensions)
		t.strides[n-1] = 1
		for i := 0; i < n-1; i++ {
			t.strides[i] = cum[i+1]
		}
	}
	return t
}

//Number of flat indices
func (t *Topology) Size() int {
	return t.size
}

//Returns coordinates of a flat index
func (t *Topology) Coordinates(index int) []int {
	coords := make([]int, len(t.Dimensions))
	for i, stride := range t.strides {
		coords[i] = (index / stride) % t.Dimensions[i]
	}
	return coords
}

//Returns flat index of coordinates
func (t *Topology) Index(coords []int) int {
	idx := 0
	for i, c := range coords {
		idx += c * t.strides[i]
	}
	return idx
}

func (t *Topology) validIndex(index int) bool {
	return index >= 0 && index < t.size
}

/*
 Returns the sorted flat indices within radius of center, the center
included. With wrapAround the topology behaves like a torus, otherwise
the neighborhood is cut at the edges.
*/
func (t *Topology) Neighborhood(center, radius int, wrapAround bool) []int {
	coords := t.Coordinates(center)
	ranges := make([][]int, len(coords))

	for i, c := range coords {
		dim := t.Dimensions[i]
		if wrapAround {
			span := mathutil.Min(2*radius+1, dim)
			seen := make(map[int]bool, span)
			vals := make([]int, 0, span)
			for o := -radius; o <= radius && len(vals) < dim; o++ {
				v := utils.Mod(c+o, dim)
				if !seen[v] {
					seen[v] = true
					vals = append(vals, v)
				}
			}
			ranges[i] = vals
		} else {
			lo := mathutil.Max(0, c-radius)
			hi := mathutil.Min(dim-1, c+radius)
			vals := make([]int, 0, hi-lo+1)
			for v := lo; v <= hi; v++ {
				vals = append(vals, v)
			}
			ranges[i] = vals
		}
	}

	product := utils.CartProductInt(ranges)
	result := make([]int, len(product))
	for i, p := range product {
		result[i] = t.Index(p)
	}
	return utils.SortUniqueInt(result)
}
