package utils

import (
	"math"
	"sort"
)

//Euclidean modulous
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

//Populates integer slice with index values
func FillSliceWithIdxInt(values []int) {
	for i := range values {
		values[i] = i
	}
}

//Populates int slice with specified value
func FillSliceInt(values []int, value int) {
	for i := range values {
		values[i] = value
	}
}

//Populates float64 slice with specified value
func FillSliceFloat64(values []float64, value float64) {
	for i := range values {
		values[i] = value
	}
}

//Populates a range of a bool slice with specified value
func FillSliceRangeBool(values []bool, value bool, start, length int) {
	for i := 0; i < length; i++ {
		values[start+i] = value
	}
}

//Creates a float slice with every entry set
//to the specified initial value
func MakeSliceFloat64(size int, initialValue float64) []float64 {
	result := make([]float64, size)
	if initialValue != 0 {
		FillSliceFloat64(result, initialValue)
	}
	return result
}

//Returns cartesian product of specified
//2d array
func CartProductInt(values [][]int) [][]int {
	if len(values) == 0 {
		return nil
	}
	for _, v := range values {
		if len(v) == 0 {
			return nil
		}
	}

	pos := make([]int, len(values))
	var result [][]int

	for pos[0] < len(values[0]) {
		temp := make([]int, len(values))
		for j := 0; j < len(values); j++ {
			temp[j] = values[j][pos[j]]
		}
		result = append(result, temp)
		pos[len(values)-1]++
		for k := len(values) - 1; k >= 1; k-- {
			if pos[k] >= len(values[k]) {
				pos[k] = 0
				pos[k-1]++
			} else {
				break
			}
		}
	}
	return result
}

//Searches a sorted int slice for specified integer
func ContainsInt(q int, sorted []int) bool {
	i := sort.SearchInts(sorted, q)
	return i < len(sorted) && sorted[i] == q
}

//Returns product of set of integers
func ProdInt(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	result := 1
	for _, v := range vals {
		result *= v
	}
	return result
}

//Returns cumulative product
func CumProdInt(vals []int) []int {
	result := make([]int, len(vals))
	if len(vals) == 0 {
		return result
	}
	result[0] = vals[0]
	for x := 1; x < len(vals); x++ {
		result[x] = vals[x] * result[x-1]
	}
	return result
}

//Returns cumulative product starting from end
func RevCumProdInt(vals []int) []int {
	result := make([]int, len(vals))
	if len(vals) == 0 {
		return result
	}
	result[len(vals)-1] = vals[len(vals)-1]
	for x := len(vals) - 2; x >= 0; x-- {
		result[x] = vals[x] * result[x+1]
	}
	return result
}

//Drops every digit after prec decimals
func TruncatePrec(x float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Trunc(x*pow) / pow
}

//Helper for unit tests where int literals are easier
// to read
func Make1DBool(values []int) []bool {
	result := make([]bool, len(values))
	for i, val := range values {
		result[i] = val == 1
	}
	return result
}

func Bool2Int(s []bool) []int {
	result := make([]int, len(s))
	for idx, val := range s {
		if val {
			result[idx] = 1
		}
	}
	return result
}

//Returns "on" indices of a bool slice
func OnIndices(s []bool) []int {
	result := make([]int, 0, len(s)/8)
	for idx, val := range s {
		if val {
			result = append(result, idx)
		}
	}
	return result
}

//Returns indices of non zero entries
func NonZeroInt(s []int) []int {
	result := make([]int, 0, len(s)/8)
	for idx, val := range s {
		if val != 0 {
			result = append(result, idx)
		}
	}
	return result
}

// Returns the number of values present in both sorted slices
func IntersectCount(s []int, t []int) int {
	i, j, count := 0, 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] == t[j]:
			count++
			i++
			j++
		case s[i] < t[j]:
			i++
		default:
			j++
		}
	}
	return count
}

// Sorts and removes duplicates in place
func SortUniqueInt(s []int) []int {
	if len(s) < 2 {
		return s
	}
	sort.Ints(s)
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
