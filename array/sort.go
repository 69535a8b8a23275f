package array

import "sort"

// Sorted returns a sorted copy of xs. The input slice is left untouched.
func Sorted(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}
