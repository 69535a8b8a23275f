/*package array provides the element-by-element comparisons and logic used to
build particle selections, along with a few small helpers for turning those
selections back into indices and sorted values.

Every comparison function takes an optional output buffer so that repeated
cuts over large fields don't allocate.
*/
package array

import (
	"fmt"
)

// getOutput is a utility function that gets the output array from an optional
// argument or allocates a new one.
func getOutput(out [][]bool, n int) []bool {
	if len(out) == 0 {
		return make([]bool, n)
	}
	ok := out[0]
	if len(ok) != n {
		panic(fmt.Sprintf("len(xs) = %d, but len(out) = %d", n, len(ok)))
	}
	return ok
}

// Greater returns a bool array representing which elements of xs are greater
// than x0.
func Greater(xs []float64, x0 float64, out ...[]bool) []bool {
	ok := getOutput(out, len(xs))
	for i := range xs {
		ok[i] = xs[i] > x0
	}
	return ok
}

// Less returns a bool array representing which elements of xs are less
// than x0.
func Less(xs []float64, x0 float64, out ...[]bool) []bool {
	ok := getOutput(out, len(xs))
	for i := range xs {
		ok[i] = xs[i] < x0
	}
	return ok
}

// Leq returns a bool array representing which elements of xs are <= x0.
func Leq(xs []float64, x0 float64, out ...[]bool) []bool {
	ok := getOutput(out, len(xs))
	for i := range xs {
		ok[i] = xs[i] <= x0
	}
	return ok
}

// Geq returns a bool array representing which elements of xs are >= x0.
func Geq(xs []float64, x0 float64, out ...[]bool) []bool {
	ok := getOutput(out, len(xs))
	for i := range xs {
		ok[i] = xs[i] >= x0
	}
	return ok
}

// Between returns a bool array representing which elements of xs are in the
// half-open range [lo, hi).
func Between(xs []float64, lo, hi float64, out ...[]bool) []bool {
	ok := getOutput(out, len(xs))
	for i := range xs {
		ok[i] = xs[i] >= lo && xs[i] < hi
	}
	return ok
}

// checkLengths panics if the arrays in xs don't all have the same length.
func checkLengths(name string, xs [][]bool) int {
	if len(xs) == 0 {
		panic(fmt.Sprintf("No input given to %s.", name))
	}
	n := len(xs[0])
	for j := range xs {
		if len(xs[j]) != n {
			panic(fmt.Sprintf("Argument %d of %s() has length %d, not %d.",
				j, name, len(xs[j]), n))
		}
	}
	return n
}

// And returns a bool array corresponding an element-by-element && applied to
// all input arrays. Unlike other functions here it can't take an optional
// output argument because of the variadic input.
func And(xs ...[]bool) []bool {
	out := make([]bool, checkLengths("And", xs))
	for i := range out {
		out[i] = true
	}
	for j := range xs {
		for i := range out {
			out[i] = out[i] && xs[j][i]
		}
	}
	return out
}

// Or returns a bool array corresponding an element-by-element || applied to
// all input arrays.
func Or(xs ...[]bool) []bool {
	out := make([]bool, checkLengths("Or", xs))
	for j := range xs {
		for i := range out {
			out[i] = out[i] || xs[j][i]
		}
	}
	return out
}

// Xor returns a bool array which is true wherever exactly one of x1 and x2 is
// true.
func Xor(x1, x2 []bool, out ...[]bool) []bool {
	checkLengths("Xor", [][]bool{x1, x2})
	ok := getOutput(out, len(x1))
	for i := range x1 {
		ok[i] = x1[i] != x2[i]
	}
	return ok
}

// Not applies element-by-element ! to an input array. It takes an optional
// output array.
func Not(xs []bool, out ...[]bool) []bool {
	ok := getOutput(out, len(xs))
	for i := range xs {
		ok[i] = !xs[i]
	}
	return ok
}

// Count returns the number of true elements in ok.
func Count(ok []bool) int {
	n := 0
	for i := range ok {
		if ok[i] {
			n++
		}
	}
	return n
}

// Where returns the indices of the true elements of ok, in ascending order.
func Where(ok []bool) []int {
	idx := make([]int, 0, Count(ok))
	for i := range ok {
		if ok[i] {
			idx = append(idx, i)
		}
	}
	return idx
}

// Cut returns the elements of xs for which ok is true.
func Cut(xs []float64, ok []bool) []float64 {
	if len(xs) != len(ok) {
		panic(fmt.Sprintf("len(xs) = %d, but len(ok) = %d", len(xs), len(ok)))
	}
	out := make([]float64, 0, Count(ok))
	for i := range xs {
		if ok[i] {
			out = append(out, xs[i])
		}
	}
	return out
}
