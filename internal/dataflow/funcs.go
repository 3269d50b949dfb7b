// Package dataflow provides map, filter and reduce over slices, and a
// partitioned Dataset that runs the same operations concurrently.
package dataflow

// Map applies f to every element of in.
func Map[T, U any](in []T, f func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// Filter keeps the elements of in for which keep returns true.
func Filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Reduce folds in from the left starting at init.
func Reduce[T, A any](in []T, init A, f func(A, T) A) A {
	acc := init
	for _, v := range in {
		acc = f(acc, v)
	}
	return acc
}

// FlatMap applies f to every element and concatenates the results.
func FlatMap[T, U any](in []T, f func(T) []U) []U {
	var out []U
	for _, v := range in {
		out = append(out, f(v)...)
	}
	return out
}

// Pair is a key/value element used by ReduceByKey.
type Pair[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}
