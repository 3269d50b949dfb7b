package dataflow

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dataset is an immutable slice split into contiguous partitions. Operations
// run one goroutine per partition and keep element order.
type Dataset[T any] struct {
	parts [][]T
}

// Parallelize splits data into n partitions of near-equal size. n <= 0 uses
// GOMAXPROCS.
func Parallelize[T any](data []T, n int) *Dataset[T] {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > len(data) && len(data) > 0 {
		n = len(data)
	}
	parts := make([][]T, n)
	size, rem := len(data)/n, len(data)%n
	start := 0
	for i := range parts {
		end := start + size
		if i < rem {
			end++
		}
		parts[i] = data[start:end:end]
		start = end
	}
	return &Dataset[T]{parts: parts}
}

// NumPartitions reports how many partitions d has.
func (d *Dataset[T]) NumPartitions() int { return len(d.parts) }

// Count returns the total number of elements.
func (d *Dataset[T]) Count() int {
	n := 0
	for _, p := range d.parts {
		n += len(p)
	}
	return n
}

// Collect concatenates the partitions in order.
func (d *Dataset[T]) Collect() []T {
	out := make([]T, 0, d.Count())
	for _, p := range d.parts {
		out = append(out, p...)
	}
	return out
}

// eachPartition runs f on every partition concurrently, stopping early when
// ctx is cancelled or any call fails.
func eachPartition[T any](ctx context.Context, d *Dataset[T], f func(ctx context.Context, i int, part []T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range d.parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(gctx, i, p)
		})
	}
	return g.Wait()
}

// MapDataset applies f to every element, one goroutine per partition.
func MapDataset[T, U any](ctx context.Context, d *Dataset[T], f func(T) (U, error)) (*Dataset[U], error) {
	out := make([][]U, len(d.parts))
	err := eachPartition(ctx, d, func(ctx context.Context, i int, part []T) error {
		res := make([]U, len(part))
		for j, v := range part {
			if j%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			u, err := f(v)
			if err != nil {
				return err
			}
			res[j] = u
		}
		out[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Dataset[U]{parts: out}, nil
}

// FilterDataset keeps elements for which keep returns true.
func FilterDataset[T any](ctx context.Context, d *Dataset[T], keep func(T) bool) (*Dataset[T], error) {
	out := make([][]T, len(d.parts))
	err := eachPartition(ctx, d, func(ctx context.Context, i int, part []T) error {
		out[i] = Filter(part, keep)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return &Dataset[T]{parts: out}, nil
}

// FlatMapDataset applies f and flattens within each partition.
func FlatMapDataset[T, U any](ctx context.Context, d *Dataset[T], f func(T) []U) (*Dataset[U], error) {
	out := make([][]U, len(d.parts))
	err := eachPartition(ctx, d, func(ctx context.Context, i int, part []T) error {
		out[i] = FlatMap(part, f)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return &Dataset[U]{parts: out}, nil
}

// ReduceDataset folds each partition from zero with f, then folds the
// partial results with combine. f and combine must agree for the result to
// be independent of partitioning.
func ReduceDataset[T, A any](ctx context.Context, d *Dataset[T], zero A, f func(A, T) A, combine func(A, A) A) (A, error) {
	partials := make([]A, len(d.parts))
	err := eachPartition(ctx, d, func(ctx context.Context, i int, part []T) error {
		partials[i] = Reduce(part, zero, f)
		return ctx.Err()
	})
	if err != nil {
		var none A
		return none, err
	}
	return Reduce(partials, zero, combine), nil
}

// ReduceByKey merges values sharing a key with f. Keys appear in the order
// they were first seen.
func ReduceByKey[K comparable, V any](ctx context.Context, d *Dataset[Pair[K, V]], f func(V, V) V) ([]Pair[K, V], error) {
	type partial struct {
		order []K
		vals  map[K]V
	}
	partials := make([]partial, len(d.parts))
	err := eachPartition(ctx, d, func(ctx context.Context, i int, part []Pair[K, V]) error {
		p := partial{vals: make(map[K]V)}
		for _, kv := range part {
			if cur, ok := p.vals[kv.Key]; ok {
				p.vals[kv.Key] = f(cur, kv.Value)
			} else {
				p.order = append(p.order, kv.Key)
				p.vals[kv.Key] = kv.Value
			}
		}
		partials[i] = p
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	var order []K
	merged := make(map[K]V)
	for _, p := range partials {
		for _, k := range p.order {
			if cur, ok := merged[k]; ok {
				merged[k] = f(cur, p.vals[k])
			} else {
				order = append(order, k)
				merged[k] = p.vals[k]
			}
		}
	}
	out := make([]Pair[K, V], len(order))
	for i, k := range order {
		out[i] = Pair[K, V]{Key: k, Value: merged[k]}
	}
	return out, nil
}
