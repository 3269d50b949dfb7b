package dataflow

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/oho/clusterlab/internal/text"
)

func TestListPrimitives(t *testing.T) {
	nums := []int{1, 2, 3, 4, 5}
	sq := Map(nums, func(x int) int { return x * x })
	if sq[4] != 25 || len(sq) != 5 {
		t.Errorf("Map: got %v", sq)
	}
	even := Filter(nums, func(x int) bool { return x%2 == 0 })
	if len(even) != 2 || even[0] != 2 || even[1] != 4 {
		t.Errorf("Filter: got %v", even)
	}
	sum := Reduce(nums, 0, func(a, x int) int { return a + x })
	if sum != 15 {
		t.Errorf("Reduce: expected 15, got %d", sum)
	}
	strs := Map(nums, strconv.Itoa)
	if strs[2] != "3" {
		t.Errorf("Map to string: got %v", strs)
	}
	dup := FlatMap([]int{1, 2}, func(x int) []int { return []int{x, x} })
	if len(dup) != 4 || dup[3] != 2 {
		t.Errorf("FlatMap: got %v", dup)
	}
	if got := Reduce([]int{}, 7, func(a, x int) int { return a + x }); got != 7 {
		t.Errorf("Reduce of empty should return init, got %d", got)
	}
}

func TestParallelizePartitions(t *testing.T) {
	data := make([]int, 10)
	for i := range data {
		data[i] = i
	}
	ds := Parallelize(data, 3)
	if ds.NumPartitions() != 3 || ds.Count() != 10 {
		t.Fatalf("expected 3 partitions of 10, got %d/%d", ds.NumPartitions(), ds.Count())
	}
	got := ds.Collect()
	for i, v := range got {
		if v != i {
			t.Fatalf("Collect lost order at %d: %v", i, got)
		}
	}
	if Parallelize([]int{1, 2}, 8).NumPartitions() != 2 {
		t.Error("partitions should not exceed elements")
	}
	if Parallelize([]int{}, 4).Count() != 0 {
		t.Error("empty dataset should count 0")
	}
}

func TestMapFilterReduceDataset(t *testing.T) {
	ctx := context.Background()
	data := make([]int, 1000)
	for i := range data {
		data[i] = i + 1
	}
	ds := Parallelize(data, 7)
	doubled, err := MapDataset(ctx, ds, func(x int) (int, error) { return 2 * x, nil })
	if err != nil {
		t.Fatalf("MapDataset: %v", err)
	}
	out := doubled.Collect()
	if out[0] != 2 || out[999] != 2000 {
		t.Errorf("MapDataset order broken: %d..%d", out[0], out[999])
	}
	odd, err := FilterDataset(ctx, ds, func(x int) bool { return x%2 == 1 })
	if err != nil {
		t.Fatalf("FilterDataset: %v", err)
	}
	if odd.Count() != 500 {
		t.Errorf("expected 500 odd values, got %d", odd.Count())
	}
	sum, err := ReduceDataset(ctx, ds, 0, func(a, x int) int { return a + x }, func(a, b int) int { return a + b })
	if err != nil {
		t.Fatalf("ReduceDataset: %v", err)
	}
	if sum != 500500 {
		t.Errorf("expected 500500, got %d", sum)
	}
}

func TestMapDatasetError(t *testing.T) {
	boom := errors.New("boom")
	ds := Parallelize([]int{1, 2, 3, 4}, 2)
	_, err := MapDataset(context.Background(), ds, func(x int) (int, error) {
		if x == 3 {
			return 0, boom
		}
		return x, nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := Parallelize([]int{1, 2, 3}, 2)
	if _, err := MapDataset(ctx, ds, func(x int) (int, error) { return x, nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := ReduceDataset(ctx, ds, 0, func(a, x int) int { return a + x }, func(a, b int) int { return a + b }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReduceByKey(t *testing.T) {
	pairs := []Pair[string, int]{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 1}, {"b", 1}}
	got, err := ReduceByKey(context.Background(), Parallelize(pairs, 3), func(x, y int) int { return x + y })
	if err != nil {
		t.Fatalf("ReduceByKey: %v", err)
	}
	want := map[string]int{"a": 4, "b": 3, "c": 1}
	if len(got) != 3 {
		t.Fatalf("expected 3 keys, got %v", got)
	}
	for _, kv := range got {
		if want[kv.Key] != kv.Value {
			t.Errorf("key %s: expected %d, got %d", kv.Key, want[kv.Key], kv.Value)
		}
	}
	if got[0].Key != "a" {
		t.Errorf("first seen key should lead, got %s", got[0].Key)
	}
}

func TestWordCount(t *testing.T) {
	lines := []string{
		"The market rallied and the market closed higher",
		"Market watchers expect a rally",
		"The team won the match",
	}
	got, err := WordCount(context.Background(), lines, 2, text.DefaultStopwords)
	if err != nil {
		t.Fatalf("WordCount: %v", err)
	}
	if len(got) == 0 || got[0].Key != "market" || got[0].Value != 3 {
		t.Fatalf("expected market=3 first, got %v", got)
	}
	for _, kv := range got {
		if kv.Key == "the" {
			t.Error("stop word counted")
		}
	}
}
