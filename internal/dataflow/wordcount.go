package dataflow

import (
	"context"
	"sort"

	"github.com/oho/clusterlab/internal/text"
)

// WordCount tokenizes lines across partitions, drops stop words, and
// returns counts sorted by frequency then word.
func WordCount(ctx context.Context, lines []string, partitions int, stop text.StopSet) ([]Pair[string, int], error) {
	ds := Parallelize(lines, partitions)
	words, err := FlatMapDataset(ctx, ds, func(line string) []string {
		return text.RemoveStopwords(text.Tokenize(line), stop)
	})
	if err != nil {
		return nil, err
	}
	ones, err := MapDataset(ctx, words, func(w string) (Pair[string, int], error) {
		return Pair[string, int]{Key: w, Value: 1}, nil
	})
	if err != nil {
		return nil, err
	}
	counts, err := ReduceByKey(ctx, ones, func(a, b int) int { return a + b })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Value != counts[j].Value {
			return counts[i].Value > counts[j].Value
		}
		return counts[i].Key < counts[j].Key
	})
	return counts, nil
}
