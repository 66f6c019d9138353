package scheduler

import "sort"

// sizedPath pairs a sample path with its size, the unit partitioning
// balances on.
type sizedPath struct {
	path string
	size int64
}

// partitionLPT implements the longest-processing-time-first greedy
// multiway partition (spec.md §4.9): sort descending by size, then place
// each item into whichever of n bins currently holds the smallest total
// size. Worker completion times track bytes processed, so this keeps the
// largest samples from all landing on one worker.
//
// Input order within the returned bins is the order items were assigned,
// which — because items are visited size-descending — is not the original
// discovery order; spec.md §5 only guarantees ordering within a bin is
// deterministic given the same input, not that it matches discovery order.
func partitionLPT(items []sizedPath, n int) [][]string {
	if n <= 0 {
		n = 1
	}

	bins := make([][]string, n)
	totals := make([]int64, n)

	sorted := make([]sizedPath, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].size > sorted[j].size
	})

	for _, item := range sorted {
		smallest := 0
		for i := 1; i < n; i++ {
			if totals[i] < totals[smallest] {
				smallest = i
			}
		}
		bins[smallest] = append(bins[smallest], item.path)
		totals[smallest] += item.size
	}

	return bins
}
