// Package partition splits ordered index sequences into per-shard
// subsequences and parses index selection specifications.
package partition

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// indexSpecPattern is the grammar for --index specifications.
var indexSpecPattern = regexp.MustCompile(`^[0-9]+(-[0-9]+)?(,[0-9]+(-[0-9]+)?)*$`)

// Partition returns the elements of indices whose position satisfies
// position mod numShards == shardID, with the first skip of those dropped.
// The split is by position within the already-filtered sequence, not by
// raw index value, so sparse index sets still spread evenly across shards.
// The result is deterministic for identical inputs: a dispatched job
// recomputes its own shard independently of the dispatching process.
func Partition(indices []int, numShards, shardID, skip int) ([]int, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("number of shards must be at least 1, got %d", numShards)
	}
	if shardID < 0 || shardID >= numShards {
		return nil, fmt.Errorf("shard id %d out of range [0, %d)", shardID, numShards)
	}
	if skip < 0 {
		return nil, fmt.Errorf("skip must be non-negative, got %d", skip)
	}

	shard := make([]int, 0, len(indices)/numShards+1)
	for position := shardID; position < len(indices); position += numShards {
		shard = append(shard, indices[position])
	}

	if skip >= len(shard) {
		return []int{}, nil
	}
	return shard[skip:], nil
}

// Range returns the indices [0, size)
func Range(size int) []int {
	indices := make([]int, size)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// ParseIndexSpec parses an index specification such as "0,2-4,9" into an
// ascending sorted set of unique indices. A range "a-b" expands to [a, b)
// with an exclusive upper bound.
func ParseIndexSpec(spec string) ([]int, error) {
	if !indexSpecPattern.MatchString(spec) {
		return nil, fmt.Errorf("index argument %q does not conform to [0-9]+(-[0-9]+)?(,[0-9]+(-[0-9]+)?)*", spec)
	}

	unique := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		if start, stop, isRange := strings.Cut(part, "-"); isRange {
			startIndex, err := strconv.Atoi(start)
			if err != nil {
				return nil, fmt.Errorf("invalid index %q: %w", start, err)
			}
			stopIndex, err := strconv.Atoi(stop)
			if err != nil {
				return nil, fmt.Errorf("invalid index %q: %w", stop, err)
			}
			for i := startIndex; i < stopIndex; i++ {
				unique[i] = true
			}
		} else {
			index, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid index %q: %w", part, err)
			}
			unique[index] = true
		}
	}

	indices := make([]int, 0, len(unique))
	for index := range unique {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices, nil
}

// FormatIndices renders indices as the comma-joined form accepted by
// ParseIndexSpec.
func FormatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, index := range indices {
		parts[i] = strconv.Itoa(index)
	}
	return strings.Join(parts, ",")
}
