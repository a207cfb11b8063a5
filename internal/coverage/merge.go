package coverage

import "sort"

// mergeIntervals sorts intervals by start and merges overlapping or
// touching ones into the minimal disjoint set, per spec.md §4.4 step 2.
func mergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// gapsOf returns the complement of merged (which must already be sorted
// and disjoint) within [0, dumpSize).
func gapsOf(merged []Interval, dumpSize int64) []Interval {
	var gaps []Interval
	var cursor int64
	for _, iv := range merged {
		if iv.Start > cursor {
			gaps = append(gaps, Interval{Start: cursor, End: iv.Start})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if cursor < dumpSize {
		gaps = append(gaps, Interval{Start: cursor, End: dumpSize})
	}
	return gaps
}
