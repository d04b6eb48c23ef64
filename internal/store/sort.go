package store

import "sort"

// sortTagCounts orders tag counts by descending count, then tag name for
// a deterministic top-N.
func sortTagCounts(counts []TagCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})
}
