package containers

import "sort"

// sortSlice is a small insertion-sort-free wrapper around sort.SliceStable so
// List and OrderedSet can share one comparator-based sort helper.
func sortSlice[T any](s []T, cmp func(a, b T) int) {
	sort.SliceStable(s, func(i, j int) bool {
		return cmp(s[i], s[j]) < 0
	})
}
