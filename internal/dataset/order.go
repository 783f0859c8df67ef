package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// CompareKeys orders canonical keys: numeric keys first by value, then text keys lexically.
func CompareKeys(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// SortKeys sorts keys in place with CompareKeys
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool { return CompareKeys(keys[i], keys[j]) < 0 })
}

// SortedUnique returns the distinct non-null keys of a column in ascending order
func (v View) SortedUnique(column string) []string {
	keys := v.Unique(column)
	SortKeys(keys)
	return keys
}
