// Package lcs computes longest-common-subsequence edit scripts between two
// ordered sequences.
package lcs

import "fmt"

type Kind int

const (
	Unchanged Kind = iota
	Removed
	Added
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Removed:
		return "removed"
	case Added:
		return "added"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is one entry of an edit script. OldIndex is -1 for Added entries
// and NewIndex is -1 for Removed entries.
type Result[T any] struct {
	Kind     Kind
	OldIndex int
	NewIndex int
	Value    T
}

// Diff aligns before against after and returns the edit script in unified
// order: every element of both inputs appears exactly once, and inside a
// changed hunk removals come before additions.
//
// The trace-back walks a suffix LCS table forward. Equal elements are always
// matched, otherwise the old element is dropped whenever that keeps the LCS
// length, and the new element is taken only when it does not.
//
// Time and memory are O(len(before)*len(after)) after the common prefix is
// matched.
func Diff[T any](before []T, after []T, equal func(T, T) bool) []Result[T] {
	results := make([]Result[T], 0, max(len(before), len(after)))

	prefix := 0
	for prefix < len(before) && prefix < len(after) && equal(before[prefix], after[prefix]) {
		results = append(results, Result[T]{
			Kind:     Unchanged,
			OldIndex: prefix,
			NewIndex: prefix,
			Value:    before[prefix],
		})
		prefix++
	}

	b := before[prefix:]
	a := after[prefix:]
	t := newTable(b, a, equal)

	i, j := 0, 0
	for i < len(b) && j < len(a) {
		switch {
		case equal(b[i], a[j]):
			results = append(results, Result[T]{Kind: Unchanged, OldIndex: prefix + i, NewIndex: prefix + j, Value: b[i]})
			i++
			j++
		case t.at(i+1, j) >= t.at(i, j+1):
			results = append(results, Result[T]{Kind: Removed, OldIndex: prefix + i, NewIndex: -1, Value: b[i]})
			i++
		default:
			results = append(results, Result[T]{Kind: Added, OldIndex: -1, NewIndex: prefix + j, Value: a[j]})
			j++
		}
	}
	for ; i < len(b); i++ {
		results = append(results, Result[T]{Kind: Removed, OldIndex: prefix + i, NewIndex: -1, Value: b[i]})
	}
	for ; j < len(a); j++ {
		results = append(results, Result[T]{Kind: Added, OldIndex: -1, NewIndex: prefix + j, Value: a[j]})
	}

	return results
}

// Count tallies the entries of an edit script by kind.
func Count[T any](results []Result[T]) (unchanged int, removed int, added int) {
	for _, r := range results {
		switch r.Kind {
		case Unchanged:
			unchanged++
		case Removed:
			removed++
		case Added:
			added++
		}
	}
	return unchanged, removed, added
}

// table holds L[i][j], the LCS length of before[i:] and after[j:].
type table struct {
	cells []int32
	width int
}

func newTable[T any](before []T, after []T, equal func(T, T) bool) *table {
	n, m := len(before), len(after)
	t := &table{
		cells: make([]int32, (n+1)*(m+1)),
		width: m + 1,
	}
	if n == 0 || m == 0 {
		return t
	}

	for i := n - 1; i >= 0; i-- {
		row := i * t.width
		next := row + t.width
		for j := m - 1; j >= 0; j-- {
			if equal(before[i], after[j]) {
				t.cells[row+j] = t.cells[next+j+1] + 1
			} else {
				t.cells[row+j] = max(t.cells[next+j], t.cells[row+j+1])
			}
		}
	}
	return t
}

func (t *table) at(i int, j int) int32 {
	return t.cells[i*t.width+j]
}
