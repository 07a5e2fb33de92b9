package lcs

// Bytes aligns two sequences of byte tokens. Tokens are interned to integer
// ids first, so the table is filled with integer comparisons instead of
// repeated byte comparisons; the classification is identical to
// Diff(before, after, bytes.Equal).
func Bytes(before [][]byte, after [][]byte) []Result[[]byte] {
	ids := make(map[string]int, len(before))
	beforeIDs := intern(before, ids)
	afterIDs := intern(after, ids)

	aligned := Diff(beforeIDs, afterIDs, func(l int, r int) bool {
		return l == r
	})

	results := make([]Result[[]byte], len(aligned))
	for k, r := range aligned {
		var value []byte
		if r.Kind == Added {
			value = after[r.NewIndex]
		} else {
			value = before[r.OldIndex]
		}
		results[k] = Result[[]byte]{
			Kind:     r.Kind,
			OldIndex: r.OldIndex,
			NewIndex: r.NewIndex,
			Value:    value,
		}
	}
	return results
}

func intern(tokens [][]byte, ids map[string]int) []int {
	out := make([]int, len(tokens))
	for i, token := range tokens {
		id, ok := ids[string(token)]
		if !ok {
			id = len(ids)
			ids[string(token)] = id
		}
		out[i] = id
	}
	return out
}
