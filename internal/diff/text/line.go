package text

import (
	"bytes"
	"lcs-image-diff/internal/lcs"
)

type LineDiff struct {
	// MaxTokens caps the line count of each input. 0 disables the check.
	MaxTokens int
}

func NewLineDiff() *LineDiff {
	return &LineDiff{}
}

func (h *LineDiff) Calculate(baseline []byte, target []byte) (*DiffResult, error) {
	beforeLines := h.splitLines(baseline)
	afterLines := h.splitLines(target)
	if err := checkTokens(h.MaxTokens, len(beforeLines), len(afterLines)); err != nil {
		return nil, err
	}

	results := lcs.Bytes(beforeLines, afterLines)
	diff := render(results, "  ", "- ", "+ ")

	_, removedCount, addedCount := lcs.Count(results)
	return &DiffResult{
		Diff:       diff,
		DiffAmount: changedRatio(addedCount+removedCount, len(beforeLines)+len(afterLines)),
	}, nil
}

func (h *LineDiff) splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{}
	}
	return bytes.Split(data, []byte("\n"))
}

func render(results []lcs.Result[[]byte], unchanged string, removed string, added string) []byte {
	var result bytes.Buffer
	for i, r := range results {
		if i > 0 {
			result.WriteByte('\n')
		}
		switch r.Kind {
		case lcs.Removed:
			result.WriteString(removed)
		case lcs.Added:
			result.WriteString(added)
		default:
			result.WriteString(unchanged)
		}
		result.Write(r.Value)
	}
	return result.Bytes()
}

func changedRatio(changed int, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return min(float64(changed)/float64(total), 1.0)
}

var _ Differ = (*LineDiff)(nil)
