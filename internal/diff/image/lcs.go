package image

import (
	"image"
	"lcs-image-diff/internal/lcs"
	"reflect"
)

type Row = lcs.Result[[]byte]

// RowDiff aligns the rows of baseline against the rows of target. Two rows
// match only when every channel byte, alpha included, is identical.
func RowDiff(baseline *CompareImage, target *CompareImage) []Row {
	return lcs.Bytes(baseline.EncodeRows(), target.EncodeRows())
}

type LCSDiff struct {
	rate float64
}

func NewLCSDiff(rate float64) *LCSDiff {
	return &LCSDiff{
		rate,
	}
}

func (l *LCSDiff) Calculate(baseline image.Image, target image.Image) *DiffResult {
	b := NewCompareImage(baseline)

	if sameImage(baseline, target) {
		rows := unchangedRows(b)
		return &DiffResult{
			Image:      baseline,
			Baseline:   baseline,
			Target:     target,
			Rows:       rows,
			Unchanged:  len(rows),
			DiffAmount: 0.0,
		}
	}

	t := NewCompareImage(target)
	rows := RowDiff(b, t)
	unchanged, removed, added := lcs.Count(rows)
	removedRects, addedRects := RowRectangles(rows, b.Width, t.Width)

	return &DiffResult{
		Image:      Composite(rows, b.Width, t.Width, l.rate),
		Baseline:   Mark(b, removedRects, Red, l.rate),
		Target:     Mark(t, addedRects, Green, l.rate),
		Rows:       rows,
		Unchanged:  unchanged,
		Removed:    removed,
		Added:      added,
		DiffAmount: b.DivergenceRatio(t),
	}
}

func unchangedRows(img *CompareImage) []Row {
	tokens := img.EncodeRows()
	rows := make([]Row, len(tokens))
	for i, token := range tokens {
		rows[i] = Row{Kind: lcs.Unchanged, OldIndex: i, NewIndex: i, Value: token}
	}
	return rows
}

// sameImage reports whether a and b are the same image value. Images whose
// dynamic type is not comparable are never the same.
func sameImage(a image.Image, b image.Image) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
