package image

import (
	"image"
	"lcs-image-diff/internal/lcs"
)

// Composite stacks one output row per alignment entry. Removed rows are
// tinted red and added rows green; rows narrower than the composite leave
// the rest of the line transparent.
func Composite(rows []Row, baselineWidth int, targetWidth int, rate float64) *image.NRGBA {
	width := max(baselineWidth, targetWidth, 0)
	out := image.NewNRGBA(image.Rect(0, 0, width, len(rows)))
	rate = clampRate(rate)

	for y, row := range rows {
		offset := out.PixOffset(0, y)
		line := out.Pix[offset : offset+width*4]
		n := copy(line, row.Value)

		switch row.Kind {
		case lcs.Removed:
			blendRow(line[:n], Red, rate)
		case lcs.Added:
			blendRow(line[:n], Green, rate)
		}
	}
	return out
}
