package image

import (
	"image"
	"image/color"
	"lcs-image-diff/internal/lcs"
	"math"
	"sort"
)

var (
	Red   = color.NRGBA{R: 255, G: 119, B: 119, A: 255}
	Green = color.NRGBA{R: 99, G: 195, B: 99, A: 255}
)

// DefaultRate is how strongly changed rows are tinted.
const DefaultRate = 100.0 / 256.0

type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RowRectangles turns the removed rows of the baseline and the added rows of
// the target into full-width bands.
func RowRectangles(rows []Row, baselineWidth int, targetWidth int) (removed []Rectangle, added []Rectangle) {
	for _, row := range rows {
		switch row.Kind {
		case lcs.Removed:
			removed = append(removed, Rectangle{X: 0, Y: row.OldIndex, Width: baselineWidth, Height: 1})
		case lcs.Added:
			added = append(added, Rectangle{X: 0, Y: row.NewIndex, Width: targetWidth, Height: 1})
		}
	}
	return mergeRectangles(removed), mergeRectangles(added)
}

func mergeRectangles(rects []Rectangle) []Rectangle {
	if len(rects) <= 1 {
		return rects
	}

	sorted := make([]Rectangle, len(rects))
	copy(sorted, rects)
	sort.Slice(sorted, func(i int, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	merged := make([]Rectangle, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if rectanglesOverlap(current, next) || rectanglesTouch(current, next) {
			current = combineRectangles(current, next)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

func rectanglesOverlap(r1 Rectangle, r2 Rectangle) bool {
	return !(r1.X+r1.Width <= r2.X || r2.X+r2.Width <= r1.X ||
		r1.Y+r1.Height <= r2.Y || r2.Y+r2.Height <= r1.Y)
}

// rectanglesTouch reports whether two bands with the same horizontal extent
// are vertically adjacent.
func rectanglesTouch(r1 Rectangle, r2 Rectangle) bool {
	if r1.X != r2.X || r1.Width != r2.Width {
		return false
	}
	return r1.Y+r1.Height == r2.Y || r2.Y+r2.Height == r1.Y
}

func combineRectangles(r1 Rectangle, r2 Rectangle) Rectangle {
	minX := min(r1.X, r2.X)
	minY := min(r1.Y, r2.Y)
	maxX := max(r1.X+r1.Width, r2.X+r2.Width)
	maxY := max(r1.Y+r1.Height, r2.Y+r2.Height)

	return Rectangle{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Mark returns a copy of img with every pixel inside rects blended toward c.
// Rectangles are clipped to the image.
func Mark(img *CompareImage, rects []Rectangle, c color.NRGBA, rate float64) *image.NRGBA {
	out := img.NRGBA()
	bounds := out.Bounds()
	rate = clampRate(rate)

	for _, rect := range rects {
		area := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height).Intersect(bounds)
		for y := area.Min.Y; y < area.Max.Y; y++ {
			offset := out.PixOffset(area.Min.X, y)
			blendRow(out.Pix[offset:offset+area.Dx()*4], c, rate)
		}
	}
	return out
}

func blendRow(pix []uint8, c color.NRGBA, rate float64) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = blend(pix[i], c.R, rate)
		pix[i+1] = blend(pix[i+1], c.G, rate)
		pix[i+2] = blend(pix[i+2], c.B, rate)
	}
}

func blend(base uint8, tint uint8, rate float64) uint8 {
	return uint8(float64(base)*(1-rate) + float64(tint)*rate + 0.5)
}

func clampRate(rate float64) float64 {
	if rate < 0 || math.IsNaN(rate) {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
