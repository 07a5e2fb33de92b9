package image

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/xerrors"
)

var InvalidDimensionsError = errors.New("invalid dimensions")

// CompareImage is a borrowed, row-major view of non-premultiplied RGBA
// pixels, four bytes per pixel.
type CompareImage struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewCompareImage(img image.Image) *CompareImage {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if bounds.Empty() {
		return &CompareImage{Width: width, Height: height}
	}

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == width*4 {
		offset := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y)
		return &CompareImage{
			Width:  width,
			Height: height,
			Pix:    nrgba.Pix[offset : offset+height*nrgba.Stride],
		}
	}

	pix := make([]uint8, width*height*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pix[i] = c.R
			pix[i+1] = c.G
			pix[i+2] = c.B
			pix[i+3] = c.A
			i += 4
		}
	}
	return &CompareImage{
		Width:  width,
		Height: height,
		Pix:    pix,
	}
}

// EncodeRows splits Pix into one token per row of Width*4 bytes. A trailing
// partial row is dropped and a zero-width image has no rows. Tokens share
// memory with Pix.
func (c *CompareImage) EncodeRows() [][]byte {
	stride := c.Width * 4
	if stride <= 0 {
		return nil
	}

	rows := make([][]byte, 0, len(c.Pix)/stride)
	for offset := 0; offset+stride <= len(c.Pix); offset += stride {
		rows = append(rows, c.Pix[offset:offset+stride:offset+stride])
	}
	return rows
}

func (c *CompareImage) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return xerrors.Errorf("%dx%d: %w", c.Width, c.Height, InvalidDimensionsError)
	}
	if want := c.Width * c.Height * 4; len(c.Pix) != want {
		return xerrors.Errorf("%d bytes of pixel data for %dx%d, want %d: %w", len(c.Pix), c.Width, c.Height, want, InvalidDimensionsError)
	}
	return nil
}

// NRGBA copies the view into a new image.
func (c *CompareImage) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, max(c.Width, 0), max(c.Height, 0)))
	copy(out.Pix, c.Pix)
	return out
}
