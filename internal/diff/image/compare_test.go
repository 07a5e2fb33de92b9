package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		fillRow(img, y, c)
	}
	return img
}

func fillRow(img *image.NRGBA, y int, c color.NRGBA) {
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func TestNewCompareImage(t *testing.T) {
	type in struct {
		first image.Image
	}

	type want struct {
		first *CompareImage
	}

	subImage := createTestImage(3, 2, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	subImage.Set(1, 1, color.NRGBA{R: 9, G: 8, B: 7, A: 6})

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.Set(1, 0, color.Gray{Y: 200})

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				createTestImage(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 4}),
			},
			want{
				&CompareImage{Width: 2, Height: 1, Pix: []uint8{1, 2, 3, 4, 1, 2, 3, 4}},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				subImage.SubImage(image.Rect(1, 1, 2, 2)),
			},
			want{
				&CompareImage{Width: 1, Height: 1, Pix: []uint8{9, 8, 7, 6}},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				rgba,
			},
			want{
				&CompareImage{Width: 1, Height: 1, Pix: []uint8{10, 20, 30, 255}},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				gray,
			},
			want{
				&CompareImage{Width: 2, Height: 1, Pix: []uint8{0, 0, 0, 255, 200, 200, 200, 255}},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				image.NewNRGBA(image.Rect(0, 0, 0, 0)),
			},
			want{
				&CompareImage{Width: 0, Height: 0},
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := NewCompareImage(in.first)
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeRows(t *testing.T) {
	type in struct {
		first *CompareImage
	}

	type want struct {
		first [][]byte
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{Width: 1, Height: 2, Pix: []uint8{1, 2, 3, 4, 5, 6, 7, 8}},
			},
			want{
				[][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{Width: 2, Height: 2, Pix: []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
			},
			want{
				[][]byte{{1, 2, 3, 4, 5, 6, 7, 8}},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{Width: 0, Height: 3},
			},
			want{
				nil,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := in.first.EncodeRows()
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeRowsDoesNotAlias(t *testing.T) {
	img := &CompareImage{Width: 1, Height: 2, Pix: []uint8{1, 2, 3, 4, 5, 6, 7, 8}}

	rows := img.EncodeRows()
	rows[0] = append(rows[0], 0xff)

	if diff := cmp.Diff([]uint8{1, 2, 3, 4, 5, 6, 7, 8}, img.Pix); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	type in struct {
		first *CompareImage
	}

	type want struct {
		first bool
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{Width: 1, Height: 1, Pix: []uint8{1, 2, 3, 4}},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{},
			},
			want{
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{Width: 2, Height: 1, Pix: []uint8{1, 2, 3, 4}},
			},
			want{
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				&CompareImage{Width: -1, Height: 1},
			},
			want{
				true,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := in.first.Validate()
			if got := errors.Is(err, InvalidDimensionsError); got != want.first {
				t.Errorf("errors.Is(%v, InvalidDimensionsError) = %t, want %t", err, got, want.first)
			}
		})
	}
}
