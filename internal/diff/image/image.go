package image

import "image"

type DiffResult struct {
	Image      image.Image
	Baseline   image.Image
	Target     image.Image
	Rows       []Row
	Unchanged  int
	Removed    int
	Added      int
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) *DiffResult
}
