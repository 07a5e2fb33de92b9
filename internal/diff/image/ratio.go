package image

import (
	"image"
	"runtime"
	"sync"
	"sync/atomic"
)

const minPixelsPerWorker = 16 * 1024

// DivergenceRatio is the mean absolute difference of the R, G and B channels
// of a and b, normalized to [0,1]. Alpha is ignored. Pixels are paired by
// position and pairing stops at the shorter image.
func DivergenceRatio(a image.Image, b image.Image) float64 {
	return NewCompareImage(a).DivergenceRatio(NewCompareImage(b))
}

func (c *CompareImage) DivergenceRatio(other *CompareImage) float64 {
	pixels := min(len(c.Pix), len(other.Pix)) / 4
	if pixels == 0 {
		return 0.0
	}

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := min(runtime.GOMAXPROCS(0), (pixels+minPixelsPerWorker-1)/minPixelsPerWorker)
	pixelsPerWorker := pixels / numWorkers

	var total atomic.Uint64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		start := i * pixelsPerWorker
		end := start + pixelsPerWorker
		if i == numWorkers-1 {
			end = pixels
		}

		go func(start int, end int) {
			defer wg.Done()
			total.Add(sumAbsRGB(c.Pix[start*4:end*4], other.Pix[start*4:end*4]))
		}(start, end)
	}

	wg.Wait()

	return float64(total.Load()) / (255.0 * float64(pixels*3))
}

func sumAbsRGB(a []uint8, b []uint8) uint64 {
	var sum uint64
	for i := 0; i+3 < len(a); i += 4 {
		sum += absDiff(a[i], b[i]) + absDiff(a[i+1], b[i+1]) + absDiff(a[i+2], b[i+2])
	}
	return sum
}

func absDiff(x uint8, y uint8) uint64 {
	if x > y {
		return uint64(x - y)
	}
	return uint64(y - x)
}
