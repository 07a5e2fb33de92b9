package capture

import (
	"context"
)

type CaptureResult struct {
	Screenshot []byte
	HTML       []byte
	// Format is the screenshot encoding, "png" or "jpeg".
	Format string
}

type CaptureOptions struct {
	Headers       map[string]string
	UserAgent     string
	MaskSelectors []string
}

type Capturer interface {
	Capture(ctx context.Context, url string, captureOptions CaptureOptions) (*CaptureResult, error)
}
