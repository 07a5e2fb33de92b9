// Package source resolves image references given on the command line or in
// requests into decoded images.
package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"lcs-image-diff/internal/env"
	"lcs-image-diff/internal/storage"
	"net/http"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

var (
	UnsupportedSchemeError = errors.New("unsupported scheme")
	StatusError            = errors.New("unexpected status")
	TooLargeError          = errors.New("too large")
)

const defaultMaxFetchSize = 256 << 20

const (
	// DefaultMaxRows keeps the row alignment table of two images under
	// about 256MiB.
	DefaultMaxRows   = 8192
	DefaultMaxPixels = 40_000_000
)

// Limits bounds the dimensions of decoded images. Zero fields disable the
// corresponding check.
type Limits struct {
	MaxRows   int
	MaxPixels int
}

// LimitsFromEnv reads MAX_IMAGE_ROWS and MAX_IMAGE_PIXELS.
func LimitsFromEnv() Limits {
	return Limits{
		MaxRows:   env.OrDefault("MAX_IMAGE_ROWS", DefaultMaxRows),
		MaxPixels: env.OrDefault("MAX_IMAGE_PIXELS", DefaultMaxPixels),
	}
}

// Check reads only the image header of data and reports an error wrapping
// TooLargeError when the image exceeds l.
func (l Limits) Check(data []byte) error {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to decode image config: %w", err)
	}
	if l.MaxRows > 0 && config.Height > l.MaxRows {
		return xerrors.Errorf("image has %d rows, limit is %d: %w", config.Height, l.MaxRows, TooLargeError)
	}
	if l.MaxPixels > 0 && int64(config.Width)*int64(config.Height) > int64(l.MaxPixels) {
		return xerrors.Errorf("image has %dx%d pixels, limit is %d: %w", config.Width, config.Height, l.MaxPixels, TooLargeError)
	}
	return nil
}

// Decode checks data against l before decoding it.
func (l Limits) Decode(data []byte) (image.Image, string, error) {
	if l != (Limits{}) {
		if err := l.Check(data); err != nil {
			return nil, "", err
		}
	}
	return Decode(data)
}

type Loader struct {
	// Storage serves s3:// references. It may be nil.
	Storage storage.Storage
	// Limits applies to images returned by Load.
	Limits Limits
	// MaxFetchSize bounds http(s) downloads. 256MiB when zero.
	MaxFetchSize int64
	// Client serves http:// and https:// references. http.DefaultClient when nil.
	Client *http.Client
}

// Fetch returns the raw bytes behind ref: an http(s) URL, an s3:// URL or a
// local path.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "s3://"):
		if l.Storage == nil {
			return nil, xerrors.Errorf("%s: no storage configured: %w", ref, UnsupportedSchemeError)
		}
		data, err := l.Storage.Get(ctx, ref)
		if err != nil {
			return nil, xerrors.Errorf("failed to get %s: %w", ref, err)
		}
		return data, nil
	case strings.Contains(ref, "://") && !strings.HasPrefix(ref, "file://"):
		return nil, xerrors.Errorf("%s: %w", ref, UnsupportedSchemeError)
	default:
		data, err := os.ReadFile(strings.TrimPrefix(ref, "file://"))
		if err != nil {
			return nil, xerrors.Errorf("failed to read %s: %w", ref, err)
		}
		return data, nil
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to get %s: %w", ref, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, xerrors.Errorf("%s returned %d: %w", ref, response.StatusCode, StatusError)
	}

	maxFetchSize := l.MaxFetchSize
	if maxFetchSize <= 0 {
		maxFetchSize = defaultMaxFetchSize
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, maxFetchSize+1))
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", ref, err)
	}
	if int64(len(data)) > maxFetchSize {
		return nil, xerrors.Errorf("%s is larger than %d bytes: %w", ref, maxFetchSize, TooLargeError)
	}
	return data, nil
}

func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	img, _, err := l.Limits.Decode(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode %s: %w", ref, err)
	}
	return img, nil
}

// Decode decodes png, jpeg, gif, bmp, tiff or webp data and reports the
// format name.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", xerrors.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
