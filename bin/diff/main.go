package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"image"
	"image/png"
	diffimage "lcs-image-diff/internal/diff/image"
	difftext "lcs-image-diff/internal/diff/text"
	"lcs-image-diff/internal/env"
	"lcs-image-diff/internal/retry"
	"lcs-image-diff/internal/source"
	"lcs-image-diff/internal/storage"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Rows struct {
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Added     int `json:"added"`
}

type DiffOutput struct {
	DiffPath     string  `json:"diffPath"`
	BaselinePath string  `json:"baselinePath,omitempty"`
	TargetPath   string  `json:"targetPath,omitempty"`
	DiffAmount   float64 `json:"diffAmount"`
	Rows         *Rows   `json:"rows,omitempty"`
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	var directory string
	var format string
	var rate float64
	var storageBackend string
	var bucket string
	var failThreshold float64
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&format, "format", env.OrDefault("FORMAT", "lcs"), "Output format (lcs or line or dom)")
	flag.Float64Var(&rate, "rate", env.OrDefault("RATE", diffimage.DefaultRate), "Tint rate of changed rows")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "S3 bucket")
	flag.Float64Var(&failThreshold, "fail-threshold", env.OrDefault("FAIL_THRESHOLD", 0.0), "Exit with 1 when the diff amount exceeds this value (0 disables)")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("baseline, target not specified")
	}

	ctx := context.Background()
	s, err := storage.New(ctx, storage.Config{
		Backend:   storageBackend,
		Directory: directory,
		Bucket:    bucket,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	retryOn, err := retry.NewRetryOnFromString(env.OrDefault("RETRY_ON", retry.NewDefaultRetryOn().String()))
	if err != nil {
		log.Fatalf("Failed to parse RETRY_ON: %v", err)
	}

	limits := source.LimitsFromEnv()
	loader := &source.Loader{
		Limits: limits,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &retry.Transport{
				Base:          http.DefaultTransport,
				RetryStrategy: retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 3, nil),
				RetryOn:       retryOn,
			},
		},
	}
	if storageBackend == "s3" {
		loader.Storage = s
	}

	baselinePath := args[0]
	targetPath := args[1]
	seed := baselinePath + targetPath
	now := time.Now()

	var output *DiffOutput
	switch format {
	case "lcs":
		output, err = diffImages(ctx, loader, s, baselinePath, targetPath, rate, seed, now)
	case "line", "dom":
		output, err = diffTexts(ctx, loader, s, baselinePath, targetPath, format, limits.MaxRows, seed, now)
	default:
		log.Fatalf("Unknown diff type: %s", format)
	}
	if err != nil {
		log.Fatalf("Failed to diff: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}

	if failThreshold > 0 && output.DiffAmount > failThreshold {
		os.Exit(1)
	}
}

func diffImages(ctx context.Context, loader *source.Loader, s storage.Storage, baselinePath string, targetPath string, rate float64, seed string, now time.Time) (*DiffOutput, error) {
	var baselineImage image.Image
	var targetImage image.Image
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			img, err := loader.Load(ctx, baselinePath)
			if err != nil {
				return xerrors.Errorf("failed to load baseline image: %w", err)
			}
			baselineImage = img
			return nil
		})

		eg.Go(func() error {
			img, err := loader.Load(ctx, targetPath)
			if err != nil {
				return xerrors.Errorf("failed to load target image: %w", err)
			}
			targetImage = img
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	diffResult := diffimage.NewLCSDiff(rate).Calculate(baselineImage, targetImage)

	output := &DiffOutput{
		DiffAmount: diffResult.DiffAmount,
		Rows: &Rows{
			Unchanged: diffResult.Unchanged,
			Removed:   diffResult.Removed,
			Added:     diffResult.Added,
		},
	}
	{
		eg, ctx := errgroup.WithContext(ctx)

		for _, upload := range []struct {
			image image.Image
			ext   string
			path  *string
		}{
			{diffResult.Image, "png", &output.DiffPath},
			{diffResult.Baseline, "baseline.png", &output.BaselinePath},
			{diffResult.Target, "target.png", &output.TargetPath},
		} {
			eg.Go(func() error {
				var buffer bytes.Buffer
				if err := png.Encode(&buffer, upload.image); err != nil {
					return xerrors.Errorf("failed to encode %s: %w", upload.ext, err)
				}

				path, err := s.Put(ctx, storage.Key("diff", seed, upload.ext, now), buffer.Bytes())
				if err != nil {
					return xerrors.Errorf("failed to save %s: %w", upload.ext, err)
				}
				*upload.path = path
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return output, nil
}

func diffTexts(ctx context.Context, loader *source.Loader, s storage.Storage, baselinePath string, targetPath string, format string, maxTokens int, seed string, now time.Time) (*DiffOutput, error) {
	var baselineData []byte
	var targetData []byte
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			data, err := loader.Fetch(ctx, baselinePath)
			if err != nil {
				return xerrors.Errorf("failed to read baseline: %w", err)
			}
			baselineData = data
			return nil
		})

		eg.Go(func() error {
			data, err := loader.Fetch(ctx, targetPath)
			if err != nil {
				return xerrors.Errorf("failed to read target: %w", err)
			}
			targetData = data
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	var differ difftext.Differ = &difftext.LineDiff{MaxTokens: maxTokens}
	if format == "dom" {
		differ = &difftext.DOMDiff{MaxTokens: maxTokens}
	}

	diffResult, err := differ.Calculate(baselineData, targetData)
	if err != nil {
		return nil, xerrors.Errorf("failed to calculate %s diff: %w", format, err)
	}

	diffPath, err := s.Put(ctx, storage.Key("diff", seed, "txt", now), diffResult.Diff)
	if err != nil {
		return nil, xerrors.Errorf("failed to save diff: %w", err)
	}

	return &DiffOutput{
		DiffPath:   diffPath,
		DiffAmount: diffResult.DiffAmount,
	}, nil
}
