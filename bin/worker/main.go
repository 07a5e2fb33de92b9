package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"lcs-image-diff/internal/capture"
	diffimage "lcs-image-diff/internal/diff/image"
	difftext "lcs-image-diff/internal/diff/text"
	"lcs-image-diff/internal/env"
	"lcs-image-diff/internal/retry"
	"lcs-image-diff/internal/source"
	"lcs-image-diff/internal/storage"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type WorkerOutput struct {
	BaselineURL          string  `json:"baselineURL"`
	TargetURL            string  `json:"targetURL"`
	BaselineHTMLURL      string  `json:"baselineHTMLURL"`
	TargetHTMLURL        string  `json:"targetHTMLURL"`
	ScreenshotDiffURL    string  `json:"screenshotDiffURL"`
	MarkedBaselineURL    string  `json:"markedBaselineURL"`
	MarkedTargetURL      string  `json:"markedTargetURL"`
	ScreenshotDiffAmount float64 `json:"screenshotDiffAmount"`
	UnchangedRows        int     `json:"unchangedRows"`
	RemovedRows          int     `json:"removedRows"`
	AddedRows            int     `json:"addedRows"`
	HTMLDiffURL          string  `json:"htmlDiffURL"`
	HTMLDiffAmount       float64 `json:"htmlDiffAmount"`
}

type Worker struct {
	Capturer       capture.Capturer
	Storage        storage.Storage
	CaptureOptions capture.CaptureOptions
	Rate           float64
	HTMLDiffFormat string
	Limits         source.Limits
	Now            func() time.Time
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	var screenshotFormat string
	var chromeDevtoolsProtocolURL string
	var rate float64
	var htmlDiffFormat string
	var storageBackend string
	var directory string
	var bucket string
	var callbackURL string
	var userAgent string
	var maskSelectors string
	flag.StringVar(&screenshotFormat, "screenshot-format", env.OrDefault("SCREENSHOT_FORMAT", "png"), "Screenshot format (png or jpeg)")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Float64Var(&rate, "rate", env.OrDefault("RATE", diffimage.DefaultRate), "Tint rate of changed rows")
	flag.StringVar(&htmlDiffFormat, "html-diff-format", env.OrDefault("HTML_DIFF_FORMAT", "line"), "Diff format (line or dom)")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory of the file backend")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "Bucket of the s3 backend")
	flag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Callback URL to send results to")
	flag.StringVar(&userAgent, "user-agent", env.OrDefault("USER_AGENT", ""), "User agent of the browser")
	flag.StringVar(&maskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", ""), "Comma separated CSS selectors hidden before capturing")

	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		os.Exit(1)
	}

	baseline := args[0]
	target := args[1]

	ctx := context.Background()

	config := capture.DefaultPlaywrightConfig()
	if screenshotFormat != "" {
		config.Format = screenshotFormat
	}
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	}

	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		log.Fatalf("failed to install playwright browsers: %v", err)
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, config)
	if err != nil {
		log.Fatalf("failed to initialize capturer: %v", err)
	}

	s, err := storage.New(ctx, storage.Config{
		Backend:   storageBackend,
		Directory: directory,
		Bucket:    bucket,
	})
	if err != nil {
		log.Fatalf("failed to create storage backend: %v", err)
	}

	worker := &Worker{
		Capturer: capturer,
		Storage:  s,
		CaptureOptions: capture.CaptureOptions{
			UserAgent:     userAgent,
			MaskSelectors: splitList(maskSelectors),
		},
		Rate:           rate,
		HTMLDiffFormat: htmlDiffFormat,
		Limits:         source.LimitsFromEnv(),
		Now:            time.Now,
	}

	result, err := worker.processSnapshot(ctx, baseline, target)
	if err != nil {
		log.Fatalf("failed to process snapshot: %v", err)
	}

	j, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal result: %v", err)
	}

	if callbackURL == "" {
		fmt.Println(string(j))
	} else {
		retryOn, err := retry.NewRetryOnFromString(env.OrDefault("RETRY_ON", retry.NewDefaultRetryOn().String()))
		if err != nil {
			log.Fatalf("failed to parse RETRY_ON: %v", err)
		}
		if err := callback(ctx, http.DefaultTransport, retryOn, callbackURL, j); err != nil {
			log.Fatalf("failed to send callback: %v", err)
		}
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (w *Worker) processSnapshot(ctx context.Context, baseline string, target string) (*WorkerOutput, error) {
	var baselineResult *capture.CaptureResult
	var targetResult *capture.CaptureResult

	// Step 1: Capture pages in parallel
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			result, err := w.Capturer.Capture(ctx, baseline, w.CaptureOptions)
			if err != nil {
				return xerrors.Errorf("failed to capture baseline screenshot: %w", err)
			}
			baselineResult = result
			return nil
		})

		eg.Go(func() error {
			result, err := w.Capturer.Capture(ctx, target, w.CaptureOptions)
			if err != nil {
				return xerrors.Errorf("failed to capture target screenshot: %w", err)
			}
			targetResult = result
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	// Step 2: Align screenshot rows
	diffResult, err := w.generateDiff(baselineResult.Screenshot, targetResult.Screenshot)
	if err != nil {
		return nil, xerrors.Errorf("failed to generate diff: %w", err)
	}

	// Step 3: Diff HTML
	htmlDiff, htmlDiffAmount, err := w.generateHTMLDiff(baselineResult.HTML, targetResult.HTML)
	if err != nil {
		return nil, xerrors.Errorf("failed to generate HTML diff: %w", err)
	}

	// Step 4: Upload every artifact in parallel
	now := w.Now()
	seed := baseline + target
	output := &WorkerOutput{
		ScreenshotDiffAmount: diffResult.DiffAmount,
		UnchangedRows:        diffResult.Unchanged,
		RemovedRows:          diffResult.Removed,
		AddedRows:            diffResult.Added,
		HTMLDiffAmount:       htmlDiffAmount,
	}
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			imageURL, htmlURL, err := w.uploadCapture(ctx, baseline, baselineResult, now)
			if err != nil {
				return err
			}
			output.BaselineURL = imageURL
			output.BaselineHTMLURL = htmlURL
			return nil
		})

		eg.Go(func() error {
			imageURL, htmlURL, err := w.uploadCapture(ctx, target, targetResult, now)
			if err != nil {
				return err
			}
			output.TargetURL = imageURL
			output.TargetHTMLURL = htmlURL
			return nil
		})

		for _, upload := range []struct {
			image image.Image
			ext   string
			url   *string
		}{
			{diffResult.Image, "png", &output.ScreenshotDiffURL},
			{diffResult.Baseline, "baseline.png", &output.MarkedBaselineURL},
			{diffResult.Target, "target.png", &output.MarkedTargetURL},
		} {
			eg.Go(func() error {
				var buffer bytes.Buffer
				if err := png.Encode(&buffer, upload.image); err != nil {
					return xerrors.Errorf("failed to encode %s: %w", upload.ext, err)
				}

				url, err := w.Storage.Put(ctx, storage.Key("diff", seed, upload.ext, now), buffer.Bytes())
				if err != nil {
					return xerrors.Errorf("failed to upload %s: %w", upload.ext, err)
				}
				*upload.url = url
				return nil
			})
		}

		eg.Go(func() error {
			url, err := w.Storage.Put(ctx, storage.Key("diff", seed, "txt", now), htmlDiff)
			if err != nil {
				return xerrors.Errorf("failed to upload HTML diff: %w", err)
			}
			output.HTMLDiffURL = url
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return output, nil
}

func (w *Worker) uploadCapture(ctx context.Context, url string, result *capture.CaptureResult, now time.Time) (string, string, error) {
	var imageURL string
	var htmlURL string
	{
		eg, ctx := errgroup.WithContext(ctx)

		format := result.Format
		if format == "" {
			format = "png"
		}

		eg.Go(func() error {
			path, err := w.Storage.Put(ctx, storage.Key("capture", url, format, now), result.Screenshot)
			if err != nil {
				return xerrors.Errorf("failed to upload screenshot: %w", err)
			}
			imageURL = path
			return nil
		})

		eg.Go(func() error {
			path, err := w.Storage.Put(ctx, storage.Key("capture", url, "html", now), result.HTML)
			if err != nil {
				return xerrors.Errorf("failed to upload HTML: %w", err)
			}
			htmlURL = path
			return nil
		})

		if err := eg.Wait(); err != nil {
			return "", "", err
		}
	}

	return imageURL, htmlURL, nil
}

func (w *Worker) generateDiff(baselineData []byte, targetData []byte) (*diffimage.DiffResult, error) {
	baselineImage, _, err := w.Limits.Decode(baselineData)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode baseline image: %w", err)
	}

	targetImage, _, err := w.Limits.Decode(targetData)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode target image: %w", err)
	}

	return diffimage.NewLCSDiff(w.Rate).Calculate(baselineImage, targetImage), nil
}

func (w *Worker) generateHTMLDiff(baselineHTML []byte, targetHTML []byte) ([]byte, float64, error) {
	var differ difftext.Differ
	switch w.HTMLDiffFormat {
	case "line":
		differ = &difftext.LineDiff{MaxTokens: w.Limits.MaxRows}
	case "dom":
		differ = &difftext.DOMDiff{MaxTokens: w.Limits.MaxRows}
	default:
		return nil, 0.0, xerrors.Errorf("unknown HTML diff format: %s", w.HTMLDiffFormat)
	}

	diffResult, err := differ.Calculate(baselineHTML, targetHTML)
	if err != nil {
		return nil, 0.0, xerrors.Errorf("failed to calculate HTML diff: %w", err)
	}
	return diffResult.Diff, diffResult.DiffAmount, nil
}

func callback(ctx context.Context, base http.RoundTripper, retryOn *retry.On, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 5 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: &retry.Transport{
			Base:          base,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retryOn,
		},
	}

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return xerrors.Errorf("callback answered %d", response.StatusCode)
	}
	return nil
}
