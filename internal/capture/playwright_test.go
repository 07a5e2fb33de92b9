package capture

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/playwright-community/playwright-go"
)

func TestScreenshotOptions(t *testing.T) {
	type in struct {
		first PlaywrightConfig
	}

	type want struct {
		first  *playwright.ScreenshotType
		second *int
		third  string
	}

	tests := []struct {
		name            string
		in              in
		want            want
		wantErrorString string
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				DefaultPlaywrightConfig(),
			},
			want{
				playwright.ScreenshotTypePng,
				nil,
				"png",
			},
			"",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				PlaywrightConfig{Format: "jpeg", Quality: 70},
			},
			want{
				playwright.ScreenshotTypeJpeg,
				playwright.Int(70),
				"jpeg",
			},
			"",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				PlaywrightConfig{Format: "gif"},
			},
			want{},
			"unknown screenshot format: gif",
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		wantErrorString := tt.wantErrorString
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			options, format, err := screenshotOptions(in.first)
			if wantErrorString != "" {
				if err == nil || err.Error() != wantErrorString {
					t.Fatalf("err = %v, want %q", err, wantErrorString)
				}
				return
			}
			if err != nil {
				t.Fatalf("screenshotOptions() error = %v", err)
			}
			if diff := cmp.Diff(want.first, options.Type); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.second, options.Quality); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.third, format); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestMaskScript(t *testing.T) {
	script := maskScript("mask-0123")

	for _, s := range []string{`classList.add("mask-0123")`, `.mask-0123::after`, "(selectors) =>"} {
		if !strings.Contains(script, s) {
			t.Errorf("mask script does not contain %q:\n%s", s, script)
		}
	}
}
