package retry_test

import (
	"errors"
	"fmt"
	"io"
	"lcs-image-diff/internal/retry"
	"net"
	"net/http"
	"os"
	"runtime"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustRetryOn(t *testing.T, s string) *retry.On {
	t.Helper()
	o, err := retry.NewRetryOnFromString(s)
	if err != nil {
		t.Fatalf("NewRetryOnFromString(%q) error = %v", s, err)
	}
	return o
}

func TestCheckResponse(t *testing.T) {
	type in struct {
		first *http.Response
	}

	type want struct {
		first bool
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn(t, "5xx"),
			in{
				&http.Response{StatusCode: 500},
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
			mustRetryOn(t, "5xx"),
			in{
				&http.Response{StatusCode: 404},
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
			mustRetryOn(t, "gateway-error"),
			in{
				&http.Response{StatusCode: 503},
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
			mustRetryOn(t, "gateway-error"),
			in{
				&http.Response{StatusCode: 500},
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
			mustRetryOn(t, "retriable-4xx"),
			in{
				&http.Response{StatusCode: 409},
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
			mustRetryOn(t, "rate-limited"),
			in{
				&http.Response{StatusCode: 429},
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
			mustRetryOn(t, "retriable-4xx"),
			in{
				&http.Response{StatusCode: 429},
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
			mustRetryOn(t, "418, 500"),
			in{
				&http.Response{StatusCode: 418},
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
			retry.NewDefaultRetryOn(),
			in{
				&http.Response{StatusCode: 429},
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
			retry.NewDefaultRetryOn(),
			in{
				&http.Response{StatusCode: 500},
			},
			want{
				false,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := receiver.CheckResponse(in.first); got != want.first {
				t.Errorf("CheckResponse(%d) = %t, want %t", in.first.StatusCode, got, want.first)
			}
		})
	}
}

func TestCheckError(t *testing.T) {
	type in struct {
		first error
	}

	type want struct {
		first bool
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn(t, "connect-failure"),
			in{
				&temporaryError{"fake"},
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
			mustRetryOn(t, "5xx"),
			in{
				fmt.Errorf("read: %w", io.EOF),
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
			mustRetryOn(t, "gateway-error"),
			in{
				&temporaryError{"fake"},
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
			mustRetryOn(t, "connect-failure"),
			in{
				errors.New("fake"),
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
			mustRetryOn(t, "connect-failure"),
			in{
				&net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}},
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
			retry.NewDefaultRetryOn(),
			in{
				fmt.Errorf("read: %w", syscall.ECONNRESET),
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
			mustRetryOn(t, "rate-limited"),
			in{
				syscall.ECONNREFUSED,
			},
			want{
				false,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := receiver.CheckError(in.first); got != want.first {
				t.Errorf("CheckError(%v) = %t, want %t", in.first, got, want.first)
			}
		})
	}
}

func TestNewRetryOnFromStringInvalid(t *testing.T) {
	for _, s := range []string{"sometimes", "42", "5xx,abc"} {
		if _, err := retry.NewRetryOnFromString(s); err == nil {
			t.Errorf("NewRetryOnFromString(%q) succeeded", s)
		}
	}
}

func TestRetryOnString(t *testing.T) {
	if diff := cmp.Diff("gateway-error,connect-failure,retriable-4xx,rate-limited", retry.NewDefaultRetryOn().String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	o := mustRetryOn(t, " 418 ,5xx,, rate-limited")
	if diff := cmp.Diff("5xx,rate-limited,418", o.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(o.String(), mustRetryOn(t, o.String()).String()); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}
