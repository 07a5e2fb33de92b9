package retry_test

import (
	"fmt"
	"lcs-image-diff/internal/retry"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func identity(n int64) int64 {
	return n
}

func TestRetrySleep(t *testing.T) {
	type in struct {
		first uint
	}

	type want struct {
		first  time.Duration
		second bool
	}

	tests := []struct {
		name     string
		receiver retry.Strategy
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewNever(),
			in{
				0,
			},
			want{
				0,
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(time.Millisecond, time.Second, 0, identity),
			in{
				0,
			},
			want{
				0,
				true,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(time.Millisecond, time.Second, 5, identity),
			in{
				0,
			},
			want{
				time.Millisecond,
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(time.Millisecond, time.Second, 5, identity),
			in{
				3,
			},
			want{
				8 * time.Millisecond,
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(time.Millisecond, 5*time.Millisecond, 5, identity),
			in{
				4,
			},
			want{
				5 * time.Millisecond,
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(math.MaxInt64/2, math.MaxInt64, 100, identity),
			in{
				2,
			},
			want{
				math.MaxInt64,
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(time.Millisecond, time.Hour, 100, identity),
			in{
				70,
			},
			want{
				time.Hour,
				false,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(0, time.Second, 5, nil),
			in{
				1,
			},
			want{
				0,
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

			sleep, exceeded := receiver.Sleep(in.first)
			if diff := cmp.Diff(want.first, sleep); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.second, exceeded); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestRetrySleepJitter(t *testing.T) {
	strategy := retry.NewExponentialBackOff(time.Millisecond, time.Second, 10, nil)

	for n := uint(0); n < 10; n++ {
		sleep, exceeded := strategy.Sleep(n)
		if exceeded {
			t.Fatalf("Sleep(%d) exceeded", n)
		}
		if sleep < 0 || sleep >= strategy.Ceiling() {
			t.Errorf("Sleep(%d) = %v, want within [0, %v)", n, sleep, strategy.Ceiling())
		}
	}
}
