package retry

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests on the failures selected by RetryOn, waiting
// as RetryStrategy says. A 429 or 503 carrying Retry-After in seconds waits
// that long instead, capped by the strategy's ceiling when it has one.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

type contextKey string

const retryCountContextKey contextKey = "retryCountKey"

// RetryCount reports how many retries preceded the request carrying ctx.
func RetryCount(ctx context.Context) uint {
	v := ctx.Value(retryCountContextKey)

	i, ok := v.(uint)
	if !ok {
		return 0
	}

	return i
}

func setRetryCount(ctx context.Context, retryCount uint) context.Context {
	return context.WithValue(ctx, retryCountContextKey, retryCount)
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	for retryCount := RetryCount(request.Context()); ; retryCount++ {
		sleep, exceeded := t.retryStrategy().Sleep(retryCount)

		response, err := t.base().RoundTrip(request)
		if exceeded || t.RetryOn == nil {
			return response, err
		}
		if err != nil && !t.RetryOn.CheckError(err) {
			return nil, err
		}
		if err == nil && !t.RetryOn.CheckResponse(response) {
			return response, nil
		}

		next, rerr := rewind(request)
		if rerr != nil {
			return response, err
		}
		if response != nil {
			if after, ok := retryAfter(response); ok {
				sleep = t.capDelay(after)
			}
			discard(response)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-request.Context().Done():
			timer.Stop()
			return nil, request.Context().Err()
		case <-timer.C:
		}
		request = next.WithContext(setRetryCount(next.Context(), retryCount+1))
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}

func (t *Transport) capDelay(d time.Duration) time.Duration {
	type ceiling interface{ Ceiling() time.Duration }
	if c, ok := t.retryStrategy().(ceiling); ok {
		return min(d, c.Ceiling())
	}
	return d
}

func (t *Transport) CancelRequest(request *http.Request) {
	type canceler interface {
		CancelRequest(*http.Request)
	}
	if cr, ok := t.base().(canceler); ok {
		cr.CancelRequest(request)
	}
}

func retryAfter(response *http.Response) (time.Duration, bool) {
	if response.StatusCode != http.StatusTooManyRequests && response.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(response.Header.Get("Retry-After")))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// discard lets the connection be reused.
func discard(response *http.Response) {
	if response.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4<<10))
	_ = response.Body.Close()
}

// rewind returns a copy of request whose body can be sent again.
func rewind(request *http.Request) (*http.Request, error) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, nil
	}
	if request.GetBody == nil {
		return nil, xerrors.New("request body cannot be replayed")
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to replay request body: %w", err)
	}
	next := request.Clone(request.Context())
	next.Body = body
	return next, nil
}
