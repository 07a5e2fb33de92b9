package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/xerrors"
)

type condition uint8

const (
	on5xx condition = 1 << iota
	onGatewayError
	onConnectFailure
	onRetriable4xx
	onRateLimited
)

// Names follow envoy's x-envoy-retry-on, plus rate-limited for 429.
var conditionNames = []struct {
	condition condition
	name      string
}{
	{on5xx, "5xx"},
	{onGatewayError, "gateway-error"},
	{onConnectFailure, "connect-failure"},
	{onRetriable4xx, "retriable-4xx"},
	{onRateLimited, "rate-limited"},
}

// On decides which failed round trips are retried.
type On struct {
	conditions  condition
	statusCodes []int
}

func NewDefaultRetryOn() *On {
	return &On{
		conditions: onGatewayError | onConnectFailure | onRetriable4xx | onRateLimited,
	}
}

// NewRetryOnFromString parses a comma separated list of condition names and
// status codes, e.g. "gateway-error,connect-failure,429".
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
next:
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		for _, c := range conditionNames {
			if c.name == item {
				o.conditions |= c.condition
				continue next
			}
		}
		statusCode, err := strconv.Atoi(item)
		if err != nil || statusCode < 100 || statusCode > 599 {
			return nil, xerrors.Errorf("invalid retryOn: %s", item)
		}
		o.statusCodes = append(o.statusCodes, statusCode)
	}
	return o, nil
}

// String renders o in the form accepted by NewRetryOnFromString.
func (o *On) String() string {
	var items []string
	for _, c := range conditionNames {
		if o.has(c.condition) {
			items = append(items, c.name)
		}
	}
	for _, statusCode := range o.statusCodes {
		items = append(items, strconv.Itoa(statusCode))
	}
	return strings.Join(items, ",")
}

func (o *On) has(c condition) bool {
	return o.conditions&c != 0
}

// copy from https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (o *On) CheckResponse(response *http.Response) bool {
	switch code := response.StatusCode; {
	case o.has(on5xx) && code >= 500 && code < 600,
		o.has(onGatewayError) && code >= 502 && code < 505,
		o.has(onRetriable4xx) && code == http.StatusConflict,
		o.has(onRateLimited) && code == http.StatusTooManyRequests:
		return true
	}

	for _, statusCode := range o.statusCodes {
		if statusCode == response.StatusCode {
			return true
		}
	}
	return false
}

// CheckError reports whether a transport error counts as a connect failure:
// a temporary error, a refused or reset connection, or a truncated response.
func (o *On) CheckError(err error) bool {
	if !o.has(onConnectFailure) && !o.has(on5xx) {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
