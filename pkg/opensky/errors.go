package opensky

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind splits upstream failures into the two classes the refresh
// pipeline cares about: transient conditions worth retrying with backoff,
// and fatal conditions that must surface immediately.
type ErrorKind int

const (
	// KindTransient covers rate limiting, 5xx responses and transport
	// timeouts. Retried by the caller's backoff policy.
	KindTransient ErrorKind = iota

	// KindFatal covers auth rejection, client errors other than 429/404 and
	// malformed payloads. Never retried within a cycle.
	KindFatal
)

func (k ErrorKind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "fatal"
}

// UpstreamError is a classified failure from the OpenSky API.
type UpstreamError struct {
	Kind       ErrorKind
	StatusCode int // 0 for transport-level failures

	// RetryAfter is the server-requested wait from a 429 response,
	// 0 when absent.
	RetryAfter time.Duration

	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s, retry after %v", msg, e.RetryAfter)
	}
	if e.Err != nil {
		return fmt.Sprintf("opensky: %s: %v", msg, e.Err)
	}
	return "opensky: " + msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Classified upstream
// errors answer by kind; bare network timeouts count as transient; anything
// else is treated as fatal.
func IsTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind == KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// classifyStatus turns a non-success HTTP response into an UpstreamError.
func classifyStatus(resp *http.Response, body string) *UpstreamError {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &UpstreamError{
			Kind:       KindTransient,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "rate limit exceeded",
		}
	case resp.StatusCode >= 500:
		return &UpstreamError{
			Kind:       KindTransient,
			StatusCode: resp.StatusCode,
			Message:    "server error: " + body,
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &UpstreamError{
			Kind:       KindFatal,
			StatusCode: resp.StatusCode,
			Message:    "authentication rejected",
		}
	default:
		return &UpstreamError{
			Kind:       KindFatal,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response: " + body,
		}
	}
}

// transportError wraps a failed round trip. Timeouts and temporary network
// conditions are transient; everything else fatal.
func transportError(err error) *UpstreamError {
	kind := KindFatal
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		kind = KindTransient
	} else {
		// Connection resets and refused connections come through as
		// *net.OpError without the timeout flag; still worth retrying.
		var oe *net.OpError
		if errors.As(err, &oe) {
			kind = KindTransient
		}
	}
	return &UpstreamError{Kind: kind, Message: "request failed", Err: err}
}

// parseRetryAfter extracts the Retry-After header, supporting both
// delay-seconds and HTTP-date formats. Returns 0 when absent or invalid.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}
