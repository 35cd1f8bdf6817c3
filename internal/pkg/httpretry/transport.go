// Package httpretry provides an http.RoundTripper that retries transient
// failures with exponential backoff and full jitter.
package httpretry

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Transport retries requests that fail with a network error or a
// retryable status code. Requests whose body cannot be replayed
// (GetBody is nil) are sent once.
type Transport struct {
	Base       http.RoundTripper
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewTransport wraps base (http.DefaultTransport when nil). maxRetries is
// the number of attempts after the first one and defaults to 3.
func NewTransport(base http.RoundTripper, maxRetries int) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Transport{
		Base:       base,
		MaxRetries: maxRetries,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// NewClient returns an *http.Client using a retrying transport.
func NewClient(timeout time.Duration, maxRetries int) *http.Client {
	return &http.Client{Timeout: timeout, Transport: NewTransport(nil, maxRetries)}
}

// RoundTrip implements http.RoundTripper. On the final attempt the
// response is returned as-is so the caller can read the error body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	retries := t.MaxRetries
	if req.Body != nil && req.GetBody == nil {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := req.Context().Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		r := req
		if attempt > 0 {
			delay := t.delay(attempt)
			log.Printf("httpretry: retry attempt %d/%d for %s %s%s (waiting %s)",
				attempt, retries, req.Method, req.URL.Host, req.URL.Path, delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, lastErr
			}

			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				r.Body = body
			}
		}

		resp, err := t.Base.RoundTrip(r)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == retries {
			return resp, nil
		}

		// drain for connection reuse
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}
	return nil, lastErr
}

// delay is random(0, min(MaxDelay, BaseDelay*2^(attempt-1))), at least 10ms.
func (t *Transport) delay(attempt int) time.Duration {
	exp := float64(t.BaseDelay) * math.Pow(2, float64(attempt-1))
	if t.MaxDelay > 0 && exp > float64(t.MaxDelay) {
		exp = float64(t.MaxDelay)
	}
	d := time.Duration(rand.Float64() * exp)
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

// isRetryableStatus reports 429 and the transient 5xx codes.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
