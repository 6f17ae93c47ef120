// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the PubMed client: a
// retry policy with exponential backoff and the predicate that decides
// which failures are worth another attempt.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// RetryBaseDelay is the default wait before the second attempt. Tests
// override this to avoid real sleeps.
var RetryBaseDelay = 1 * time.Second

const (
	defaultMaxAttempts = 3
	defaultMultiplier  = 2
)

// Policy describes how an operation is retried. The zero value retries
// transient failures three times in total, waiting RetryBaseDelay and then
// doubling.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// Multiplier scales the delay after each failed attempt. 1 gives a
	// fixed delay.
	Multiplier float64

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether err is worth another attempt. Nil means
	// IsTransient.
	Retryable func(error) bool

	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = RetryBaseDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = defaultMultiplier
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned unchanged. If ctx is
// cancelled during a backoff wait Do returns ctx.Err().
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.withDefaults()

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxAttempts || !p.Retryable(err) {
			return err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// StatusError reports a non-2xx HTTP response. Body holds at most the
// first kilobyte of the response for diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status is worth retrying: 429 and 5xx.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CheckStatus returns a *StatusError for non-2xx responses. The body is
// drained and closed in that case; on success it is left for the caller.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
}

// IsTransient reports whether err is a failure that may succeed on retry:
// timeouts, refused or reset connections, truncated responses, temporary
// DNS failures, and HTTP 429/5xx. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	if IsTimeout(err) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// IsTimeout reports whether err is a deadline or timeout failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// DoWithRetry executes req under policy p and returns the full response
// body. Sending the request and reading the body form one attempt, so a
// connection that drops mid-body is retried like any other transient
// failure. Requests with a body must have GetBody set (http.NewRequest
// does this for strings, bytes and url.Values readers).
//
// Non-2xx responses surface as *StatusError; 429 and 5xx are retried.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, p Policy) ([]byte, error) {
	var body []byte
	err := Do(ctx, p, func(ctx context.Context) error {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			rc, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("rewinding request body: %w", err)
			}
			attempt.Body = rc
		}

		resp, err := client.Do(attempt)
		if err != nil {
			return err
		}
		if err := CheckStatus(resp); err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
