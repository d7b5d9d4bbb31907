// Package httpx holds the retry policy shared by the outbound HTTP clients
// (image generation and the SMS/MMS gateway).
package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// HTTPStatusCoder is implemented by provider errors that carry a status code.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus reports whether a response status is worth retrying.
func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether err is transient. Caller cancellation is not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// Policy configures Do.
type Policy struct {
	Name       string        // used in log lines
	MaxRetries int           // retries after the first attempt
	Initial    time.Duration // first backoff interval
	Max        time.Duration // cap for a single wait
}

// Do runs op until it succeeds, fails permanently, or retries run out.
// A Retry-After header on a retryable response overrides the computed wait.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, *http.Response, error)) (T, error) {
	if p.Initial <= 0 {
		p.Initial = time.Second
	}
	if p.Max <= 0 {
		p.Max = 10 * time.Second
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = 2
	b.RandomizationFactor = 0.2

	attempt := 0
	log := zerolog.Ctx(ctx)
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		out, resp, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRetryableError(err) {
			return out, backoff.Permanent(err)
		}
		// On the last attempt the provider error itself must surface.
		if secs := retryAfterSeconds(resp, p.Max); secs > 0 && attempt <= p.MaxRetries {
			return out, backoff.RetryAfter(secs)
		}
		return out, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn().
				Str("client", p.Name).
				Int("attempt", attempt).
				Int("max_retries", p.MaxRetries).
				Dur("sleep", d).
				Err(err).
				Msg("outbound request retrying")
		}),
	)
}

func retryAfterSeconds(resp *http.Response, max time.Duration) int {
	if resp == nil {
		return 0
	}
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	if capSecs := int(max / time.Second); capSecs > 0 && secs > capSecs {
		secs = capSecs
	}
	return secs
}
