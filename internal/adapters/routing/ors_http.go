package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"live-navigation-service/internal/domain"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxAttempts   = 4
	maxRetryAfter = 5 * time.Second
	errBodyLimit  = 4096
)

// httpStatusError is a non-2xx answer from OpenRouteService.
type httpStatusError struct {
	Code int
	Body string
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (e *httpStatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func isClientError(err error) bool {
	var he *httpStatusError
	return errors.As(err, &he) && he.Code >= 400 && he.Code < 500 && he.Code != http.StatusTooManyRequests
}

// unavailable tags a transport or upstream failure with domain.ErrServiceUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrServiceUnavailable, err)
}

// shouldRetry covers 429, 5xx and network-level failures.
func shouldRetry(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		return he.retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryDelay prefers the server's Retry-After, capped at maxRetryAfter.
func retryDelay(err error, backoff time.Duration) time.Duration {
	var he *httpStatusError
	if errors.As(err, &he) && he.RetryAfter > 0 {
		return min(he.RetryAfter, maxRetryAfter)
	}
	return backoff
}

func parseRetryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *ORSNavigationBackend) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do sends req once and turns any status >= 400 into an *httpStatusError.
func (o *ORSNavigationBackend) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))

	return nil, &httpStatusError{
		Code:       resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// doWithRetry calls makeReq once per attempt so bodies can be replayed.
// The delay between attempts doubles from o.backoff.
func (o *ORSNavigationBackend) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := o.backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		if attempt == maxAttempts || !shouldRetry(err) {
			return nil, err
		}

		if err := sleepCtx(ctx, retryDelay(err, backoff)); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

// postJSON marshals payload once and POSTs it with retries.
func (o *ORSNavigationBackend) postJSON(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	})
}
