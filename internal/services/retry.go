package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/spotx/internal/shared"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
)

// doRequestWithRetry sends req, retrying 429 responses with exponential backoff. Transport
// failures and 5xx responses are retried only for methods that are safe to replay: a POST such
// as next or previous may already have been applied when the error arrives. A Retry-After header replaces the computed delay. When attempts run
// out the last response is returned unread so the caller can report its status.
func (s *SpotifyPlayer) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	maxRetries := s.maxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	baseBackoff := s.backoff
	if baseBackoff <= 0 {
		baseBackoff = defaultBackoff
	}

	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("reset request body: %w", err)
			}
			req.Body = body
		}

		resp, err := s.httpClient.Do(req)
		retryAfter, retry := shouldRetry(req.Method, resp, err)
		if !retry || attempt == maxRetries-1 {
			return resp, err
		}

		attemptNum := attempt + 1
		if err != nil {
			s.logger.Warn("retrying request", "attempt", attemptNum, "max", maxRetries, "path", req.URL.Path, "error", err)
		} else {
			s.logger.Warn("retrying request", "attempt", attemptNum, "max", maxRetries, "path", req.URL.Path, "status", resp.StatusCode)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
		}

		backoff := baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}

		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

// shouldRetry never retries credential failures or cancellation: neither improves with time.
func shouldRetry(method string, resp *http.Response, err error) (time.Duration, bool) {
	replayable := method != http.MethodPost
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return 0, false
		case errors.Is(err, shared.ErrRenewalRejected), errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrStorage):
			return 0, false
		}
		return 0, replayable
	}
	if resp == nil {
		return 0, false
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRetryAfter(resp), true
	case resp.StatusCode >= http.StatusInternalServerError && replayable:
		return parseRetryAfter(resp), true
	}

	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
