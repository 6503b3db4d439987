package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"apm-exporter/internal/model"
)

// Fetcher sends one query for one application and returns the raw response body
type Fetcher interface {
	Fetch(ctx context.Context, appID string, query QueryDescriptor, creds model.Credentials) ([]byte, error)
}

// HTTPFetcher posts queries to the DashboardCustomGraphDraw endpoint
type HTTPFetcher struct {
	endpoint string
	timeout  time.Duration
	retry    model.RetryConfig
	client   *http.Client
	logger   *slog.Logger

	// OnRetry, if set, is called before each retry after the warning is logged
	OnRetry RetryNotify
}

// NewHTTPFetcher creates a fetcher from opts. A nil client gets a default one with opts.Timeout.
func NewHTTPFetcher(opts Options, client *http.Client, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		endpoint: opts.Endpoint,
		timeout:  opts.Timeout,
		retry:    opts.Retry,
		client:   client,
		logger:   logger,
	}
}

// Fetch posts query with the app id and session as headers.
// Transport failures are retried with exponential backoff; a timeout fails at once.
// Any delivered body is returned as is, whatever the HTTP status.
func (f *HTTPFetcher) Fetch(ctx context.Context, appID string, query QueryDescriptor, creds model.Credentials) ([]byte, error) {
	payload, err := query.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	var body []byte
	attempts, err := retry(ctx, f.retry, func(attempt int) error {
		b, err := f.do(ctx, appID, payload, creds)
		if err == nil {
			body = b
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(&TransportFailure{Attempts: attempt, Err: ctx.Err()})
		}
		if isTimeout(err) {
			return backoff.Permanent(&TransportFailure{Attempts: attempt, Timeout: true, Err: err})
		}
		return err
	}, func(attempt int, err error, wait time.Duration) {
		f.logger.Warn("request failed, retrying",
			"app_id", appID,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
		if f.OnRetry != nil {
			f.OnRetry(attempt, err, wait)
		}
	})
	if err == nil {
		return body, nil
	}

	var failure *TransportFailure
	if errors.As(err, &failure) {
		return nil, failure
	}
	return nil, &TransportFailure{Attempts: attempts, Err: err}
}

func (f *HTTPFetcher) do(ctx context.Context, appID string, payload []byte, creds model.Credentials) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(&TransportFailure{Attempts: 1, Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("x-csrf-token", creds.Token)
	req.Header.Set("x-app-ids", appID)
	req.Header.Set("Cookie", creds.Cookie)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
