package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"renewshare/pkg/metrics"
)

const userAgent = "renewshare/1.0"

// FetchBytes issues a GET and returns the response body, retrying with
// exponential backoff up to maxRetries additional attempts. Non-429 4xx
// statuses fail immediately as PermanentError; 5xx, 429 and transport errors
// are retried and surface as TransientError once retries run out. The
// per-request timeout comes from the client; ctx bounds the whole operation
// including backoff sleeps.
func FetchBytes(ctx context.Context, client *http.Client, source, url string, maxRetries int, collector *metrics.Collector) ([]byte, error) {
	var body []byte
	attempt := 0

	operation := func() error {
		if attempt > 0 && collector != nil {
			collector.RecordFetchRetry(source)
		}
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(&PermanentError{Source: source, Op: "build request", Err: err})
		}
		req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.5")
		req.Header.Set("User-Agent", userAgent)

		start := time.Now()
		resp, err := client.Do(req)
		if collector != nil {
			collector.RecordFetch(source, time.Since(start))
		}
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			err := fmt.Errorf("unexpected status %s", resp.Status)
			if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return backoff.Permanent(&PermanentError{Source: source, Op: "fetch " + url, Err: err})
		}

		body = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		var permanent *PermanentError
		if errors.As(err, &permanent) {
			if collector != nil {
				collector.RecordFetchError(source, "client_error")
			}
			return nil, permanent
		}
		if collector != nil {
			collector.RecordFetchError(source, "request_error")
		}
		return nil, &TransientError{Source: source, Op: "fetch " + url, Err: err}
	}

	return body, nil
}
