// Package metadata dereferences token metadata documents from the
// storage gateway.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AayushJain09/Polyplace/internal/domain"
	"github.com/AayushJain09/Polyplace/shared/resilience"
)

// transientError marks a fetch failure worth retrying: gateway
// congestion or a network fault, never a document that does not exist.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Client fetches and decodes metadata documents over HTTPS. One attempt
// per call unless the caller opts into retries; the facade decides what
// a final failure means.
type Client struct {
	httpClient *http.Client
	retry      *resilience.RetryConfig
}

func NewClient() *Client {
	return NewClientWithRetry(&resilience.RetryConfig{MaxAttempts: 1})
}

// NewClientWithRetry builds a client that retries transient gateway
// failures (network faults, 429, 5xx) per the given config. Missing
// documents and decode errors are never retried.
func NewClientWithRetry(retry *resilience.RetryConfig) *Client {
	if retry == nil {
		retry = &resilience.RetryConfig{MaxAttempts: 1}
	}
	retry.Retryable = func(err error) bool {
		var te *transientError
		return errors.As(err, &te)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      retry,
	}
}

func (c *Client) Fetch(ctx context.Context, url string) (domain.TokenMetadata, error) {
	var md domain.TokenMetadata
	if url == "" {
		return md, fmt.Errorf("%w: empty token URI", domain.ErrMetadataFetch)
	}

	err := resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		var err error
		md, err = c.fetchOnce(ctx, url)
		return err
	})
	if err != nil {
		return domain.TokenMetadata{}, fmt.Errorf("%w: %v", domain.ErrMetadataFetch, err)
	}
	return md, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) (domain.TokenMetadata, error) {
	var md domain.TokenMetadata

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return md, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return md, &transientError{err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		return md, &transientError{err: fmt.Errorf("%s: %s", url, res.Status)}
	default:
		return md, fmt.Errorf("%s: %s", url, res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(&md); err != nil {
		return md, fmt.Errorf("decode %s: %v", url, err)
	}
	return md, nil
}
