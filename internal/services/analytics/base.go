package analytics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	xhttp "TrendPull/pkg/http"
)

// HTTPServiceBase holds the client and base URL shared by remote service adapters.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client with timeout and bearer token. A nil hc uses
// a fresh *http.Client.
func NewHTTPServiceBase(baseURL, token string, timeout time.Duration, hc *http.Client) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []xhttp.ClientOption{xhttp.WithTimeout(timeout)}
	if token != "" {
		opts = append(opts, xhttp.WithHeader("Authorization", "Bearer "+token))
	}
	if hc != nil {
		opts = append(opts, xhttp.WithHTTPClient(hc))
	}
	return &HTTPServiceBase{baseURL: baseURL, client: xhttp.NewClient(opts...)}
}

// PostStream posts payload to path and returns the open response for streaming reads.
func (b *HTTPServiceBase) PostStream(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	if b.client == nil || b.baseURL == "" {
		return nil, fmt.Errorf("backtest http client not initialized")
	}
	resp, err := b.client.Do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/x-ndjson",
		},
		Body: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return resp, nil
}

// PostStreamWithRetry retries transport failures and retryable statuses with a linear backoff.
func (b *HTTPServiceBase) PostStreamWithRetry(ctx context.Context, path string, payload interface{}, attempts int) (*http.Response, error) {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		var resp *http.Response
		resp, err = b.PostStream(ctx, path, payload)
		if err == nil {
			return resp, nil
		}
		if !xhttp.IsRetryable(err) || i == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 100 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, err
}
