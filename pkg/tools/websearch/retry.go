package websearch

import (
	"context"
	"net/http"
	"time"
)

// retryMaxDelay caps the backoff between rate-limited attempts.
const retryMaxDelay = 30 * time.Second

// doWithRetry executes a request, retrying on 429 with a doubling delay
// starting at baseDelay and capped at retryMaxDelay. The caller's context
// bounds the total wait. build is invoked per attempt because a request body
// cannot be reused after a send.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error), baseDelay time.Duration) (*http.Response, error) {
	delay := baseDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		if delay < retryMaxDelay {
			delay *= 2
		}
	}
}
