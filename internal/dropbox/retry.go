package dropbox

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// retryTransport resends requests answered with 429 (honoring Retry-After)
// or 5xx, with exponential backoff. Requests whose body cannot be replayed
// are sent once.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    func(attempt int, resp *http.Response) time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	for attempt := 0; ; attempt++ {
		try := req
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			try = req.Clone(req.Context())
			try.Body = body
		}

		resp, err := t.base.RoundTrip(try)
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || !replayable || attempt >= t.maxRetries {
			return resp, nil
		}

		wait := t.backoff(attempt+1, resp)
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()

		timer := time.NewTimer(wait)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// backoffDelay returns the wait duration before a retry attempt.
func backoffDelay(attempt int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// Exponential backoff: 1s, 2s, 4s
	return time.Duration(1<<(attempt-1)) * time.Second
}
