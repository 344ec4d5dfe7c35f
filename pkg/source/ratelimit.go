package source

import (
	"net/http"
	"sync"
	"time"
)

// HTTPClient is an interface matching the Do method of *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitedHTTPClient enforces a minimum interval between requests to
// one endpoint. Waiting stops early when the request context ends.
type RateLimitedHTTPClient struct {
	underlying  HTTPClient
	interval    time.Duration
	lastRequest time.Time
	mu          sync.Mutex
}

// NewRateLimitedHTTPClient wraps underlying with a minimum request interval.
func NewRateLimitedHTTPClient(underlying HTTPClient, interval time.Duration) *RateLimitedHTTPClient {
	return &RateLimitedHTTPClient{
		underlying: underlying,
		interval:   interval,
	}
}

// Do waits for the interval to pass and sends the request.
func (c *RateLimitedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	var wait time.Duration
	next := c.lastRequest.Add(c.interval)
	if !c.lastRequest.IsZero() && time.Now().Before(next) {
		wait = time.Until(next)
		c.lastRequest = next
	} else {
		c.lastRequest = time.Now()
	}
	c.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return c.underlying.Do(req)
}
