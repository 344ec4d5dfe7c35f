package source

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

type recordingClient struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.times = append(c.times, time.Now())
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRateLimitedHTTPClient(t *testing.T) {
	t.Run("spaces_requests", func(t *testing.T) {
		underlying := &recordingClient{}
		client := NewRateLimitedHTTPClient(underlying, 50*time.Millisecond)

		for i := 0; i < 3; i++ {
			req, _ := http.NewRequest(http.MethodGet, "http://example.org/oai", nil)
			if _, err := client.Do(req); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		}

		if len(underlying.times) != 3 {
			t.Fatalf("Expected 3 requests, got %d", len(underlying.times))
		}
		if gap := underlying.times[2].Sub(underlying.times[0]); gap < 90*time.Millisecond {
			t.Errorf("Expected requests at least 100ms apart in total, got %v", gap)
		}
	})

	t.Run("stops_waiting_on_cancel", func(t *testing.T) {
		underlying := &recordingClient{}
		client := NewRateLimitedHTTPClient(underlying, time.Hour)

		first, _ := http.NewRequest(http.MethodGet, "http://example.org/oai", nil)
		if _, err := client.Do(first); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		second, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.org/oai", nil)
		_, err := client.Do(second)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
		if len(underlying.times) != 1 {
			t.Errorf("Expected the cancelled request not to be sent, got %d requests", len(underlying.times))
		}
	})
}
