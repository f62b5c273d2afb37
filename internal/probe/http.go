package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/app1/internal/domain/model"
	"github.com/okian/app1/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.client.Do(req)
}

// PostJSON performs a POST request with a JSON body.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.client.Do(req)
}

// readEnvelope reads and closes the body, decoding an envelope on the
// expected status.
func readEnvelope(resp *http.Response, want int) (model.Envelope, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != want {
		return model.Envelope{}, fmt.Errorf("status %d, want %d: %s", resp.StatusCode, want, body)
	}
	var env model.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// job is one unit of work for the pool. A nil payload is a GET.
type job struct {
	payload map[string]any
}

// exercise sends a GET and a POST per payload through a worker pool.
func exercise(ctx context.Context, config *Config, payloads []map[string]any, stats *Stats) {
	logger.Get().Info(ctx, "exercising data routes",
		logger.Int("requests", len(payloads)*2),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	v := newVerifier(config.App, config.BasePath)
	url := dataURL(config)

	var fetched, received, throttled, failed, mismatches int64

	jobs := make(chan job, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				var res outcome
				var err error
				if j.payload == nil {
					res, err = fetchOnce(ctx, client, url, v)
				} else {
					res, err = receiveOnce(ctx, client, url, v, j.payload)
				}

				switch res {
				case outcomeOK:
					if j.payload == nil {
						atomic.AddInt64(&fetched, 1)
					} else {
						atomic.AddInt64(&received, 1)
					}
				case outcomeThrottled:
					atomic.AddInt64(&throttled, 1)
				case outcomeFailed:
					atomic.AddInt64(&failed, 1)
				case outcomeMismatch:
					atomic.AddInt64(&mismatches, 1)
				}
				if err != nil && config.Verbose {
					logger.Get().Warn(ctx, "request did not match", logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range payloads {
			for _, j := range []job{{}, {payload: p}} {
				select {
				case <-ctx.Done():
					return
				case jobs <- j:
				}
			}
		}
	}()

	wg.Wait()

	stats.Fetched += int(fetched)
	stats.Received += int(received)
	stats.Throttled += int(throttled)
	stats.Failed += int(failed)
	stats.Mismatches += int(mismatches)
}

func fetchOnce(ctx context.Context, client *HTTPClient, url string, v *verifier) (outcome, error) {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return outcomeFailed, err
	}
	if resp.StatusCode == StatusTooManyRequests {
		_ = resp.Body.Close()
		return outcomeThrottled, nil
	}
	env, err := readEnvelope(resp, StatusOK)
	if err != nil {
		return outcomeFailed, err
	}
	if err := v.checkFetch(env); err != nil {
		return outcomeMismatch, err
	}
	return outcomeOK, nil
}

func receiveOnce(ctx context.Context, client *HTTPClient, url string, v *verifier, payload map[string]any) (outcome, error) {
	resp, err := client.PostJSON(ctx, url, payload)
	if err != nil {
		return outcomeFailed, err
	}
	if resp.StatusCode == StatusTooManyRequests {
		_ = resp.Body.Close()
		return outcomeThrottled, nil
	}
	env, err := readEnvelope(resp, StatusCreated)
	if err != nil {
		return outcomeFailed, err
	}
	if err := v.checkReceive(env, payload); err != nil {
		return outcomeMismatch, err
	}
	return outcomeOK, nil
}

func dataURL(config *Config) string {
	return config.BaseURL + model.DataPath(config.BasePath)
}
