package sendalerts

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

	"github.com/okian/capmap/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// fetchAlerts reads every stored alert in arrival order.
func fetchAlerts(ctx context.Context, client *HTTPClient, baseURL string) ([]StoredAlert, error) {
	resp, err := client.Get(ctx, baseURL+"/api/alerts")
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list alerts returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}
	var alerts []StoredAlert
	if err := json.Unmarshal(body, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return alerts, nil
}

// submitAlerts posts alerts concurrently using a worker pool and returns
// the counts acknowledged by the service.
func submitAlerts(ctx context.Context, config *Config, alerts []Alert, stats *Stats) []int {
	log := logger.Get()
	log.Info(ctx, "submitting alerts", logger.Int("alerts", len(alerts)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/alert"

	var (
		successful   int64
		backpressure int64
		failed       int64
		submitted    int64

		mu     sync.Mutex
		counts = make([]int, 0, len(alerts))
	)

	alertChan := make(chan Alert, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for alert := range alertChan {
				if ctx.Err() != nil {
					continue
				}
				outcome, count := submitSingleAlert(ctx, client, url, alert)

				total := atomic.AddInt64(&submitted, 1)
				switch outcome {
				case outcomeSuccess:
					atomic.AddInt64(&successful, 1)
					mu.Lock()
					counts = append(counts, count)
					mu.Unlock()
				case outcomeBackpressure:
					atomic.AddInt64(&backpressure, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				if config.Verbose {
					log.Debug(ctx, "alert submitted",
						logger.String("identifier", alert.Identifier),
						logger.String("outcome", outcome),
						logger.Int("count", count),
						logger.Int("progress", int(total)))
				}
			}
		}()
	}

	go func() {
		defer close(alertChan)
		for _, alert := range alerts {
			select {
			case <-ctx.Done():
				return
			case alertChan <- alert:
			}
		}
	}()

	wg.Wait()

	stats.AlertsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.AlertsSuccessful = int(atomic.LoadInt64(&successful))
	stats.AlertsBackpressure = int(atomic.LoadInt64(&backpressure))
	stats.AlertsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "alert submission completed",
		logger.Int("successful", stats.AlertsSuccessful),
		logger.Int("backpressure", stats.AlertsBackpressure),
		logger.Int("failed", stats.AlertsFailed))

	return counts
}

// submitSingleAlert posts one alert and classifies the response.
func submitSingleAlert(ctx context.Context, client *HTTPClient, url string, alert Alert) (string, int) {
	resp, err := client.Post(ctx, url, alert)
	if err != nil {
		return outcomeFailed, 0
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcomeFailed, 0
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err != nil || ack.Status != "ok" {
			return outcomeFailed, 0
		}
		return outcomeSuccess, ack.Count
	case http.StatusTooManyRequests:
		return outcomeBackpressure, 0
	default:
		return outcomeFailed, 0
	}
}
