package testuploads

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

	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/pkg/logger"
)

const progressReportInterval = 1 * time.Second

// submitResult classifies a single upload attempt.
type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultRejected
	resultFailed
)

// HTTPClient wraps http.Client with a shared timeout and the upload token.
type HTTPClient struct {
	client   *http.Client
	token    string
	authHead string
}

func newHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		client:   &http.Client{Timeout: config.Timeout},
		token:    config.Token,
		authHead: config.AuthHead,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body. The upload token, when
// configured, rides along in the auth header.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(c.authHead, c.token)
	}
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(resp.Body)
}

// submitRuns submits the generated payloads concurrently using a worker pool
// and collects the accepted run ids for later verification.
func submitRuns(ctx context.Context, config *Config, runs []encounter.Payload, stats *Stats) ([]string, error) {
	logger.Get().Info(ctx, "submitting runs",
		logger.Int("count", len(runs)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config)
	url := config.BaseURL + "/upload"

	var (
		submitted int64
		accepted  int64
		duplicate int64
		rejected  int64
		failed    int64
	)

	var (
		idsMu       sync.Mutex
		acceptedIDs []string
	)

	var lastReport time.Time

	runChan := make(chan encounter.Payload, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for run := range runChan {
				select {
				case <-ctx.Done():
					return
				default:
					result, runID := submitSingleRun(ctx, client, url, &run)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case resultAccepted:
						atomic.AddInt64(&accepted, 1)
						idsMu.Lock()
						acceptedIDs = append(acceptedIDs, runID)
						idsMu.Unlock()
					case resultDuplicate:
						atomic.AddInt64(&duplicate, 1)
					case resultRejected:
						atomic.AddInt64(&rejected, 1)
					case resultFailed:
						atomic.AddInt64(&failed, 1)
					}

					if config.Verbose && time.Since(lastReport) >= progressReportInterval {
						lastReport = time.Now()
						logger.Get().Info(ctx, "submission progress",
							logger.Int64("submitted", atomic.LoadInt64(&submitted)),
							logger.Int("total", len(runs)),
							logger.Int64("accepted", atomic.LoadInt64(&accepted)),
							logger.Int64("duplicate", atomic.LoadInt64(&duplicate)),
							logger.Int64("rejected", atomic.LoadInt64(&rejected)),
							logger.Int64("failed", atomic.LoadInt64(&failed)))
					}
				}
			}
		}()
	}

	go func() {
		defer close(runChan)
		for _, run := range runs {
			select {
			case <-ctx.Done():
				return
			case runChan <- run:
			}
		}
	}()

	wg.Wait()

	stats.RunsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RunsAccepted = int(atomic.LoadInt64(&accepted))
	stats.RunsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.RunsRejected = int(atomic.LoadInt64(&rejected))
	stats.RunsFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "run submission completed",
		logger.Int("accepted", stats.RunsAccepted),
		logger.Int("duplicate", stats.RunsDuplicate),
		logger.Int("rejected", stats.RunsRejected),
		logger.Int("failed", stats.RunsFailed))

	return acceptedIDs, nil
}

// submitSingleRun posts one payload and classifies the outcome. On success it
// returns the run id extracted from the response URL.
func submitSingleRun(ctx context.Context, client *HTTPClient, url string, run *encounter.Payload) (submitResult, string) {
	resp, err := client.Post(ctx, url, run)
	if err != nil {
		return resultFailed, ""
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed, ""
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var ack uploadResponse
		if err := json.Unmarshal(body, &ack); err != nil || ack.ID == "" {
			return resultFailed, ""
		}
		return resultAccepted, runIDFromURL(ack.ID)
	case http.StatusForbidden:
		var apiErr errorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code == "duplicate" {
			return resultDuplicate, ""
		}
		return resultRejected, ""
	default:
		return resultFailed, ""
	}
}

// runIDFromURL extracts the run id from a run URL. The service returns either
// a bare id or a full URL ending in the id segment.
func runIDFromURL(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return url
}
