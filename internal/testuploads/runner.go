package testuploads

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shalun/raidlogs/pkg/logger"
)

// maxVerifySample caps how many accepted runs the verification step fetches
// back through the search endpoint.
const maxVerifySample = 25

// Run executes the complete upload test: health check, payload generation,
// concurrent submission and read-back verification.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting raidlogs upload test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("runs", config.NumRuns),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("partySize", config.PartySize),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate payloads
	runs, err := generateRuns(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("payload generation failed: %w", err)
	}

	// Step 3: Submit payloads concurrently
	acceptedIDs, err := submitRuns(ctx, config, runs, stats)
	if err != nil {
		return fmt.Errorf("run submission failed: %w", err)
	}

	// Step 4: Verify a sample of accepted runs via the search API
	if err := verifyRuns(ctx, config, acceptedIDs, stats); err != nil {
		return fmt.Errorf("run verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy (the endpoint serves Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyRuns fetches a sample of accepted runs back through POST /search/id
// and counts the ones the service can return.
func verifyRuns(ctx context.Context, config *Config, acceptedIDs []string, stats *Stats) error {
	if len(acceptedIDs) == 0 {
		logger.Get().Warn(ctx, "no accepted runs to verify")
		return nil
	}

	sample := acceptedIDs
	if len(sample) > maxVerifySample {
		sample = sample[:maxVerifySample]
	}

	logger.Get().Info(ctx, "verifying accepted runs", logger.Int("sample", len(sample)))

	client := newHTTPClient(config)
	url := config.BaseURL + "/search/id"

	verified := 0
	for _, runID := range sample {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := client.Post(ctx, url, map[string]string{"runId": runID})
		if err != nil {
			logger.Get().Warn(ctx, "verification request failed",
				logger.String("runId", runID), logger.Error(err))
			continue
		}
		_, _ = readResponseBody(resp)

		if resp.StatusCode == http.StatusOK {
			verified++
		} else {
			logger.Get().Warn(ctx, "run missing after accepted upload",
				logger.String("runId", runID),
				logger.Int("status", resp.StatusCode))
		}
	}

	stats.RunsVerified = verified
	if verified < len(sample) {
		return fmt.Errorf("verified %d of %d sampled runs", verified, len(sample))
	}

	logger.Get().Info(ctx, "verification passed", logger.Int("verified", verified))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, runsPerSecond float64

	if stats.RunsSubmitted > 0 {
		acceptRate = float64(stats.RunsAccepted) / float64(stats.RunsSubmitted) * 100
	}

	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("runsGenerated", stats.RunsGenerated),
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsAccepted", stats.RunsAccepted),
		logger.Int("runsDuplicate", stats.RunsDuplicate),
		logger.Int("runsRejected", stats.RunsRejected),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("runsVerified", stats.RunsVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("runsPerSecond", runsPerSecond))
}
