// Package probe drives a running app1 instance over HTTP and checks every
// response against the data route contract.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/app1/internal/domain/model"
	"github.com/okian/app1/pkg/logger"
)

// ErrProbeFailed reports a run that saw failures or contract mismatches.
var ErrProbeFailed = errors.New("probe failed")

// Run executes the complete probe and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting app1 probe",
		logger.String("baseURL", config.BaseURL),
		logger.String("basePath", config.BasePath),
		logger.String("app", config.App),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	if err := checkSequential(ctx, config); err != nil {
		return stats, fmt.Errorf("sequential check failed: %w", err)
	}

	payloads, err := generatePayloads(ctx, config.Requests, stats)
	if err != nil {
		return stats, fmt.Errorf("payload generation failed: %w", err)
	}

	exercise(ctx, config, payloads, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Failed > 0 || stats.Mismatches > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d mismatched", ErrProbeFailed, stats.Failed, stats.Mismatches)
	}
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// checkSequential issues a few GETs in order to check timestamp ordering,
// then posts an empty object to check the empty echo.
func checkSequential(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	v := newVerifier(config.App, config.BasePath)
	url := dataURL(config)

	envs := make([]model.Envelope, 0, orderingSamples)
	for i := 0; i < orderingSamples; i++ {
		resp, err := client.Get(ctx, url)
		if err != nil {
			return err
		}
		env, err := readEnvelope(resp, StatusOK)
		if err != nil {
			return err
		}
		if err := v.checkFetch(env); err != nil {
			return err
		}
		envs = append(envs, env)
	}
	if err := checkOrdering(envs); err != nil {
		return err
	}

	resp, err := client.PostJSON(ctx, url, map[string]any{})
	if err != nil {
		return err
	}
	env, err := readEnvelope(resp, StatusCreated)
	if err != nil {
		return err
	}
	return v.checkReceive(env, map[string]any{})
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64

	total := stats.Fetched + stats.Received + stats.Throttled + stats.Failed + stats.Mismatches
	if total > 0 {
		successRate = float64(stats.Fetched+stats.Received) / float64(total) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(total) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("payloadsGenerated", stats.PayloadsGenerated),
		logger.Int("fetched", stats.Fetched),
		logger.Int("received", stats.Received),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
