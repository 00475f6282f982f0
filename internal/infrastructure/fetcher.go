package infrastructure

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// FailureFunc lets tests and demos inject retrieval failures per job
type FailureFunc func(job *domain.DownloadJob) error

// SimulationConfig controls the simulated retrieval backends
type SimulationConfig struct {
	Latency time.Duration
	Fail    FailureFunc
}

// NewFetchers builds one fetcher per supported platform
func NewFetchers(config SimulationConfig, logger *zap.Logger) map[domain.Platform]domain.Fetcher {
	return map[domain.Platform]domain.Fetcher{
		domain.PlatformYouTube:   NewYouTubeFetcher(config, logger),
		domain.PlatformInstagram: NewInstagramFetcher(config, logger),
	}
}

// simulate waits out the configured latency and applies any injected failure
func simulate(ctx context.Context, config SimulationConfig, job *domain.DownloadJob) error {
	if config.Latency > 0 {
		timer := time.NewTimer(config.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.Retryable(ctx.Err())
		}
	}
	if config.Fail != nil {
		return config.Fail(job)
	}
	return nil
}
