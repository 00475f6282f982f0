package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

var instagramArtifacts = map[domain.MediaType]domain.FetchResult{
	domain.MediaReel:  {Filename: "instagram_reel.mp4", FileSizeBytes: 15000000},
	domain.MediaStory: {Filename: "instagram_story.mp4", FileSizeBytes: 8000000},
	domain.MediaPost:  {Filename: "instagram_post.jpg", FileSizeBytes: 2500000},
}

// InstagramFetcher simulates retrieval from the photo platform
type InstagramFetcher struct {
	config SimulationConfig
	logger *zap.Logger
}

// NewInstagramFetcher creates a new Instagram fetcher
func NewInstagramFetcher(config SimulationConfig, logger *zap.Logger) *InstagramFetcher {
	return &InstagramFetcher{config: config, logger: logger}
}

// Platform returns the platform this fetcher handles
func (f *InstagramFetcher) Platform() domain.Platform {
	return domain.PlatformInstagram
}

// Fetch produces the artifact descriptor for a post, reel or story job
func (f *InstagramFetcher) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.FetchResult, error) {
	if job.Platform != domain.PlatformInstagram {
		return nil, fmt.Errorf("instagram fetcher cannot handle %s job", job.Platform)
	}

	f.logger.Debug("Fetching from instagram",
		zap.String("job_id", job.ID),
		zap.String("media_type", string(job.MediaType)))

	if err := simulate(ctx, f.config, job); err != nil {
		return nil, err
	}

	artifact, ok := instagramArtifacts[job.MediaType]
	if !ok {
		return nil, fmt.Errorf("unsupported instagram media type: %s", job.MediaType)
	}
	result := artifact
	return &result, nil
}
