package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// Simulated artifact sizes by quality
var (
	youtubeVideoSizes = map[domain.Quality]int64{
		domain.Quality4K:    120000000,
		domain.Quality1440p: 80000000,
		domain.Quality1080p: 45000000,
		domain.Quality720p:  25000000,
	}
	youtubeAudioSizes = map[domain.Quality]int64{
		domain.Quality320kbps: 8000000,
		domain.Quality256kbps: 6500000,
	}
)

const (
	defaultVideoSize int64 = 15000000
	defaultAudioSize int64 = 4000000
)

// YouTubeFetcher simulates retrieval from the video platform
type YouTubeFetcher struct {
	config SimulationConfig
	logger *zap.Logger
}

// NewYouTubeFetcher creates a new YouTube fetcher
func NewYouTubeFetcher(config SimulationConfig, logger *zap.Logger) *YouTubeFetcher {
	return &YouTubeFetcher{config: config, logger: logger}
}

// Platform returns the platform this fetcher handles
func (f *YouTubeFetcher) Platform() domain.Platform {
	return domain.PlatformYouTube
}

// Fetch produces the artifact descriptor for a video or audio job
func (f *YouTubeFetcher) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.FetchResult, error) {
	if job.Platform != domain.PlatformYouTube {
		return nil, fmt.Errorf("youtube fetcher cannot handle %s job", job.Platform)
	}

	target := job.Target()
	f.logger.Debug("Fetching from youtube",
		zap.String("job_id", job.ID),
		zap.String("media_type", string(target.MediaType)),
		zap.String("quality", string(target.Quality)))

	if err := simulate(ctx, f.config, job); err != nil {
		return nil, err
	}

	switch target.MediaType {
	case domain.MediaVideo:
		size, ok := youtubeVideoSizes[target.Quality]
		if !ok {
			size = defaultVideoSize
		}
		return &domain.FetchResult{
			Filename:      fmt.Sprintf("youtube_video_%s.mp4", strings.ToLower(string(target.Quality))),
			FileSizeBytes: size,
		}, nil
	case domain.MediaAudio:
		size, ok := youtubeAudioSizes[target.Quality]
		if !ok {
			size = defaultAudioSize
		}
		return &domain.FetchResult{
			Filename:      fmt.Sprintf("youtube_audio_%s.mp3", target.Quality),
			FileSizeBytes: size,
		}, nil
	}

	return nil, fmt.Errorf("unsupported youtube media type: %s", target.MediaType)
}
