package domain

import "context"

// Fetcher retrieves the media for a job from its source platform
type Fetcher interface {
	// Fetch produces the artifact for the job. Transient failures must be
	// wrapped with Retryable; anything else is treated as permanent.
	Fetch(ctx context.Context, job *DownloadJob) (*FetchResult, error)

	// Platform returns the platform this fetcher handles
	Platform() Platform
}

// FetchResult represents the metadata of a retrieved artifact
type FetchResult struct {
	Filename      string
	FileSizeBytes int64
}
