package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a download job.
// Pending is the only non-terminal state.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transition may happen from this status
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Platform represents the source platform of a media URL
type Platform string

const (
	PlatformYouTube   Platform = "youtube"   // video platform
	PlatformInstagram Platform = "instagram" // photo platform
)

// MediaType represents the requested kind of media. The valid set depends on the platform.
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaPost  MediaType = "post"
	MediaReel  MediaType = "reel"
	MediaStory MediaType = "story"
)

// DownloadJob is a durably recorded download request.
// Terminal fields are pointers so they serialize as null while unset.
type DownloadJob struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	OwnerID       string     `json:"owner_id" gorm:"not null;size:128;index:idx_owner_created,priority:1"`
	Platform      Platform   `json:"platform" gorm:"not null;size:16"`
	SourceURL     string     `json:"source_url" gorm:"not null;type:text"`
	MediaType     MediaType  `json:"media_type" gorm:"not null;size:16"`
	Quality       *string    `json:"quality" gorm:"size:16"`
	Status        JobStatus  `json:"status" gorm:"not null;size:16;index"`
	Filename      *string    `json:"filename"`
	FileSizeBytes *int64     `json:"file_size_bytes"`
	ErrorMessage  *string    `json:"error_message" gorm:"type:text"`
	CreatedAt     time.Time  `json:"created_at" gorm:"not null;index:idx_owner_created,priority:2"`
	FinalizedAt   *time.Time `json:"-"` // audit column, not part of the job resource
}

// TableName specifies the table name for GORM
func (DownloadJob) TableName() string {
	return "download_jobs"
}

// NewDownloadJob creates a Pending job for an admitted request
func NewDownloadJob(ownerID string, target MediaTarget, sourceURL string) (*DownloadJob, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidJob)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	job := &DownloadJob{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Platform:  target.Platform,
		SourceURL: sourceURL,
		MediaType: target.MediaType,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if target.Quality != "" {
		q := string(target.Quality)
		job.Quality = &q
	}
	return job, nil
}

// Target returns the media target the job was admitted for
func (j *DownloadJob) Target() MediaTarget {
	t := MediaTarget{Platform: j.Platform, MediaType: j.MediaType}
	if j.Quality != nil {
		t.Quality = Quality(*j.Quality)
	}
	return t
}

// IsPending checks if the job still awaits fulfillment
func (j *DownloadJob) IsPending() bool {
	return j.Status == StatusPending
}

// IsTerminal checks if the job reached Completed or Failed
func (j *DownloadJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Validate checks the record-level invariants: consistent platform/media pair,
// and exactly one of {filename, size} or {error} populated once terminal.
func (j *DownloadJob) Validate() error {
	if j.ID == "" || j.OwnerID == "" || j.SourceURL == "" {
		return fmt.Errorf("%w: id, owner and source url are required", ErrInvalidJob)
	}
	if err := j.Target().Validate(); err != nil {
		return err
	}

	hasResult := j.Filename != nil || j.FileSizeBytes != nil
	hasError := j.ErrorMessage != nil

	switch j.Status {
	case StatusPending:
		if hasResult || hasError {
			return fmt.Errorf("%w: pending job carries terminal fields", ErrInvalidJob)
		}
	case StatusCompleted:
		if j.Filename == nil || j.FileSizeBytes == nil || hasError {
			return fmt.Errorf("%w: completed job must carry filename and size only", ErrInvalidJob)
		}
		if *j.FileSizeBytes <= 0 {
			return fmt.Errorf("%w: completed job must have a positive size", ErrInvalidJob)
		}
	case StatusFailed:
		if !hasError || hasResult {
			return fmt.Errorf("%w: failed job must carry error message only", ErrInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, j.Status)
	}
	return nil
}

// JobStats represents per-status job counts
type JobStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// DownloadRequest is a caller's submission before classification
type DownloadRequest struct {
	URL       string
	MediaType MediaType
	Quality   Quality
}
