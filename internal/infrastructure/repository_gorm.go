package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// GormJobRepository implements domain.JobRepository on top of gorm
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new job repository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// Create creates a new job. Terminal jobs are rejected: every job must be admitted as Pending.
func (r *GormJobRepository) Create(ctx context.Context, job *domain.DownloadJob) error {
	if job.Status != domain.StatusPending {
		return fmt.Errorf("%w: jobs must be created pending, got %q", domain.ErrInvalidJob, job.Status)
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FinalizeCompleted moves a Pending job to Completed
func (r *GormJobRepository) FinalizeCompleted(ctx context.Context, id, filename string, sizeBytes int64) (*domain.DownloadJob, error) {
	if filename == "" || sizeBytes <= 0 {
		return nil, fmt.Errorf("%w: completion needs a filename and a positive size", domain.ErrInvalidJob)
	}
	return r.finalize(ctx, id, map[string]interface{}{
		"status":          string(domain.StatusCompleted),
		"filename":        filename,
		"file_size_bytes": sizeBytes,
	})
}

// FinalizeFailed moves a Pending job to Failed
func (r *GormJobRepository) FinalizeFailed(ctx context.Context, id, errorMessage string) (*domain.DownloadJob, error) {
	if errorMessage == "" {
		return nil, fmt.Errorf("%w: failure needs an error message", domain.ErrInvalidJob)
	}
	return r.finalize(ctx, id, map[string]interface{}{
		"status":        string(domain.StatusFailed),
		"error_message": errorMessage,
	})
}

// finalize is a compare-and-swap on status: the row only changes while it is still pending
func (r *GormJobRepository) finalize(ctx context.Context, id string, fields map[string]interface{}) (*domain.DownloadJob, error) {
	fields["finalized_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&domain.DownloadJob{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to finalize job: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyFinalized
	}

	return r.Get(ctx, id)
}

// Get finds a job by ID
func (r *GormJobRepository) Get(ctx context.Context, id string) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListByOwner returns an owner's jobs, newest first
func (r *GormJobRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.DownloadJob, error) {
	jobs := []*domain.DownloadJob{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// FindPending returns Pending jobs created before the cutoff, oldest first
func (r *GormJobRepository) FindPending(ctx context.Context, createdBefore time.Time) ([]*domain.DownloadJob, error) {
	var jobs []*domain.DownloadJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(domain.StatusPending), createdBefore.UTC()).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}
	return jobs, nil
}

// GetStats returns job statistics
func (r *GormJobRepository) GetStats(ctx context.Context) (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	statusCounts := []struct {
		Status domain.JobStatus
		Count  int64
	}{}

	if err := r.db.WithContext(ctx).Model(&domain.DownloadJob{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	for _, sc := range statusCounts {
		stats.Total += sc.Count
		switch sc.Status {
		case domain.StatusPending:
			stats.Pending = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}
