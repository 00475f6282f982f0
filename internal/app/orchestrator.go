package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/pkg/logger"
)

// Orchestrator admits download requests: authenticate, classify, evaluate, record, enqueue
type Orchestrator struct {
	identity      domain.IdentityProvider
	subscriptions domain.SubscriptionStore
	evaluator     domain.Evaluator
	repo          domain.JobRepository
	queue         domain.JobQueue
	logger        *zap.Logger
	multiLogger   *logger.MultiLogger
}

// NewOrchestrator creates a new request orchestrator
func NewOrchestrator(
	identity domain.IdentityProvider,
	subscriptions domain.SubscriptionStore,
	evaluator domain.Evaluator,
	repo domain.JobRepository,
	queue domain.JobQueue,
	logger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *Orchestrator {
	return &Orchestrator{
		identity:      identity,
		subscriptions: subscriptions,
		evaluator:     evaluator,
		repo:          repo,
		queue:         queue,
		logger:        logger,
		multiLogger:   multiLogger,
	}
}

// Authenticate resolves a bearer token to a full user identity.
// A user without an active subscription is on the free plan.
func (o *Orchestrator) Authenticate(ctx context.Context, token string) (*domain.UserIdentity, error) {
	principal, err := o.identity.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	plan, ok, err := o.subscriptions.GetActivePlan(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan: %w", err)
	}
	if !ok || !domain.ValidatePlanTier(plan) {
		plan = domain.PlanFree
	}

	return &domain.UserIdentity{
		ID:               principal.UserID,
		PlanTier:         plan,
		LinkedIdentities: principal.LinkedIdentities,
	}, nil
}

// Submit validates and admits a request, returning the Pending job.
// Fulfillment happens later; a failed enqueue is recovered by the worker's reconcile loop.
func (o *Orchestrator) Submit(ctx context.Context, identity *domain.UserIdentity, req domain.DownloadRequest) (*domain.DownloadJob, error) {
	if identity == nil || identity.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	target, err := domain.ResolveTarget(req.URL, req.MediaType, req.Quality)
	if err != nil {
		return nil, err
	}

	decision := o.evaluator.Evaluate(*identity, target)
	if !decision.Allowed {
		o.logger.Info("Download request denied",
			zap.String("user_id", identity.ID),
			zap.String("platform", string(target.Platform)),
			zap.String("media_type", string(target.MediaType)),
			zap.String("reason", string(decision.Reason)))
		return nil, decision.Err()
	}

	job, err := domain.NewDownloadJob(identity.ID, target, strings.TrimSpace(req.URL))
	if err != nil {
		return nil, err
	}

	if err := o.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := o.queue.Enqueue(ctx, job.ID); err != nil {
		o.logger.Warn("Failed to enqueue job, leaving it for reconciliation",
			zap.String("id", job.ID),
			zap.Error(err))
	}

	o.multiLogger.LogJobEvent("job_admitted",
		zap.String("id", job.ID),
		zap.String("owner_id", job.OwnerID),
		zap.String("platform", string(job.Platform)),
		zap.String("media_type", string(job.MediaType)),
		zap.String("quality", string(target.Quality)))

	return job, nil
}

// GetJob returns one of the caller's jobs. Jobs owned by others are reported as not found.
func (o *Orchestrator) GetJob(ctx context.Context, identity *domain.UserIdentity, id string) (*domain.DownloadJob, error) {
	if identity == nil || identity.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	job, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != identity.ID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns the jobs of ownerID, newest first. An empty ownerID means the caller.
func (o *Orchestrator) ListJobs(ctx context.Context, identity *domain.UserIdentity, ownerID string) ([]*domain.DownloadJob, error) {
	if identity == nil || identity.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	if ownerID == "" {
		ownerID = identity.ID
	}
	if ownerID != identity.ID {
		return nil, domain.ErrForbidden
	}
	return o.repo.ListByOwner(ctx, ownerID)
}

// GetStats returns job counts by status
func (o *Orchestrator) GetStats(ctx context.Context) (*domain.JobStats, error) {
	return o.repo.GetStats(ctx)
}
