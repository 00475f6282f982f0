package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/pkg/logger"
)

const (
	dequeueErrorBackoff = time.Second
	defaultLeaseTTL     = 30 * time.Second
	leaseReleaseTimeout = 5 * time.Second
)

// FulfillmentWorker drives Pending jobs to a terminal state
type FulfillmentWorker struct {
	repo               domain.JobRepository
	queue              domain.JobQueue
	leaser             domain.JobLeaser
	fetchers           map[domain.Platform]domain.Fetcher
	config             *domain.FulfillmentConfig
	queueConfig        *domain.QueueConfig
	logger             *zap.Logger
	multiLogger        *logger.MultiLogger
	platformSemaphores map[domain.Platform]chan struct{}
	inFlight           sync.Map

	mu          sync.RWMutex
	running     bool
	cancelLoops context.CancelFunc
	cancelJobs  context.CancelFunc
	loopWg      sync.WaitGroup
	pool        *pool.Pool
	slots       chan struct{}
}

// NewFulfillmentWorker creates a new fulfillment worker. leaser may be nil when
// this process is the queue's only consumer.
func NewFulfillmentWorker(
	repo domain.JobRepository,
	queue domain.JobQueue,
	leaser domain.JobLeaser,
	fetchers map[domain.Platform]domain.Fetcher,
	config *domain.FulfillmentConfig,
	queueConfig *domain.QueueConfig,
	logger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *FulfillmentWorker {
	// Different platforms proceed in parallel; each is capped at PerPlatformLimit
	limit := config.PerPlatformLimit
	if limit < 1 {
		limit = 1
	}
	platformSemaphores := make(map[domain.Platform]chan struct{})
	for platform := range fetchers {
		platformSemaphores[platform] = make(chan struct{}, limit)
	}

	return &FulfillmentWorker{
		repo:               repo,
		queue:              queue,
		leaser:             leaser,
		fetchers:           fetchers,
		config:             config,
		queueConfig:        queueConfig,
		logger:             logger,
		multiLogger:        multiLogger,
		platformSemaphores: platformSemaphores,
	}
}

// Start re-enqueues every Pending job, then begins consuming the queue
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("fulfillment worker already running")
	}

	concurrency := w.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	loopCtx, cancelLoops := context.WithCancel(ctx)
	jobsCtx, cancelJobs := context.WithCancel(ctx)
	w.cancelLoops = cancelLoops
	w.cancelJobs = cancelJobs
	w.pool = pool.New().WithMaxGoroutines(concurrency)
	w.slots = make(chan struct{}, concurrency)
	w.running = true

	requeued, expired, err := w.reconcile(ctx, time.Now())
	if err != nil {
		w.multiLogger.LogAppError("Failed to recover pending jobs", zap.Error(err))
	}
	w.multiLogger.LogJobEvent("worker_started",
		zap.Int("concurrency", concurrency),
		zap.Int("recovered", requeued),
		zap.Int("expired", expired))

	w.loopWg.Add(2)
	go w.dequeueLoop(loopCtx, jobsCtx, w.pool, w.slots)
	go w.reconcileLoop(loopCtx)

	return nil
}

// Stop stops consuming and waits for in-flight jobs. When ctx ends first,
// in-flight attempts are cancelled and their jobs stay Pending for the next start.
func (w *FulfillmentWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("fulfillment worker not running")
	}
	w.running = false
	p := w.pool
	cancelLoops, cancelJobs := w.cancelLoops, w.cancelJobs
	w.mu.Unlock()

	cancelLoops()

	done := make(chan struct{})
	go func() {
		w.loopWg.Wait()
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cancelJobs()
		<-done
	}
	cancelJobs()

	w.multiLogger.LogJobEvent("worker_stopped")
	return nil
}

// IsRunning returns whether the worker is consuming the queue
func (w *FulfillmentWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *FulfillmentWorker) dequeueLoop(loopCtx, jobsCtx context.Context, p *pool.Pool, slots chan struct{}) {
	defer w.loopWg.Done()

	for {
		jobID, err := w.queue.Dequeue(loopCtx)
		if err != nil {
			if loopCtx.Err() != nil || errors.Is(err, domain.ErrQueueClosed) {
				return
			}
			w.multiLogger.LogAppError("Failed to dequeue job", zap.Error(err))
			select {
			case <-time.After(dequeueErrorBackoff):
				continue
			case <-loopCtx.Done():
				return
			}
		}

		select {
		case slots <- struct{}{}:
		case <-loopCtx.Done():
			// Never started: the job stays Pending until reconcile requeues it
			w.logger.Debug("Dropped dequeued job on shutdown", zap.String("id", jobID))
			return
		}

		p.Go(func() {
			defer func() { <-slots }()
			if err := w.Process(jobsCtx, jobID); err != nil {
				w.logger.Warn("Job left pending",
					zap.String("id", jobID),
					zap.Error(err))
			}
		})
	}
}

func (w *FulfillmentWorker) reconcileLoop(ctx context.Context) {
	defer w.loopWg.Done()

	ticker := time.NewTicker(w.queueConfig.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := w.Reconcile(ctx); err != nil {
				w.multiLogger.LogAppError("Failed to reconcile pending jobs", zap.Error(err))
			}
		}
	}
}

// Reconcile re-enqueues Pending jobs older than RequeueAfter and expires
// those older than PendingTTL. It returns how many jobs were requeued and expired.
func (w *FulfillmentWorker) Reconcile(ctx context.Context) (int, int, error) {
	return w.reconcile(ctx, time.Now().Add(-w.queueConfig.RequeueAfter))
}

func (w *FulfillmentWorker) reconcile(ctx context.Context, cutoff time.Time) (int, int, error) {
	stale, err := w.repo.FindPending(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	requeued, expired := 0, 0
	for _, job := range stale {
		if _, busy := w.inFlight.Load(job.ID); busy {
			continue
		}
		held, err := w.leaseHeld(ctx, job.ID)
		if err != nil {
			w.multiLogger.LogAppError("Failed to check job lease", zap.String("id", job.ID), zap.Error(err))
			continue
		}
		if held {
			continue
		}

		if ttl := w.queueConfig.PendingTTL; ttl > 0 && now.Sub(job.CreatedAt) >= ttl {
			msg := fmt.Sprintf("job expired: not fulfilled within %s", ttl)
			if _, err := w.repo.FinalizeFailed(ctx, job.ID, msg); err != nil {
				if !errors.Is(err, domain.ErrAlreadyFinalized) {
					w.multiLogger.LogAppError("Failed to expire job", zap.String("id", job.ID), zap.Error(err))
				}
				continue
			}
			w.multiLogger.LogJobEvent("job_expired",
				zap.String("id", job.ID),
				zap.Duration("age", now.Sub(job.CreatedAt)))
			expired++
			continue
		}

		if err := w.queue.Enqueue(ctx, job.ID); err != nil {
			if errors.Is(err, domain.ErrQueueFull) {
				break
			}
			return requeued, expired, fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
		}
		requeued++
	}

	if requeued > 0 || expired > 0 {
		w.logger.Info("Reconciled pending jobs",
			zap.Int("requeued", requeued),
			zap.Int("expired", expired))
	}
	return requeued, expired, nil
}

// Process runs one fulfillment of a job: fetch with retries, then finalize.
// A job already in flight here or leased elsewhere is skipped, as is one no longer Pending.
// A non-nil error means the job was left Pending.
func (w *FulfillmentWorker) Process(ctx context.Context, jobID string) error {
	if _, loaded := w.inFlight.LoadOrStore(jobID, struct{}{}); loaded {
		w.logger.Debug("Job already in flight", zap.String("id", jobID))
		return nil
	}
	defer w.inFlight.Delete(jobID)

	if w.leaser != nil {
		lease, ok, err := w.leaser.Acquire(ctx, jobID, w.leaseTTL())
		if err != nil {
			return fmt.Errorf("failed to lease job: %w", err)
		}
		if !ok {
			w.logger.Debug("Job leased by another worker", zap.String("id", jobID))
			return nil
		}

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		defer w.holdLease(ctx, jobID, lease, cancel)()
	}

	job, err := w.repo.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			w.logger.Warn("Dequeued unknown job", zap.String("id", jobID))
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}
	if !job.IsPending() {
		return nil
	}

	fetcher, ok := w.fetchers[job.Platform]
	if !ok {
		return w.fail(ctx, job, fmt.Sprintf("no fetcher for platform: %s", job.Platform))
	}

	platformSem := w.platformSemaphores[job.Platform]
	select {
	case platformSem <- struct{}{}:
		defer func() { <-platformSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	w.logger.Info("Processing job",
		zap.String("id", job.ID),
		zap.String("platform", string(job.Platform)),
		zap.String("media_type", string(job.MediaType)))

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := w.retryDelay(attempt)
			w.logger.Info("Retrying job",
				zap.String("id", job.ID),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", w.config.MaxRetries),
				zap.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		result, err := fetcher.Fetch(ctx, job)
		if err == nil {
			return w.complete(ctx, job, result)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		if !domain.IsRetryable(err) {
			return w.fail(ctx, job, fmt.Sprintf("retrieval failed: %v", err))
		}

		w.logger.Warn("Job attempt failed",
			zap.String("id", job.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return w.fail(ctx, job, fmt.Sprintf("retrieval failed after %d attempts: %v", w.config.MaxRetries+1, lastErr))
}

func (w *FulfillmentWorker) leaseTTL() time.Duration {
	if w.queueConfig.LeaseTTL > 0 {
		return w.queueConfig.LeaseTTL
	}
	return defaultLeaseTTL
}

func (w *FulfillmentWorker) leaseHeld(ctx context.Context, jobID string) (bool, error) {
	if w.leaser == nil {
		return false, nil
	}
	return w.leaser.Held(ctx, jobID)
}

// holdLease renews the lease until the returned func is called, which then
// releases it. Losing the lease calls abandon so the attempt stops.
func (w *FulfillmentWorker) holdLease(ctx context.Context, jobID string, lease domain.JobLease, abandon context.CancelFunc) func() {
	ttl := w.leaseTTL()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			err := lease.Renew(ctx, ttl)
			if errors.Is(err, domain.ErrLeaseLost) {
				w.multiLogger.LogAppError("Job lease lost, abandoning attempt", zap.String("id", jobID))
				abandon()
				return
			}
			if err != nil && ctx.Err() == nil {
				w.logger.Warn("Failed to renew job lease", zap.String("id", jobID), zap.Error(err))
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()

		releaseCtx, cancel := context.WithTimeout(context.Background(), leaseReleaseTimeout)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			w.logger.Warn("Failed to release job lease", zap.String("id", jobID), zap.Error(err))
		}
	}
}

// retryDelay doubles RetryDelay per attempt, capped at MaxRetryDelay
func (w *FulfillmentWorker) retryDelay(attempt int) time.Duration {
	delay := w.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if w.config.MaxRetryDelay > 0 && delay >= w.config.MaxRetryDelay {
			return w.config.MaxRetryDelay
		}
	}
	if w.config.MaxRetryDelay > 0 && delay > w.config.MaxRetryDelay {
		return w.config.MaxRetryDelay
	}
	return delay
}

func (w *FulfillmentWorker) complete(ctx context.Context, job *domain.DownloadJob, result *domain.FetchResult) error {
	done, err := w.repo.FinalizeCompleted(ctx, job.ID, result.Filename, result.FileSizeBytes)
	if err != nil {
		return w.finalizeError(job, err)
	}

	w.multiLogger.LogJobEvent("job_completed",
		zap.String("id", done.ID),
		zap.String("filename", result.Filename),
		zap.Int64("file_size_bytes", result.FileSizeBytes))
	return nil
}

func (w *FulfillmentWorker) fail(ctx context.Context, job *domain.DownloadJob, message string) error {
	if _, err := w.repo.FinalizeFailed(ctx, job.ID, message); err != nil {
		return w.finalizeError(job, err)
	}

	w.multiLogger.LogJobEvent("job_failed",
		zap.String("id", job.ID),
		zap.String("error", message))
	return nil
}

// finalizeError treats losing the finalize race as done; anything else leaves the job Pending
func (w *FulfillmentWorker) finalizeError(job *domain.DownloadJob, err error) error {
	if errors.Is(err, domain.ErrAlreadyFinalized) {
		w.multiLogger.LogJobEvent("finalize_conflict", zap.String("id", job.ID))
		return nil
	}
	w.multiLogger.LogAppError("Failed to finalize job", zap.String("id", job.ID), zap.Error(err))
	return fmt.Errorf("failed to finalize job: %w", err)
}
