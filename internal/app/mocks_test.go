package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// mockRepo implements domain.JobRepository in memory
type mockRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.DownloadJob
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[string]*domain.DownloadJob)}
}

func copyJob(j *domain.DownloadJob) *domain.DownloadJob {
	c := *j
	return &c
}

func (m *mockRepo) Create(ctx context.Context, job *domain.DownloadJob) error {
	if job.Status != domain.StatusPending {
		return domain.ErrInvalidJob
	}
	if err := job.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = copyJob(job)
	return nil
}

func (m *mockRepo) finalize(id string, apply func(j *domain.DownloadJob)) (*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if !j.IsPending() {
		return nil, domain.ErrAlreadyFinalized
	}
	apply(j)
	now := time.Now().UTC()
	j.FinalizedAt = &now
	return copyJob(j), nil
}

func (m *mockRepo) FinalizeCompleted(ctx context.Context, id, filename string, sizeBytes int64) (*domain.DownloadJob, error) {
	if filename == "" || sizeBytes <= 0 {
		return nil, domain.ErrInvalidJob
	}
	return m.finalize(id, func(j *domain.DownloadJob) {
		j.Status = domain.StatusCompleted
		j.Filename = &filename
		j.FileSizeBytes = &sizeBytes
	})
}

func (m *mockRepo) FinalizeFailed(ctx context.Context, id, errorMessage string) (*domain.DownloadJob, error) {
	return m.finalize(id, func(j *domain.DownloadJob) {
		j.Status = domain.StatusFailed
		j.ErrorMessage = &errorMessage
	})
}

func (m *mockRepo) Get(ctx context.Context, id string) (*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return copyJob(j), nil
}

func (m *mockRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := []*domain.DownloadJob{}
	for _, j := range m.jobs {
		if j.OwnerID == ownerID {
			jobs = append(jobs, copyJob(j))
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	return jobs, nil
}

func (m *mockRepo) FindPending(ctx context.Context, createdBefore time.Time) ([]*domain.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*domain.DownloadJob
	for _, j := range m.jobs {
		if j.IsPending() && j.CreatedAt.Before(createdBefore) {
			jobs = append(jobs, copyJob(j))
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	return jobs, nil
}

func (m *mockRepo) GetStats(ctx context.Context) (*domain.JobStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.JobStats{}
	for _, j := range m.jobs {
		stats.Total++
		switch j.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// put stores a job bypassing Create, for seeding old or terminal records
func (m *mockRepo) put(job *domain.DownloadJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = copyJob(job)
}

// mockQueue records enqueued ids and can be told to fail
type mockQueue struct {
	mu      sync.Mutex
	ids     []string
	failErr error
}

func (q *mockQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failErr != nil {
		return q.failErr
	}
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *mockQueue) Dequeue(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (q *mockQueue) Close() error { return nil }

func (q *mockQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// mockIdentityProvider maps tokens to principals
type mockIdentityProvider struct {
	principals map[string]*domain.Principal
}

func (p *mockIdentityProvider) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	principal, ok := p.principals[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return principal, nil
}

// mockSubscriptions maps user ids to active plans
type mockSubscriptions struct {
	plans map[string]domain.PlanTier
	err   error
}

func (s *mockSubscriptions) GetActivePlan(ctx context.Context, userID string) (domain.PlanTier, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	plan, ok := s.plans[userID]
	return plan, ok, nil
}

// countingEvaluator wraps the policy evaluator and counts invocations
type countingEvaluator struct {
	calls atomic.Int32
	inner domain.Evaluator
}

func (e *countingEvaluator) Evaluate(identity domain.UserIdentity, target domain.MediaTarget) domain.Decision {
	e.calls.Add(1)
	return e.inner.Evaluate(identity, target)
}

// scriptedFetcher returns queued errors before succeeding
type scriptedFetcher struct {
	platform domain.Platform
	mu       sync.Mutex
	errs     []error
	always   error
	calls    atomic.Int32
	block    chan struct{}
}

func (f *scriptedFetcher) Platform() domain.Platform { return f.platform }

func (f *scriptedFetcher) Fetch(ctx context.Context, job *domain.DownloadJob) (*domain.FetchResult, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, domain.Retryable(ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.always != nil {
		return nil, f.always
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &domain.FetchResult{Filename: "artifact.bin", FileSizeBytes: 42}, nil
}

var errSourceDown = errors.New("source unavailable")

// mockLeaser keeps leases in memory. Holders other than this process are
// seeded with holdElsewhere; steal makes the current holder's next renewal fail.
type mockLeaser struct {
	mu      sync.Mutex
	holders map[string]*mockLease
	renews  atomic.Int32
}

type mockLease struct {
	leaser *mockLeaser
	jobID  string
}

func newMockLeaser() *mockLeaser {
	return &mockLeaser{holders: make(map[string]*mockLease)}
}

func (l *mockLeaser) Acquire(ctx context.Context, jobID string, ttl time.Duration) (domain.JobLease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.holders[jobID]; held {
		return nil, false, nil
	}
	lease := &mockLease{leaser: l, jobID: jobID}
	l.holders[jobID] = lease
	return lease, true, nil
}

func (l *mockLeaser) Held(ctx context.Context, jobID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.holders[jobID]
	return held, nil
}

func (l *mockLeaser) holdElsewhere(jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders[jobID] = &mockLease{leaser: l, jobID: jobID}
}

func (l *mockLeaser) steal(jobID string) {
	l.holdElsewhere(jobID)
}

func (m *mockLease) Renew(ctx context.Context, ttl time.Duration) error {
	m.leaser.renews.Add(1)
	m.leaser.mu.Lock()
	defer m.leaser.mu.Unlock()
	if m.leaser.holders[m.jobID] != m {
		return domain.ErrLeaseLost
	}
	return nil
}

func (m *mockLease) Release(ctx context.Context) error {
	m.leaser.mu.Lock()
	defer m.leaser.mu.Unlock()
	if m.leaser.holders[m.jobID] == m {
		delete(m.leaser.holders, m.jobID)
	}
	return nil
}
