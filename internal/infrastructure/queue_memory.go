package infrastructure

import (
	"context"
	"sync"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// MemoryJobQueue is an in-process job queue backed by a buffered channel
type MemoryJobQueue struct {
	mu      sync.Mutex
	ch      chan string
	waiting map[string]struct{}
	closed  bool
}

// NewMemoryJobQueue creates a queue holding at most bufferSize ids
func NewMemoryJobQueue(bufferSize int) *MemoryJobQueue {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &MemoryJobQueue{
		ch:      make(chan string, bufferSize),
		waiting: make(map[string]struct{}),
	}
}

// Enqueue adds a job id without blocking. An id already waiting is not added
// again; a full buffer returns ErrQueueFull.
func (q *MemoryJobQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}
	if _, ok := q.waiting[jobID]; ok {
		return nil
	}
	select {
	case q.ch <- jobID:
		q.waiting[jobID] = struct{}{}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until a job id is available, the context ends or the queue is closed
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case id, ok := <-q.ch:
		if !ok {
			return "", domain.ErrQueueClosed
		}
		q.mu.Lock()
		delete(q.waiting, id)
		q.mu.Unlock()
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len returns the number of buffered ids
func (q *MemoryJobQueue) Len() int {
	return len(q.ch)
}

// Close stops the queue. Buffered ids are still delivered.
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
