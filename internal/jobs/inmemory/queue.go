package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/jobs"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/google/uuid"
)

const (
	defaultWorkerCount = 5
	defaultMaxRetries  = 3
)

// Queue runs archive jobs on a fixed pool of goroutines. Publishing never
// waits: a full buffer rejects the job with jobs.ErrQueueFull and the job is
// recorded as failed.
type Queue struct {
	jobChan     chan *jobs.ArchiveStatementJob
	closeChan   chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	store       jobs.JobStore
	closed      bool
	workerCount int

	backoff func(retry int) time.Duration
}

// NewQueue buffers up to bufferSize jobs. A non-positive workerCount uses five
// workers.
func NewQueue(bufferSize, workerCount int, store jobs.JobStore) *Queue {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return &Queue{
		jobChan:     make(chan *jobs.ArchiveStatementJob, bufferSize),
		closeChan:   make(chan struct{}),
		store:       store,
		workerCount: workerCount,
		backoff: func(retry int) time.Duration {
			return time.Duration(1<<(retry-1)) * time.Second
		},
	}
}

func (q *Queue) PublishArchiveStatement(ctx context.Context, job *jobs.ArchiveStatementJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}

	// Saved before the send so a worker's running status is never overwritten.
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishArchiveStatement: saving job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	default:
		job.Content = nil
		if q.store != nil {
			_ = q.store.UpdateJobStatus(ctx, job.JobID, jobs.JobStatusFailed, jobs.ErrQueueFull.Error())
		}
		return jobs.ErrQueueFull
	}
}

// Start launches the workers. They stop when ctx is cancelled or the queue is
// stopped.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return jobs.ErrQueueClosed
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.ArchiveStatementJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("import_id", job.ImportID).
		Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		job.Content = nil
	case job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		log.Warn().Err(err).Int("retry", job.RetryCount).Msg("Archive job failed, retrying")

		time.AfterFunc(q.backoff(job.RetryCount), func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if err := q.PublishArchiveStatement(ctx, job); err != nil {
				log.Error().Err(err).Msg("Archive job dropped on retry")
			}
		})
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		job.Content = nil
		log.Error().Err(err).Msg("Archive job failed permanently")
	}

	q.save(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.ArchiveStatementJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop closes the queue and waits for in-flight jobs or ctx, whichever
// comes first. Buffered jobs that were not started are abandoned.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
