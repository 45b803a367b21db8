package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
)

// JobProcessor defines the interface for processing different job types
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	CanProcess(jobType models.JobType) bool
}

// Worker polls one queue and runs the jobs it claims
type Worker struct {
	id           string
	queue        string
	jobService   jobs.Service
	processors   []JobProcessor
	pollInterval time.Duration
}

// NewWorker creates a new worker instance
func NewWorker(id, queue string, jobService jobs.Service, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		id:           id,
		queue:        queue,
		jobService:   jobService,
		pollInterval: pollInterval,
	}
}

// RegisterProcessor registers a job processor
func (w *Worker) RegisterProcessor(processor JobProcessor) {
	w.processors = append(w.processors, processor)
}

func (w *Worker) ID() string {
	return w.id
}

// Run polls until ctx is cancelled. A job that has started runs to
// completion even if ctx is cancelled meanwhile.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[DEBUG] Worker %s starting on queue %s", w.id, w.queue)
	defer log.Printf("[DEBUG] Worker %s stopped", w.id)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Drain the queue before waiting for the next tick
			for ctx.Err() == nil {
				processed, err := w.ProcessNext(ctx)
				if err != nil {
					log.Printf("[ERROR] Worker %s: %v", w.id, err)
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessNext claims and processes one job. It reports whether a job was
// claimed; job failures are recorded on the job, not returned.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.jobService.ClaimNextJob(ctx, w.id, w.queue)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJobsAvailable) {
			return false, nil
		}
		return false, err
	}

	// The job outlives a shutdown request
	jobCtx := context.WithoutCancel(ctx)

	processor := w.processorFor(job.Type)
	if processor == nil {
		failErr := models.NewNotFoundError("no_processor", fmt.Sprintf("no processor registered for job type %s", job.Type))
		return true, w.fail(jobCtx, job, failErr)
	}

	started := time.Now()
	if err := w.runSafely(jobCtx, processor, job); err != nil {
		return true, w.fail(jobCtx, job, err)
	}

	if err := w.jobService.CompleteJob(jobCtx, job.ID, job.Result); err != nil {
		return true, fmt.Errorf("failed to mark job %d as completed: %w", job.ID, err)
	}
	log.Printf("[INFO] Worker %s completed %s job %d in %s", w.id, job.Type, job.ID, time.Since(started).Round(time.Millisecond))
	return true, nil
}

func (w *Worker) processorFor(jobType models.JobType) JobProcessor {
	for _, p := range w.processors {
		if p.CanProcess(jobType) {
			return p
		}
	}
	return nil
}

func (w *Worker) runSafely(ctx context.Context, p JobProcessor, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Worker %s: panic in %s job %d: %v\n%s", w.id, job.Type, job.ID, r, debug.Stack())
			err = models.NewJobError(models.ErrorTypeSystem, "panic", fmt.Sprintf("processor panicked: %v", r), nil)
		}
	}()
	return p.ProcessJob(ctx, job)
}

func (w *Worker) fail(ctx context.Context, job *models.Job, cause error) error {
	if err := w.jobService.FailJob(ctx, job.ID, cause); err != nil {
		return fmt.Errorf("failed to mark job %d as failed: %w", job.ID, err)
	}
	return nil
}

// WorkerPool runs a fixed number of workers on one queue
type WorkerPool struct {
	queue   string
	workers []*Worker
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue string, jobService jobs.Service, workerCount int, pollInterval time.Duration) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	pool := &WorkerPool{queue: queue, workers: make([]*Worker, workerCount)}
	for i := range pool.workers {
		workerID := fmt.Sprintf("%s-%d-%s", queue, i+1, uuid.NewString()[:8])
		pool.workers[i] = NewWorker(workerID, queue, jobService, pollInterval)
	}
	return pool
}

// RegisterProcessor registers a processor with all workers
func (p *WorkerPool) RegisterProcessor(processor JobProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, worker := range p.workers {
		worker.RegisterProcessor(processor)
	}
}

func (p *WorkerPool) Queue() string {
	return p.queue
}

func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Run blocks until ctx is cancelled and every worker has finished its job
func (p *WorkerPool) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, worker := range p.workers {
		g.Go(func() error { return worker.Run(ctx) })
	}
	return g.Wait()
}

// Start runs the pool in the background
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return fmt.Errorf("worker pool %s already started", p.queue)
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	log.Printf("[INFO] Starting %s worker pool with %d workers", p.queue, len(p.workers))
	go func(done chan struct{}) {
		defer close(done)
		_ = p.Run(ctx)
	}(p.done)
	return nil
}

// Stop stops all workers gracefully
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	log.Printf("[INFO] Stopping %s worker pool", p.queue)
	cancel()
	<-done
}
