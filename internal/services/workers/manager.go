package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/killallgit/sermon-clips/internal/models"
	"github.com/killallgit/sermon-clips/internal/services/jobs"
)

// ManagerConfig sizes the per-queue pools
type ManagerConfig struct {
	PollInterval time.Duration
	// Concurrency per queue name; missing queues get one worker
	Concurrency map[string]int
	// StaleAfter is how long a job may sit in processing before a starting
	// manager requeues it. Zero requeues every job claimed before start.
	StaleAfter time.Duration
}

// Manager owns one worker pool per queue
type Manager struct {
	jobService jobs.Service
	staleAfter time.Duration
	pools      []*WorkerPool
}

// NewManager creates a pool for every queue and registers all processors
// with each of them. Workers pick the processor by job type.
func NewManager(jobService jobs.Service, cfg ManagerConfig, processors ...JobProcessor) *Manager {
	m := &Manager{jobService: jobService, staleAfter: cfg.StaleAfter}
	for _, queue := range models.Queues {
		pool := NewWorkerPool(queue, jobService, cfg.Concurrency[queue], cfg.PollInterval)
		for _, p := range processors {
			pool.RegisterProcessor(p)
		}
		m.pools = append(m.pools, pool)
	}
	return m
}

func (m *Manager) Pools() []*WorkerPool {
	return m.pools
}

// reclaim requeues jobs orphaned by a previous process so their entities
// can be worked on again
func (m *Manager) reclaim(ctx context.Context) error {
	if _, err := m.jobService.ReclaimStaleJobs(ctx, m.staleAfter); err != nil {
		return fmt.Errorf("reclaiming stale jobs: %w", err)
	}
	return nil
}

// Run blocks until ctx is cancelled and every pool has drained
func (m *Manager) Run(ctx context.Context) error {
	if err := m.reclaim(ctx); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, pool := range m.pools {
		g.Go(func() error { return pool.Run(ctx) })
	}
	return g.Wait()
}

func (m *Manager) Start(ctx context.Context) error {
	if err := m.reclaim(ctx); err != nil {
		return err
	}
	for _, pool := range m.pools {
		if err := pool.Start(ctx); err != nil {
			m.Stop()
			return err
		}
	}
	return nil
}

// Stop stops the pools concurrently and waits for running jobs
func (m *Manager) Stop() {
	var g errgroup.Group
	for _, pool := range m.pools {
		g.Go(func() error {
			pool.Stop()
			return nil
		})
	}
	_ = g.Wait()
	log.Printf("[INFO] All worker pools stopped")
}
