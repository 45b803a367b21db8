// Package cleanup periodically removes stale download files and old
// finished jobs.
package cleanup

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/killallgit/sermon-clips/pkg/download"
)

// JobCleaner deletes finished jobs older than retention
type JobCleaner interface {
	CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error)
}

// Config for the cleanup service. A zero JobRetention keeps jobs forever.
type Config struct {
	TempDir      string
	MaxFileAge   time.Duration
	JobRetention time.Duration
	Interval     time.Duration
}

// Service handles cleanup of temporary files and job history
type Service struct {
	cfg    Config
	jobs   JobCleaner
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service
func NewService(cfg Config, jobs JobCleaner) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MaxFileAge <= 0 {
		cfg.MaxFileAge = 24 * time.Hour
	}
	return &Service{cfg: cfg, jobs: jobs}
}

// Start runs one sweep immediately and then one per interval
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Sweep(ctx)

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				log.Println("[INFO] Cleanup service stopped")
				return
			}
		}
	}(s.done)

	log.Printf("[INFO] Cleanup service started (interval: %v, max file age: %v, job retention: %v)",
		s.cfg.Interval, s.cfg.MaxFileAge, s.cfg.JobRetention)
}

// Stop stops the cleanup service and waits for a running sweep
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Sweep removes stale temp files and old jobs once. Errors are logged.
func (s *Service) Sweep(ctx context.Context) (files int, jobs int64) {
	if s.cfg.TempDir != "" {
		if _, err := os.Stat(s.cfg.TempDir); err == nil {
			n, err := download.CleanupOldTempFiles(s.cfg.TempDir, s.cfg.MaxFileAge)
			if err != nil {
				log.Printf("[ERROR] Temp file cleanup failed: %v", err)
			}
			files = n
		}
	}

	if s.jobs != nil && s.cfg.JobRetention > 0 {
		n, err := s.jobs.CleanupOldJobs(ctx, s.cfg.JobRetention)
		if err != nil {
			log.Printf("[ERROR] Job cleanup failed: %v", err)
		}
		jobs = n
	}

	if files > 0 || jobs > 0 {
		log.Printf("[INFO] Cleanup removed %d temp files and %d jobs", files, jobs)
	}
	return files, jobs
}
