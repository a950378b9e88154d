package core

import (
	"context"
	"submerger/logger"
	"sync"
	"time"
)

// Scheduler invokes the refresh pipeline on a fixed interval.
type Scheduler struct {
	service  *RefreshService
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewScheduler(service *RefreshService, interval time.Duration) *Scheduler {
	return &Scheduler{service: service, interval: interval}
}

// Start launches the periodic refresh loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn("Scheduler is already running.")
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	logger.Info("Scheduler started. Refresh interval: %s", s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	logger.Info("Starting scheduled subscription refresh...")
	if err := s.service.RefreshAll(ctx); err != nil {
		logger.Error("Scheduled subscription refresh failed: %v", err)
		return
	}
	logger.Info("Scheduled subscription refresh completed.")
}

// Stop cancels the loop and waits for any in-flight refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	logger.Info("Scheduler stopped.")
}
