package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives a periodic reconciliation task, such as the dispatch
// sweep that requeues stuck rows and revives runners for running campaigns.
type Scheduler struct {
	logger    *zap.Logger
	interval  time.Duration
	taskFunc  func(context.Context) error
	stopCh    chan struct{}
	doneCh    chan struct{}
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a scheduler that runs taskFunc every interval.
func NewScheduler(logger *zap.Logger, interval time.Duration, taskFunc func(context.Context) error) *Scheduler {
	return &Scheduler{
		logger:   logger,
		interval: interval,
		taskFunc: taskFunc,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic loop. The task runs once immediately so crash
// recovery does not wait a full interval after boot.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrSchedulerAlreadyRunning
	}

	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Sweep scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the loop and waits for an in-flight task to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	s.logger.Info("Sweep scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	if err := s.executeTask(ctx); err != nil {
		s.logger.Error("Initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep scheduler context canceled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.executeTask(ctx); err != nil {
				s.logger.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

// executeTask bounds one run so a hung task cannot pile up behind the next
// tick.
func (s *Scheduler) executeTask(ctx context.Context) error {
	timeout := s.interval - time.Second
	if timeout <= 0 {
		timeout = s.interval
	}

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("Running sweep")
	return s.taskFunc(taskCtx)
}
