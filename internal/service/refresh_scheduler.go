package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/tracing"
)

// RefreshExecutor runs one refresh batch
type RefreshExecutor interface {
	ProcessTemplateRefresh(ctx context.Context) domain.RefreshBatchResult
}

// RefreshScheduler runs the refresh batch on a cron schedule. Ticks never
// overlap: a tick that fires while a batch is running is skipped.
type RefreshScheduler struct {
	executor    RefreshExecutor
	logger      logger.Logger
	schedule    cron.Schedule
	spec        string
	stopChan    chan struct{}
	stoppedChan chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewRefreshScheduler parses spec as a standard cron expression, descriptors
// such as "@every 1m" are accepted
func NewRefreshScheduler(executor RefreshExecutor, logger logger.Logger, spec string) (*RefreshScheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return newRefreshScheduler(executor, logger, schedule, spec), nil
}

func newRefreshScheduler(executor RefreshExecutor, logger logger.Logger, schedule cron.Schedule, spec string) *RefreshScheduler {
	return &RefreshScheduler{
		executor:    executor,
		logger:      logger,
		schedule:    schedule,
		spec:        spec,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start runs a batch immediately, then on every scheduled tick
func (s *RefreshScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Refresh scheduler already running")
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithField("schedule", s.spec).Info("Starting template refresh scheduler")

	go s.run(ctx)
}

// Stop waits for an in flight batch, at most 5 seconds
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping refresh scheduler...")
	close(s.stopChan)

	select {
	case <-s.stoppedChan:
		s.logger.Info("Refresh scheduler stopped successfully")
	case <-time.After(5 * time.Second):
		s.logger.Warn("Refresh scheduler stop timeout exceeded")
	}
}

func (s *RefreshScheduler) run(ctx context.Context) {
	defer close(s.stoppedChan)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cronLog := logger.NewCronLogger(s.logger)
	job := cron.NewChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)).
		Then(cron.FuncJob(func() { s.executeRefresh(runCtx) }))

	c := cron.New(cron.WithLogger(cronLog))
	c.Schedule(s.schedule, job)
	c.Start()

	// Execute immediately on start
	var initial sync.WaitGroup
	initial.Add(1)
	go func() {
		defer initial.Done()
		job.Run()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Refresh scheduler context cancelled")
	case <-s.stopChan:
		s.logger.Info("Refresh scheduler received stop signal")
	}

	cancel()
	<-c.Stop().Done()
	initial.Wait()
}

func (s *RefreshScheduler) executeRefresh(ctx context.Context) {
	// codecov:ignore:start
	execCtx, span := tracing.StartServiceSpan(ctx, "RefreshScheduler", "executeRefresh")
	defer tracing.EndSpan(span, nil)
	// codecov:ignore:end

	s.logger.Debug("Refresh scheduler tick - processing due templates")

	startTime := time.Now()
	result := s.executor.ProcessTemplateRefresh(execCtx)

	s.logger.WithField("processed", result.Processed).
		WithField("errors", result.Errors).
		WithField("elapsed", time.Since(startTime)).
		Debug("Template refresh tick completed")
}

func (s *RefreshScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
