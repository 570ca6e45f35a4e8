package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	schedulererrors "leavedesk/internal/scheduler/errors"
)

const defaultTickInterval = time.Hour

// Scheduler periodically attempts the period jobs. Attempts are cheap: the
// job log's SUCCESS marker turns a repeat attempt into a skip, so the tick
// interval only bounds how late a job can start, never how often it runs.
type Scheduler struct {
	service  Service
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func New(service Service, interval time.Duration, logger ...*zap.Logger) *Scheduler {
	l := zap.L().Named("scheduler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   l,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// One attempt right away so a restart never waits a full interval.
		s.tick()

		for {
			select {
			case <-s.stop:
				s.logger.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	now := s.now()

	// Yearly reset goes first in January so the monthly accrual lands on
	// freshly reset balances.
	if now.Month() == time.January {
		if _, err := s.service.RunYearlyReset(ctx, now, false, nil); err != nil &&
			!errors.Is(err, schedulererrors.ErrJobAlreadyExecuted) {
			s.logger.Error("yearly reset attempt failed", zap.Error(err))
			return
		}
	}

	if _, err := s.service.RunMonthlyAccrual(ctx, now); err != nil &&
		!errors.Is(err, schedulererrors.ErrJobAlreadyExecuted) {
		s.logger.Error("monthly accrual attempt failed", zap.Error(err))
	}
}
