package warmup

import (
	"context"
	"errors"
	"fmt"
	"rankview/internal/models"
	"rankview/internal/providers"
	"rankview/internal/services"
	"rankview/internal/structures"
	"rankview/internal/warmup/interfaces"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

// Scheduler keeps the first page of every board hot in the response cache.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	service services.LeaderboardServiceInterface
	metrics providers.MetricsProviderInterface
	cron    *gron.Cron
	running atomic.Bool
	passes  atomic.Int64
}

func (s *Scheduler) Init() {
	if !s.config.Warmup.Enabled {
		s.logger.Infof(providers.TypeApp, "Warm-up disabled")
		return
	}
	interval := s.config.Warmup.Interval
	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(interval), func() {
		s.tick(interval)
	})
	s.cron.Start()
	s.logger.Infof(providers.TypeApp, "Warm-up scheduled every %s", interval)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// tick runs one pass unless the previous one is still going.
func (s *Scheduler) tick(budget time.Duration) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warnf(providers.TypeApp, "Skipping warm-up: previous pass still running")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	if err := s.WarmUp(ctx); err != nil {
		s.logger.Errorf(providers.TypeApp, "Warm-up incomplete: %s", err)
	}
}

// WarmUp refreshes page 1 of every kind and period. Failures do not stop the
// pass; they are joined into the returned error.
func (s *Scheduler) WarmUp(ctx context.Context) error {
	start := time.Now()
	var errs []error
	for _, kind := range models.Kinds() {
		for _, period := range models.Periods() {
			state := models.PageState{Kind: kind, Period: period, Page: 1}
			if err := s.service.Prefetch(ctx, state); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", state.Key(), err))
			}
		}
	}
	elapsed := time.Since(start)
	s.metrics.ObserveWarmupDuration(elapsed)
	n := s.passes.Inc()
	s.logger.Debugf(providers.TypeApp, "Warm-up pass %d finished in %s with %d failures", n, elapsed, len(errs))
	return errors.Join(errs...)
}

// Passes counts completed warm-up passes.
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.LeaderboardServiceInterface, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
		metrics: metrics,
	}
}
