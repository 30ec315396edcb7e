package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"hogar_scrooper/config"
	"hogar_scrooper/logging"
)

// BatchRunner is a background job run on the schedule
type BatchRunner interface {
	ProcessBatch(ctx context.Context) (processed, failed int)
}

// Scheduler drives the media worker from a cron expression, or a fixed
// interval when no cron is configured.
type Scheduler struct {
	cfg    config.SchedulerConfig
	runner BatchRunner
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once

	// running guards against overlapping batches when a run outlasts the
	// schedule.
	running sync.Mutex
}

func New(cfg config.SchedulerConfig, runner BatchRunner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Cron != "" {
		logging.Infof("Starting media scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.run(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Interval <= 0 {
		logging.Infof("No media schedule configured, photos will not be archived")
		return nil
	}

	logging.Infof("Starting media scheduler with interval: %s", s.cfg.Interval)
	s.ticker = time.NewTicker(s.cfg.Interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.run(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// TriggerNow runs one batch immediately unless one is already running.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	return s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) bool {
	if !s.running.TryLock() {
		logging.Debugf("Media batch still running, skipping tick")
		return false
	}
	defer s.running.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.runner.ProcessBatch(ctx)
	return true
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}
