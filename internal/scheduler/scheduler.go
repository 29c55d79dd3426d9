// Package scheduler runs the daily price update and the periodic history
// refresh on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"CycleDCA/internal/metrics"
	"CycleDCA/internal/upsert"
)

// DailyUpdater performs the gated daily upsert.
type DailyUpdater interface {
	Run(ctx context.Context, force bool) (*upsert.Result, error)
}

// Refresher reaggregates the price history when stale.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (bool, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Updater   DailyUpdater
	Refresher Refresher

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewScheduler creates a new Scheduler. Cron specs carry a seconds field.
func NewScheduler(ctx context.Context, updater DailyUpdater, refresher Refresher) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Updater:   updater,
		Refresher: refresher,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RegisterAll registers the daily update and refresh tasks. An empty spec
// leaves that task unscheduled.
func (s *Scheduler) RegisterAll(dailyCron, refreshCron string) error {
	if dailyCron != "" && s.Updater != nil {
		if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
			return fmt.Errorf("register daily task: %w", err)
		}
	}
	if refreshCron != "" && s.Refresher != nil {
		if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.Cron.Stop().Done()
		log.Info().Msg("scheduler stopped")
	})
}

// RunDailyNow executes the daily task immediately (for RUN_ON_START).
func (s *Scheduler) RunDailyNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	if s.ctx.Err() != nil {
		return
	}
	log.Debug().Msg("running daily update")
	res, err := s.Updater.Run(s.ctx, false)
	if err != nil {
		metrics.RecordError("scheduler_daily")
		log.Error().Err(err).Msg("daily update failed")
		return
	}
	if res.Skipped {
		log.Debug().Time("next_due", res.NextDue).Msg("daily update skipped")
	}
}

func (s *Scheduler) refreshTask() {
	if s.ctx.Err() != nil {
		return
	}
	refreshed, err := s.Refresher.Refresh(s.ctx, false)
	if err != nil {
		metrics.RecordError("scheduler_refresh")
		log.Error().Err(err).Msg("history refresh failed")
		return
	}
	log.Debug().Bool("refreshed", refreshed).Msg("history refresh checked")
}
