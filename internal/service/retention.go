package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"room_controller/internal/logger"
	"room_controller/internal/repository"
)

const pruneTimeout = 10 * time.Second

// RetentionService periodically drops journal events older than the retention window.
type RetentionService struct {
	repo      repository.EventRepo
	retention time.Duration
	every     time.Duration
	log       *logger.Logger
	scheduler gocron.Scheduler
	now       func() time.Time
}

func NewRetentionService(repo repository.EventRepo, retention, every time.Duration, log *logger.Logger) (*RetentionService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create retention scheduler: %w", err)
	}
	return &RetentionService{
		repo:      repo,
		retention: retention,
		every:     every,
		log:       log,
		scheduler: s,
		now:       time.Now,
	}, nil
}

// Start schedules the prune job and starts the scheduler.
func (r *RetentionService) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.every),
		gocron.NewTask(r.prune),
		gocron.WithName("journal-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule retention job: %w", err)
	}
	r.scheduler.Start()
	r.log.Infow("retention_started", "retention", r.retention, "every", r.every)
	return nil
}

// Stop shuts the scheduler down, waiting for a running prune.
func (r *RetentionService) Stop() error {
	return r.scheduler.Shutdown()
}

// PruneNow deletes events older than the retention window.
func (r *RetentionService) PruneNow(ctx context.Context) (int64, error) {
	return r.repo.Prune(ctx, r.now().Add(-r.retention))
}

func (r *RetentionService) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	n, err := r.PruneNow(ctx)
	if err != nil {
		r.log.Errorw("retention_prune_failed", "err", err)
		return
	}
	if n > 0 {
		r.log.Infow("retention_pruned", "events", n)
	}
}
