// Package scheduler triggers content pipeline runs on a fixed interval
package scheduler

import (
	"context"
	"sync"
	"time"

	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/amirphl/Susanoo/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRuns bounds how many initiatives run in parallel per tick
const maxConcurrentRuns = 2

// ContentScheduler periodically runs the content pipeline for the configured initiatives
type ContentScheduler struct {
	pipeline      businessflow.ContentPipelineFlow
	initiativeIDs []string
	interval      time.Duration
	runTimeout    time.Duration
	logger        *zap.Logger
}

func NewContentScheduler(pipeline businessflow.ContentPipelineFlow, cfg config.SchedulerConfig, logger *zap.Logger) *ContentScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ids := make([]string, len(cfg.InitiativeIDs))
	copy(ids, cfg.InitiativeIDs)
	return &ContentScheduler{
		pipeline:      pipeline,
		initiativeIDs: ids,
		interval:      interval,
		runTimeout:    cfg.RunTimeout,
		logger:        logger.Named("scheduler"),
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop
// function. Stop cancels in-flight runs and waits for the loop to exit.
func (s *ContentScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	s.logger.Info("Content scheduler started",
		zap.Duration("interval", s.interval),
		zap.Strings("initiative_ids", s.initiativeIDs),
	)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			s.logger.Info("Content scheduler stopped")
		})
	}
}

// RunOnce runs every configured initiative and waits for all of them
func (s *ContentScheduler) RunOnce(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRuns)

	for _, id := range s.initiativeIDs {
		initiativeID := id
		g.Go(func() error {
			s.runInitiative(gctx, initiativeID)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *ContentScheduler) runInitiative(ctx context.Context, initiativeID string) {
	if ctx.Err() != nil {
		return
	}
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled run panicked", zap.String("initiative_id", initiativeID), zap.Any("panic", r))
		}
	}()

	summary, err := s.pipeline.Run(ctx, initiativeID)
	if err != nil {
		if businessflow.IsPipelineAlreadyRunning(err) {
			s.logger.Info("Skipping initiative, run already in progress", zap.String("initiative_id", initiativeID))
			return
		}
		s.logger.Error("Scheduled run failed", zap.String("initiative_id", initiativeID), zap.Error(err))
		return
	}

	s.logger.Info("Scheduled run finished",
		zap.String("initiative_id", initiativeID),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.String("report", summary.ReportPath),
	)
}
