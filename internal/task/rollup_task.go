package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"openhaus/internal/service"
)

// RollupTask runs the nightly analytics aggregation: summarize
// yesterday's raw events, then prune rows past retention.
type RollupTask struct {
	analytics *service.AnalyticsService
	cron      *cron.Cron
	logger    *zap.Logger
}

func NewRollupTask(analytics *service.AnalyticsService, logger *zap.Logger) *RollupTask {
	return &RollupTask{
		analytics: analytics,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger.Named("task.rollup"),
	}
}

func (t *RollupTask) Start() {
	// 00:30: past midnight with slack for clock skew, before anyone
	// reads yesterday's dashboard.
	_, err := t.cron.AddFunc("0 30 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.runJob(ctx)
	})
	if err != nil {
		t.logger.Fatal("rollup schedule failed", zap.Error(err))
	}

	t.cron.Start()
	t.logger.Info("rollup task started", zap.String("schedule", "00:30 daily"))
}

func (t *RollupTask) Stop() {
	t.cron.Stop()
}

// RunNow is the manual-trigger entry point.
func (t *RollupTask) RunNow(ctx context.Context) error {
	if err := t.analytics.RollupYesterday(ctx); err != nil {
		return err
	}
	_, err := t.analytics.PruneEvents(ctx)
	return err
}

func (t *RollupTask) runJob(ctx context.Context) {
	if err := t.analytics.RollupYesterday(ctx); err != nil {
		t.logger.Error("nightly rollup failed", zap.Error(err))
		return
	}
	if _, err := t.analytics.PruneEvents(ctx); err != nil {
		t.logger.Error("event prune failed", zap.Error(err))
	}
}
