package task

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"openhaus/internal/service"
)

// ErrTaskDisabled is returned by manual triggers when the task was
// switched off in config.
var ErrTaskDisabled = errors.New("task disabled")

// ==================== TaskManager ====================

// TaskManager owns the background schedules: the nightly analytics
// rollup, the digest sends, and the expiry sweep.
type TaskManager struct {
	rollupTask *RollupTask
	digestTask *DigestTask
	sweepTask  *SweepTask

	logger *zap.Logger
}

type TaskManagerDeps struct {
	AnalyticsService *service.AnalyticsService
	DigestService    *service.DigestService
	ListingService   *service.ListingService
	AuthService      *service.AuthService
	SettingsService  *service.SettingsService
}

type TaskManagerConfig struct {
	RollupEnabled bool
	DigestEnabled bool
	SweepEnabled  bool

	DigestConcurrency int
}

func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		RollupEnabled:     true,
		DigestEnabled:     true,
		SweepEnabled:      true,
		DigestConcurrency: 5,
	}
}

func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig, logger *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{logger: logger.Named("tasks")}

	if cfg.RollupEnabled && deps.AnalyticsService != nil {
		tm.rollupTask = NewRollupTask(deps.AnalyticsService, logger)
	}

	if cfg.DigestEnabled && deps.DigestService != nil {
		tm.digestTask = NewDigestTask(deps.DigestService, deps.SettingsService, logger)
		tm.digestTask.SetConcurrency(cfg.DigestConcurrency)
	}

	if cfg.SweepEnabled && deps.ListingService != nil && deps.AuthService != nil {
		tm.sweepTask = NewSweepTask(deps.ListingService, deps.AuthService, logger)
	}

	return tm
}

// ==================== Lifecycle ====================

func (tm *TaskManager) Start() {
	if tm.rollupTask != nil {
		tm.rollupTask.Start()
	}
	if tm.digestTask != nil {
		tm.digestTask.Start()
	}
	if tm.sweepTask != nil {
		tm.sweepTask.Start()
	}
	tm.logger.Info("background tasks started")
}

func (tm *TaskManager) Stop() {
	if tm.rollupTask != nil {
		tm.rollupTask.Stop()
	}
	if tm.digestTask != nil {
		tm.digestTask.Stop()
	}
	if tm.sweepTask != nil {
		tm.sweepTask.Stop()
	}
	tm.logger.Info("background tasks stopped")
}

// ==================== Manual triggers ====================

func (tm *TaskManager) TriggerRollup(ctx context.Context) error {
	if tm.rollupTask == nil {
		return ErrTaskDisabled
	}
	return tm.rollupTask.RunNow(ctx)
}

func (tm *TaskManager) TriggerDigests(ctx context.Context, freq string) error {
	if tm.digestTask == nil {
		return ErrTaskDisabled
	}
	return tm.digestTask.RunNow(ctx, freq)
}

func (tm *TaskManager) TriggerSweep(ctx context.Context) error {
	if tm.sweepTask == nil {
		return ErrTaskDisabled
	}
	return tm.sweepTask.RunNow(ctx)
}
