package task

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"openhaus/internal/model"
	"openhaus/internal/service"
)

// Delivery bookkeeping is kept about three months before the daily
// run prunes it.
const runRetention = 90 * 24 * time.Hour

// DigestTask schedules the subscriber and admin digest sends. Daily
// digests and the admin summary go out every morning; weekly digests
// go out Mondays, same hour.
type DigestTask struct {
	digest   *service.DigestService
	settings *service.SettingsService
	cron     *cron.Cron
	logger   *zap.Logger

	concurrency int
}

func NewDigestTask(digest *service.DigestService, settings *service.SettingsService, logger *zap.Logger) *DigestTask {
	return &DigestTask{
		digest:      digest,
		settings:    settings,
		cron:        cron.New(cron.WithSeconds()),
		logger:      logger.Named("task.digest"),
		concurrency: 5,
	}
}

// SetConcurrency bounds the subscriber fan-out.
func (t *DigestTask) SetConcurrency(n int) {
	if n > 0 {
		t.concurrency = n
	}
}

func (t *DigestTask) Start() {
	// The send hour is an admin setting, read once at startup. Changing
	// it takes effect on the next restart.
	hour := t.settings.DigestSendHour(context.Background())

	daily := fmt.Sprintf("0 0 %d * * *", hour)
	weekly := fmt.Sprintf("0 15 %d * * 1", hour)

	if _, err := t.cron.AddFunc(daily, func() { t.runDaily() }); err != nil {
		t.logger.Fatal("daily digest schedule failed", zap.Error(err))
	}
	if _, err := t.cron.AddFunc(weekly, func() { t.runWeekly() }); err != nil {
		t.logger.Fatal("weekly digest schedule failed", zap.Error(err))
	}

	t.cron.Start()
	t.logger.Info("digest task started", zap.Int("send_hour", hour))
}

func (t *DigestTask) Stop() {
	t.cron.Stop()
}

func (t *DigestTask) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := t.digest.RunSubscriberDigests(ctx, model.DigestFreqDaily, t.concurrency); err != nil {
		t.logger.Error("daily subscriber digests failed", zap.Error(err))
	}
	if _, err := t.digest.RunAdminDigest(ctx); err != nil {
		t.logger.Error("admin digest failed", zap.Error(err))
	}
	if _, err := t.digest.PruneRuns(ctx, runRetention); err != nil {
		t.logger.Error("digest run prune failed", zap.Error(err))
	}
}

func (t *DigestTask) runWeekly() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := t.digest.RunSubscriberDigests(ctx, model.DigestFreqWeekly, t.concurrency); err != nil {
		t.logger.Error("weekly subscriber digests failed", zap.Error(err))
	}
}

// RunNow sends one frequency's digests immediately.
func (t *DigestTask) RunNow(ctx context.Context, freq string) error {
	_, err := t.digest.RunSubscriberDigests(ctx, freq, t.concurrency)
	return err
}
