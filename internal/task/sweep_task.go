package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"openhaus/internal/service"
)

// SweepTask expires overdue listings and closes lapsed impersonation
// sessions. Cheap enough to run hourly.
type SweepTask struct {
	listing *service.ListingService
	auth    *service.AuthService
	cron    *cron.Cron
	logger  *zap.Logger
}

func NewSweepTask(listing *service.ListingService, auth *service.AuthService, logger *zap.Logger) *SweepTask {
	return &SweepTask{
		listing: listing,
		auth:    auth,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.Named("task.sweep"),
	}
}

func (t *SweepTask) Start() {
	// First pass shortly after boot so a long outage doesn't leave
	// stale rows visible until the next top of the hour.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := t.RunNow(ctx); err != nil {
			t.logger.Error("startup sweep failed", zap.Error(err))
		}
	}()

	_, err := t.cron.AddFunc("0 5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := t.RunNow(ctx); err != nil {
			t.logger.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		t.logger.Fatal("sweep schedule failed", zap.Error(err))
	}

	t.cron.Start()
	t.logger.Info("sweep task started", zap.String("schedule", "hourly at :05"))
}

func (t *SweepTask) Stop() {
	t.cron.Stop()
}

func (t *SweepTask) RunNow(ctx context.Context) error {
	expired, err := t.listing.ExpireDue(ctx)
	if err != nil {
		return err
	}

	revoked, err := t.auth.SweepExpiredImpersonations(ctx)
	if err != nil {
		return err
	}

	if expired > 0 || revoked > 0 {
		t.logger.Info("sweep done",
			zap.Int64("listings_expired", expired),
			zap.Int64("sessions_closed", revoked))
	}
	return nil
}
