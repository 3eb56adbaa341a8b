package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"openhaus/internal/model"
	"openhaus/internal/repository"
)

// ==================== AnalyticsService ====================

// AnalyticsService ingests raw events and serves dashboard series.
// Completed days come from the summary tables the nightly rollup
// writes; "today" is always computed live from raw events and merged
// in, so dashboards never show a gap before the next rollup.
type AnalyticsService struct {
	eventRepo   repository.EventRepository
	listingRepo repository.ListingRepository
	settings    *SettingsService
	logger      *zap.Logger

	// Rollup day boundaries use this location.
	loc *time.Location
}

func NewAnalyticsService(
	eventRepo repository.EventRepository,
	listingRepo repository.ListingRepository,
	settings *SettingsService,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		eventRepo:   eventRepo,
		listingRepo: listingRepo,
		settings:    settings,
		logger:      logger.Named("analytics"),
		loc:         time.UTC,
	}
}

// ==================== Ingestion ====================

// Track records an event. Failures are logged and swallowed: analytics
// must never break the request that generated the event.
func (s *AnalyticsService) Track(ctx context.Context, eventType model.EventType, listingID, userID int64, props map[string]interface{}) {
	event := &model.AnalyticsEvent{
		EventType:  eventType,
		ListingID:  listingID,
		UserID:     userID,
		OccurredAt: time.Now(),
	}

	if len(props) > 0 {
		if raw, err := json.Marshal(props); err == nil {
			event.Props = datatypes.JSON(raw)
		}
	}

	if err := s.eventRepo.Insert(ctx, event); err != nil {
		s.logger.Warn("event insert failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// ==================== Rollup ====================

// dayStart truncates t to midnight in the rollup location.
func (s *AnalyticsService) dayStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// RollupDay aggregates one completed day of raw events into the
// summary tables. Idempotent: re-running a day overwrites its rows.
func (s *AnalyticsService) RollupDay(ctx context.Context, day time.Time) error {
	start := s.dayStart(day)
	end := start.Add(24 * time.Hour)

	listingStats, err := s.eventRepo.AggregateListingDay(ctx, start, end)
	if err != nil {
		return err
	}
	if err := s.eventRepo.UpsertListingStats(ctx, listingStats); err != nil {
		return err
	}

	siteStat, err := s.eventRepo.AggregateSiteDay(ctx, start, end)
	if err != nil {
		return err
	}
	// Active listing count is sampled at rollup time, not derived from
	// events.
	if siteStat.ActiveListings, err = s.listingRepo.CountActive(ctx); err != nil {
		return err
	}
	if err := s.eventRepo.UpsertSiteStat(ctx, siteStat); err != nil {
		return err
	}

	s.logger.Info("rollup complete",
		zap.Time("day", start),
		zap.Int("listings", len(listingStats)),
		zap.Int64("views", siteStat.ListingViews))
	return nil
}

// RollupYesterday is what the nightly cron calls.
func (s *AnalyticsService) RollupYesterday(ctx context.Context) error {
	return s.RollupDay(ctx, time.Now().Add(-24*time.Hour))
}

// PruneEvents deletes raw events past the retention window, clamped so
// rows are only dropped once a summary covers their day.
func (s *AnalyticsService) PruneEvents(ctx context.Context) (int64, error) {
	retention := s.settings.EventRetentionDays(ctx)
	cutoff := s.dayStart(time.Now()).AddDate(0, 0, -retention)

	latest, ok, err := s.eventRepo.LatestSummarizedDay(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		// Nothing summarized yet; keep everything.
		return 0, nil
	}

	// The latest summarized day itself is fully covered, so raw rows
	// up to the following midnight are safe to drop.
	covered := s.dayStart(latest).Add(24 * time.Hour)
	if covered.Before(cutoff) {
		cutoff = covered
	}

	deleted, err := s.eventRepo.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("raw events pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

// ==================== Dashboards ====================

// ListingSeries returns per-day stats for a listing over [from, to],
// with today's partial numbers computed live when in range.
func (s *AnalyticsService) ListingSeries(ctx context.Context, listingID int64, from, to time.Time) ([]model.DailyListingStat, error) {
	fromDay := s.dayStart(from)
	toEnd := s.dayStart(to).Add(24 * time.Hour)
	today := s.dayStart(time.Now())

	stats, err := s.eventRepo.ListListingStats(ctx, listingID, fromDay, toEnd)
	if err != nil {
		return nil, err
	}

	if !today.Before(fromDay) && today.Before(toEnd) {
		live, err := s.liveListingDay(ctx, listingID, today)
		if err != nil {
			return nil, err
		}
		if live != nil {
			stats = mergeListingDay(stats, *live)
		}
	}

	return stats, nil
}

// SiteSeries returns site-wide per-day stats with today merged live.
func (s *AnalyticsService) SiteSeries(ctx context.Context, from, to time.Time) ([]model.DailySiteStat, error) {
	fromDay := s.dayStart(from)
	toEnd := s.dayStart(to).Add(24 * time.Hour)
	today := s.dayStart(time.Now())

	stats, err := s.eventRepo.ListSiteStats(ctx, fromDay, toEnd)
	if err != nil {
		return nil, err
	}

	if !today.Before(fromDay) && today.Before(toEnd) {
		live, err := s.eventRepo.AggregateSiteDay(ctx, today, today.Add(24*time.Hour))
		if err != nil {
			return nil, err
		}
		if live.ActiveListings, err = s.listingRepo.CountActive(ctx); err != nil {
			return nil, err
		}
		stats = mergeSiteDay(stats, *live)
	}

	return stats, nil
}

// TopListings ranks listings by views over the range using rollup rows.
func (s *AnalyticsService) TopListings(ctx context.Context, from, to time.Time, limit int) ([]model.DailyListingStat, error) {
	return s.eventRepo.TopListings(ctx, s.dayStart(from), s.dayStart(to).Add(24*time.Hour), limit)
}

func (s *AnalyticsService) liveListingDay(ctx context.Context, listingID int64, day time.Time) (*model.DailyListingStat, error) {
	stats, err := s.eventRepo.AggregateListingDay(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	for i := range stats {
		if stats[i].ListingID == listingID {
			return &stats[i], nil
		}
	}
	return nil, nil
}

// mergeListingDay replaces or appends the live day, keeping day order.
func mergeListingDay(stats []model.DailyListingStat, live model.DailyListingStat) []model.DailyListingStat {
	for i := range stats {
		if stats[i].Day.Equal(live.Day) {
			stats[i] = live
			return stats
		}
	}
	return append(stats, live)
}

func mergeSiteDay(stats []model.DailySiteStat, live model.DailySiteStat) []model.DailySiteStat {
	for i := range stats {
		if stats[i].Day.Equal(live.Day) {
			stats[i] = live
			return stats
		}
	}
	return append(stats, live)
}
