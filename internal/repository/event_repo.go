package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"openhaus/internal/model"
)

// ==================== Interface ====================

// EventRepository stores raw analytics events and the daily summary
// rows the nightly rollup writes. Day boundaries are computed by the
// caller and passed as half-open [start, end) ranges, which keeps the
// SQL portable across Postgres and the sqlite used in tests.
type EventRepository interface {
	Insert(ctx context.Context, event *model.AnalyticsEvent) error

	AggregateListingDay(ctx context.Context, start, end time.Time) ([]model.DailyListingStat, error)
	AggregateSiteDay(ctx context.Context, start, end time.Time) (*model.DailySiteStat, error)

	UpsertListingStats(ctx context.Context, stats []model.DailyListingStat) error
	UpsertSiteStat(ctx context.Context, stat *model.DailySiteStat) error

	ListListingStats(ctx context.Context, listingID int64, from, to time.Time) ([]model.DailyListingStat, error)
	ListSiteStats(ctx context.Context, from, to time.Time) ([]model.DailySiteStat, error)
	TopListings(ctx context.Context, from, to time.Time, limit int) ([]model.DailyListingStat, error)

	LatestSummarizedDay(ctx context.Context) (time.Time, bool, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ==================== Implementation ====================

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Insert(ctx context.Context, event *model.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// AggregateListingDay computes per-listing counters for one day from
// the raw events. Day is stamped with the range start.
func (r *eventRepo) AggregateListingDay(ctx context.Context, start, end time.Time) ([]model.DailyListingStat, error) {
	type row struct {
		ListingID int64
		Views     int64
		Favorites int64
		Contacts  int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.AnalyticsEvent{}).
		Select(`listing_id,
			SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS views,
			SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS favorites,
			SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS contacts`,
			model.EventListingView, model.EventFavorite, model.EventContact).
		Where("listing_id > 0 AND occurred_at >= ? AND occurred_at < ?", start, end).
		Group("listing_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make([]model.DailyListingStat, 0, len(rows))
	for _, rw := range rows {
		if rw.Views == 0 && rw.Favorites == 0 && rw.Contacts == 0 {
			continue
		}
		stats = append(stats, model.DailyListingStat{
			ListingID: rw.ListingID,
			Day:       start,
			Views:     rw.Views,
			Favorites: rw.Favorites,
			Contacts:  rw.Contacts,
		})
	}
	return stats, nil
}

func (r *eventRepo) AggregateSiteDay(ctx context.Context, start, end time.Time) (*model.DailySiteStat, error) {
	type row struct {
		Searches int64
		Views    int64
		Signups  int64
	}
	var rw row

	err := r.db.WithContext(ctx).
		Model(&model.AnalyticsEvent{}).
		Select(`SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS searches,
			SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS views,
			SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END) AS signups`,
			model.EventSearch, model.EventListingView, model.EventSignup).
		Where("occurred_at >= ? AND occurred_at < ?", start, end).
		Scan(&rw).Error
	if err != nil {
		return nil, err
	}

	return &model.DailySiteStat{
		Day:          start,
		Searches:     rw.Searches,
		ListingViews: rw.Views,
		Signups:      rw.Signups,
	}, nil
}

func (r *eventRepo) UpsertListingStats(ctx context.Context, stats []model.DailyListingStat) error {
	if len(stats) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"views", "favorites", "contacts",
		}),
	}).Create(&stats).Error
}

func (r *eventRepo) UpsertSiteStat(ctx context.Context, stat *model.DailySiteStat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"searches", "listing_views", "signups", "active_listings",
		}),
	}).Create(stat).Error
}

func (r *eventRepo) ListListingStats(ctx context.Context, listingID int64, from, to time.Time) ([]model.DailyListingStat, error) {
	var stats []model.DailyListingStat
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND day >= ? AND day < ?", listingID, from, to).
		Order("day ASC").
		Find(&stats).Error
	return stats, err
}

func (r *eventRepo) ListSiteStats(ctx context.Context, from, to time.Time) ([]model.DailySiteStat, error) {
	var stats []model.DailySiteStat
	err := r.db.WithContext(ctx).
		Where("day >= ? AND day < ?", from, to).
		Order("day ASC").
		Find(&stats).Error
	return stats, err
}

// TopListings returns listings ranked by summed views over the range.
func (r *eventRepo) TopListings(ctx context.Context, from, to time.Time, limit int) ([]model.DailyListingStat, error) {
	if limit <= 0 {
		limit = 5
	}
	var stats []model.DailyListingStat
	err := r.db.WithContext(ctx).
		Model(&model.DailyListingStat{}).
		Select(`listing_id,
			SUM(views) AS views,
			SUM(favorites) AS favorites,
			SUM(contacts) AS contacts`).
		Where("day >= ? AND day < ?", from, to).
		Group("listing_id").
		Order("views DESC").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}

// LatestSummarizedDay reports the newest day with a site summary row.
// Retention must not outrun the rollup, so raw deletes are clamped to
// days this covers.
func (r *eventRepo) LatestSummarizedDay(ctx context.Context) (time.Time, bool, error) {
	var stat model.DailySiteStat
	err := r.db.WithContext(ctx).
		Order("day DESC").
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return stat.Day, true, nil
}

func (r *eventRepo) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&model.AnalyticsEvent{})
	return res.RowsAffected, res.Error
}
