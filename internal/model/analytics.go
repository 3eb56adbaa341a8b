package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== Raw events ====================

type EventType string

const (
	EventListingView EventType = "listing_view"
	EventSearch      EventType = "search"
	EventFavorite    EventType = "favorite"
	EventContact     EventType = "contact"
	EventSignup      EventType = "signup"
)

// AnalyticsEvent is a raw event row. Rows older than the retention
// window are deleted once the covering daily summary exists.
type AnalyticsEvent struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EventType  EventType      `gorm:"size:30;index:idx_type_day;not null" json:"event_type"`
	ListingID  int64          `gorm:"index;default:0" json:"listing_id"`
	UserID     int64          `gorm:"default:0" json:"user_id"`
	Props      datatypes.JSON `gorm:"type:jsonb" json:"props"`
	OccurredAt time.Time      `gorm:"index:idx_type_day;not null" json:"occurred_at"`
}

func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}

// ==================== Daily summaries ====================

// DailyListingStat is one listing's pre-aggregated numbers for one day.
// Day is midnight in the rollup timezone.
type DailyListingStat struct {
	ID        int64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ListingID int64 `gorm:"uniqueIndex:uniq_listing_day;not null" json:"listing_id"`

	Day time.Time `gorm:"uniqueIndex:uniq_listing_day;index;not null" json:"day"`

	Views     int64 `gorm:"default:0" json:"views"`
	Favorites int64 `gorm:"default:0" json:"favorites"`
	Contacts  int64 `gorm:"default:0" json:"contacts"`
}

func (DailyListingStat) TableName() string {
	return "daily_listing_stats"
}

// DailySiteStat is one day of site-wide numbers.
type DailySiteStat struct {
	ID  int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Day time.Time `gorm:"uniqueIndex;not null" json:"day"`

	Searches       int64 `gorm:"default:0" json:"searches"`
	ListingViews   int64 `gorm:"default:0" json:"listing_views"`
	Signups        int64 `gorm:"default:0" json:"signups"`
	ActiveListings int64 `gorm:"default:0" json:"active_listings"`
}

func (DailySiteStat) TableName() string {
	return "daily_site_stats"
}
