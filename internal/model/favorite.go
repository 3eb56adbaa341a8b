package model

import (
	"time"

	"gorm.io/datatypes"
)

// Favorite links a user to a listing. One row per pair.
type Favorite struct {
	BaseModel

	UserID    int64    `gorm:"uniqueIndex:uniq_user_listing;not null" json:"user_id"`
	ListingID int64    `gorm:"uniqueIndex:uniq_user_listing;index;not null" json:"listing_id"`
	Listing   *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// ==================== SavedSearch ====================

// Digest frequencies a saved search can subscribe to.
const (
	DigestFreqNone   = "none"
	DigestFreqDaily  = "daily"
	DigestFreqWeekly = "weekly"
)

// SavedSearch stores a listing filter as JSON so the digest task can
// replay it through the same query builder the browse endpoint uses.
type SavedSearch struct {
	BaseModel

	UserID int64 `gorm:"index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Name       string         `gorm:"size:100;not null" json:"name"`
	Filter     datatypes.JSON `gorm:"type:jsonb" json:"filter"`
	DigestFreq string         `gorm:"size:10;default:'none';index" json:"digest_freq"`

	LastDigestAt *time.Time `json:"last_digest_at,omitempty"`
}

func (SavedSearch) TableName() string {
	return "saved_searches"
}
