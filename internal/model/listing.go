package model

import (
	"time"

	"github.com/lib/pq"
)

// ==================== Listing states ====================

type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"  // awaiting moderation
	ListingStatusActive   ListingStatus = "active"   // publicly visible
	ListingStatusRejected ListingStatus = "rejected" // failed moderation
	ListingStatusExpired  ListingStatus = "expired"  // past expires_at
	ListingStatusRemoved  ListingStatus = "removed"  // soft-deleted by owner
)

type ListingKind string

const (
	ListingKindRent ListingKind = "rent"
	ListingKindSale ListingKind = "sale"
)

// ==================== Listing ====================

type Listing struct {
	BaseModel
	AuditMixin

	OwnerID int64 `gorm:"index:idx_owner_status;not null" json:"owner_id"`
	Owner   *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Kind   ListingKind   `gorm:"size:10;index;not null" json:"kind"`
	Status ListingStatus `gorm:"size:20;index:idx_owner_status;index" json:"status"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	// Location. City is the primary browse dimension.
	AddressLine string `gorm:"size:255" json:"address_line"`
	City        string `gorm:"size:100;index" json:"city"`
	Region      string `gorm:"size:100" json:"region"`
	PostalCode  string `gorm:"size:20" json:"postal_code"`

	// Price in cents. Rent is per month.
	PriceCents int64 `gorm:"not null" json:"price_cents"`

	Bedrooms    int  `gorm:"default:0;index" json:"bedrooms"`
	Bathrooms   int  `gorm:"default:0" json:"bathrooms"`
	AreaSqm     int  `gorm:"default:0" json:"area_sqm"`
	PetFriendly bool `gorm:"default:false" json:"pet_friendly"`

	// Listings with a broker fee are not accepted on this marketplace.
	// The column exists so imports can be flagged and rejected, not hidden.
	BrokerFee bool `gorm:"default:false" json:"broker_fee"`

	Amenities pq.StringArray `gorm:"type:text[]" json:"amenities"`

	Featured   bool       `gorm:"default:false;index" json:"featured"`
	FeaturedAt *time.Time `json:"featured_at,omitempty"`

	// Moderation trail.
	ApprovedBy   int64      `gorm:"default:0" json:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	RejectReason string     `gorm:"size:500" json:"reject_reason,omitempty"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`

	Images []ListingImage `gorm:"foreignKey:ListingID" json:"images"`
}

func (Listing) TableName() string {
	return "listings"
}

// Visible reports whether the listing should appear in public browse
// results at the given instant.
func (l *Listing) Visible(now time.Time) bool {
	if l.Status != ListingStatusActive {
		return false
	}
	if l.ExpiresAt != nil && now.After(*l.ExpiresAt) {
		return false
	}
	return true
}

// ==================== ListingImage ====================

type ListingImage struct {
	BaseModel

	ListingID int64    `gorm:"index;not null" json:"listing_id"`
	Listing   *Listing `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	URL         string `gorm:"size:512;not null" json:"url"`
	Rank        int    `gorm:"default:99" json:"rank"`
	ContentType string `gorm:"size:50" json:"content_type"`
	Width       int    `gorm:"default:0" json:"width"`
	Height      int    `gorm:"default:0" json:"height"`
}

func (ListingImage) TableName() string {
	return "listing_images"
}
