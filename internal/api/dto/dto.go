package dto

import (
	"time"

	"openhaus/internal/model"
	"openhaus/internal/repository"
)

// ==================== Auth ====================

type RegisterReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"` // "user" | "agent"; anything else falls back to user
}

type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResp struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    TokenData `json:"data"`
}

type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *UserResp `json:"user,omitempty"`
}

type UserResp struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// ==================== Listings ====================

type ListingReq struct {
	Kind        string   `json:"kind" binding:"required"`
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description"`
	AddressLine string   `json:"address_line"`
	City        string   `json:"city" binding:"required"`
	Region      string   `json:"region"`
	PostalCode  string   `json:"postal_code"`
	PriceCents  int64    `json:"price_cents" binding:"required"`
	Bedrooms    int      `json:"bedrooms"`
	Bathrooms   int      `json:"bathrooms"`
	AreaSqm     int      `json:"area_sqm"`
	PetFriendly bool     `json:"pet_friendly"`
	BrokerFee   bool     `json:"broker_fee"`
	Amenities   []string `json:"amenities"`
}

type ListingResp struct {
	ID           int64       `json:"id"`
	OwnerID      int64       `json:"owner_id"`
	Kind         string      `json:"kind"`
	Status       string      `json:"status"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	AddressLine  string      `json:"address_line,omitempty"`
	City         string      `json:"city"`
	Region       string      `json:"region,omitempty"`
	PostalCode   string      `json:"postal_code,omitempty"`
	PriceCents   int64       `json:"price_cents"`
	Bedrooms     int         `json:"bedrooms"`
	Bathrooms    int         `json:"bathrooms"`
	AreaSqm      int         `json:"area_sqm"`
	PetFriendly  bool        `json:"pet_friendly"`
	Amenities    []string    `json:"amenities"`
	Featured     bool        `json:"featured"`
	ExpiresAt    *time.Time  `json:"expires_at,omitempty"`
	RejectReason string      `json:"reject_reason,omitempty"`
	Images       []ImageResp `json:"images"`
	Favorites    int64       `json:"favorites,omitempty"`
	Favorited    bool        `json:"favorited,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type ImageResp struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Rank int    `json:"rank"`
}

type ListingListResp struct {
	Code     int           `json:"code"`
	Message  string        `json:"message"`
	Data     []ListingResp `json:"data"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ToListingResp flattens a model row for the API.
func ToListingResp(l *model.Listing) ListingResp {
	images := make([]ImageResp, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, ImageResp{ID: img.ID, URL: img.URL, Rank: img.Rank})
	}
	return ListingResp{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		Kind:         string(l.Kind),
		Status:       string(l.Status),
		Title:        l.Title,
		Description:  l.Description,
		AddressLine:  l.AddressLine,
		City:         l.City,
		Region:       l.Region,
		PostalCode:   l.PostalCode,
		PriceCents:   l.PriceCents,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		AreaSqm:      l.AreaSqm,
		PetFriendly:  l.PetFriendly,
		Amenities:    []string(l.Amenities),
		Featured:     l.Featured,
		ExpiresAt:    l.ExpiresAt,
		RejectReason: l.RejectReason,
		Images:       images,
		CreatedAt:    l.CreatedAt,
	}
}

// ContactResp is what the contact endpoint reveals about an owner.
type ContactResp struct {
	OwnerID int64  `json:"owner_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// ==================== Moderation ====================

type RejectReq struct {
	Reason string `json:"reason" binding:"required"`
}

// ==================== Saved searches ====================

type SavedSearchReq struct {
	Name       string                   `json:"name" binding:"required,max=100"`
	Filter     repository.ListingFilter `json:"filter" binding:"required"`
	DigestFreq string                   `json:"digest_freq"`
}

type SavedSearchFreqReq struct {
	DigestFreq string `json:"digest_freq" binding:"required"`
}

type SavedSearchResp struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	DigestFreq   string     `json:"digest_freq"`
	LastDigestAt *time.Time `json:"last_digest_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ==================== Impersonation ====================

type ImpersonateReq struct {
	SubjectID int64  `json:"subject_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

type ImpersonateExchangeReq struct {
	Token string `json:"token" binding:"required"`
}

type ImpersonationResp struct {
	ID        int64      `json:"id"`
	Token     string     `json:"token,omitempty"`
	AdminID   int64      `json:"admin_id"`
	SubjectID int64      `json:"subject_id"`
	Reason    string     `json:"reason"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// ==================== Settings ====================

type SettingReq struct {
	Value string `json:"value" binding:"required"`
}
