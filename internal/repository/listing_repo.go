package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"openhaus/internal/model"
)

// ==================== Filter ====================

// ListingFilter drives the browse query builder. The json-tagged fields
// are the ones a SavedSearch serializes; the rest are query controls
// set by callers only.
type ListingFilter struct {
	Kind         model.ListingKind `json:"kind,omitempty"`
	City         string            `json:"city,omitempty"`
	MinPrice     int64             `json:"min_price_cents,omitempty"`
	MaxPrice     int64             `json:"max_price_cents,omitempty"`
	MinBedrooms  int               `json:"min_bedrooms,omitempty"`
	MinBathrooms int               `json:"min_bathrooms,omitempty"`
	PetFriendly  *bool             `json:"pet_friendly,omitempty"`
	FeaturedOnly bool              `json:"featured_only,omitempty"`
	Keyword      string            `json:"keyword,omitempty"`

	// Query controls, not part of a saved search.
	OwnerID        int64               `json:"-"`
	Status         model.ListingStatus `json:"-"`
	IncludeHidden  bool                `json:"-"` // owner/admin views see every status
	ActivatedAfter time.Time           `json:"-"` // digest incremental scans

	Sort     string `json:"-"` // newest | price_asc | price_desc
	Page     int    `json:"-"`
	PageSize int    `json:"-"`
}

// ==================== Interface ====================

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	GetWithOwner(ctx context.Context, id int64) (*model.Listing, error)
	Update(ctx context.Context, listing *model.Listing) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	List(ctx context.Context, filter ListingFilter) ([]model.Listing, int64, error)

	ListPending(ctx context.Context, page, pageSize int) ([]model.Listing, int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	CountFeaturedByOwner(ctx context.Context, ownerID int64) (int64, error)
	CountFeatured(ctx context.Context) (int64, error)
	CountVisibleByOwner(ctx context.Context, ownerID int64) (int64, error)
	CountActive(ctx context.Context) (int64, error)

	CreateImage(ctx context.Context, image *model.ListingImage) error
	GetImage(ctx context.Context, id int64) (*model.ListingImage, error)
	ListImages(ctx context.Context, listingID int64) ([]model.ListingImage, error)
	CountImages(ctx context.Context, listingID int64) (int64, error)
	MaxImageRank(ctx context.Context, listingID int64) (int, error)
	DeleteImage(ctx context.Context, id int64) error

	WithTx(tx *gorm.DB) ListingRepository
	Transaction(ctx context.Context, fn func(txRepo ListingRepository) error) error
}

// ==================== Implementation ====================

type listingRepo struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepo) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_images.rank ASC")
		}).
		First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) GetWithOwner(ctx context.Context, id int64) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).
		Preload("Owner").
		First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) Update(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *listingRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// List builds the browse query from whichever filter fields are set.
// Public calls see only active unexpired listings; owner and admin
// views pass IncludeHidden with an optional Status.
func (r *listingRepo) List(ctx context.Context, filter ListingFilter) ([]model.Listing, int64, error) {
	var listings []model.Listing
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Listing{})

	if !filter.IncludeHidden {
		query = query.
			Where("status = ?", model.ListingStatusActive).
			Where("expires_at IS NULL OR expires_at > ?", time.Now())
	} else if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.OwnerID > 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(filter.City))
	}
	if filter.MinPrice > 0 {
		query = query.Where("price_cents >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price_cents <= ?", filter.MaxPrice)
	}
	if filter.MinBedrooms > 0 {
		query = query.Where("bedrooms >= ?", filter.MinBedrooms)
	}
	if filter.MinBathrooms > 0 {
		query = query.Where("bathrooms >= ?", filter.MinBathrooms)
	}
	if filter.PetFriendly != nil {
		query = query.Where("pet_friendly = ?", *filter.PetFriendly)
	}
	if filter.FeaturedOnly {
		query = query.Where("featured = ?", true)
	}
	if filter.Keyword != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Keyword)+"%")
	}
	if !filter.ActivatedAfter.IsZero() {
		query = query.Where("approved_at > ?", filter.ActivatedAfter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case "price_asc":
		query = query.Order("price_cents ASC")
	case "price_desc":
		query = query.Order("price_cents DESC")
	default:
		// Featured first within the default sort so paid placements
		// lead the browse page.
		query = query.Order("featured DESC").Order("created_at DESC")
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_images.rank ASC")
		}).
		Limit(filter.PageSize).
		Offset(offset).
		Find(&listings).Error

	return listings, total, err
}

func (r *listingRepo) ListPending(ctx context.Context, page, pageSize int) ([]model.Listing, int64, error) {
	return r.List(ctx, ListingFilter{
		IncludeHidden: true,
		Status:        model.ListingStatusPending,
		Sort:          "newest",
		Page:          page,
		PageSize:      pageSize,
	})
}

// ExpireDue flips active listings past their expiry to expired and
// returns how many rows changed.
func (r *listingRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", model.ListingStatusActive, now).
		Updates(map[string]interface{}{
			"status":   model.ListingStatusExpired,
			"featured": false,
		})
	return res.RowsAffected, res.Error
}

func (r *listingRepo) CountFeaturedByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("owner_id = ? AND featured = ? AND status = ?", ownerID, true, model.ListingStatusActive).
		Count(&count).Error
	return count, err
}

func (r *listingRepo) CountFeatured(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("featured = ? AND status = ?", true, model.ListingStatusActive).
		Count(&count).Error
	return count, err
}

func (r *listingRepo) CountVisibleByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("owner_id = ? AND status IN ?", ownerID,
			[]model.ListingStatus{model.ListingStatusPending, model.ListingStatusActive}).
		Count(&count).Error
	return count, err
}

func (r *listingRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("status = ?", model.ListingStatusActive).
		Count(&count).Error
	return count, err
}

// ==================== Images ====================

func (r *listingRepo) CreateImage(ctx context.Context, image *model.ListingImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *listingRepo) GetImage(ctx context.Context, id int64) (*model.ListingImage, error) {
	var image model.ListingImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *listingRepo) ListImages(ctx context.Context, listingID int64) ([]model.ListingImage, error) {
	var images []model.ListingImage
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("rank ASC").
		Find(&images).Error
	return images, err
}

func (r *listingRepo) CountImages(ctx context.Context, listingID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ListingImage{}).
		Where("listing_id = ?", listingID).
		Count(&count).Error
	return count, err
}

func (r *listingRepo) MaxImageRank(ctx context.Context, listingID int64) (int, error) {
	var maxRank int
	err := r.db.WithContext(ctx).
		Model(&model.ListingImage{}).
		Where("listing_id = ?", listingID).
		Select("COALESCE(MAX(rank), 0)").
		Scan(&maxRank).Error
	return maxRank, err
}

func (r *listingRepo) DeleteImage(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.ListingImage{}, id).Error
}

func (r *listingRepo) WithTx(tx *gorm.DB) ListingRepository {
	return &listingRepo{db: tx}
}

func (r *listingRepo) Transaction(ctx context.Context, fn func(txRepo ListingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
