package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"openhaus/internal/model"
)

// ==================== Interface ====================

type FavoriteRepository interface {
	Add(ctx context.Context, fav *model.Favorite) error
	Remove(ctx context.Context, userID, listingID int64) (bool, error)
	Exists(ctx context.Context, userID, listingID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]model.Favorite, int64, error)
	CountByListing(ctx context.Context, listingID int64) (int64, error)

	WithTx(tx *gorm.DB) FavoriteRepository
}

type SavedSearchRepository interface {
	Create(ctx context.Context, search *model.SavedSearch) error
	GetByID(ctx context.Context, id int64) (*model.SavedSearch, error)
	Update(ctx context.Context, search *model.SavedSearch) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.SavedSearch, error)
	ListByDigestFreq(ctx context.Context, freq string) ([]model.SavedSearch, error)
	MarkDigested(ctx context.Context, id int64, at time.Time) error
}

// ==================== Favorites ====================

type favoriteRepo struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepo{db: db}
}

func (r *favoriteRepo) Add(ctx context.Context, fav *model.Favorite) error {
	return r.db.WithContext(ctx).Create(fav).Error
}

// Remove deletes the pair and reports whether a row existed.
func (r *favoriteRepo) Remove(ctx context.Context, userID, listingID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&model.Favorite{})
	return res.RowsAffected > 0, res.Error
}

func (r *favoriteRepo) Exists(ctx context.Context, userID, listingID int64) (bool, error) {
	var fav model.Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		First(&fav).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *favoriteRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]model.Favorite, int64, error) {
	var favs []model.Favorite
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Favorite{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := query.
		Preload("Listing").
		Preload("Listing.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_images.rank ASC")
		}).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&favs).Error

	return favs, total, err
}

func (r *favoriteRepo) CountByListing(ctx context.Context, listingID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Favorite{}).
		Where("listing_id = ?", listingID).
		Count(&count).Error
	return count, err
}

func (r *favoriteRepo) WithTx(tx *gorm.DB) FavoriteRepository {
	return &favoriteRepo{db: tx}
}

// ==================== Saved searches ====================

type savedSearchRepo struct {
	db *gorm.DB
}

func NewSavedSearchRepository(db *gorm.DB) SavedSearchRepository {
	return &savedSearchRepo{db: db}
}

func (r *savedSearchRepo) Create(ctx context.Context, search *model.SavedSearch) error {
	return r.db.WithContext(ctx).Create(search).Error
}

func (r *savedSearchRepo) GetByID(ctx context.Context, id int64) (*model.SavedSearch, error) {
	var search model.SavedSearch
	if err := r.db.WithContext(ctx).First(&search, id).Error; err != nil {
		return nil, err
	}
	return &search, nil
}

func (r *savedSearchRepo) Update(ctx context.Context, search *model.SavedSearch) error {
	return r.db.WithContext(ctx).Save(search).Error
}

func (r *savedSearchRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.SavedSearch{}, id).Error
}

func (r *savedSearchRepo) ListByUser(ctx context.Context, userID int64) ([]model.SavedSearch, error) {
	var searches []model.SavedSearch
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&searches).Error
	return searches, err
}

// ListByDigestFreq returns subscribed searches with their owners
// preloaded, since the digest task needs recipient addresses.
func (r *savedSearchRepo) ListByDigestFreq(ctx context.Context, freq string) ([]model.SavedSearch, error) {
	var searches []model.SavedSearch
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("digest_freq = ?", freq).
		Find(&searches).Error
	return searches, err
}

func (r *savedSearchRepo) MarkDigested(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.SavedSearch{}).
		Where("id = ?", id).
		Update("last_digest_at", at).Error
}
