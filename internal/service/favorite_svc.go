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

// ==================== FavoriteService ====================

type FavoriteService struct {
	favoriteRepo repository.FavoriteRepository
	searchRepo   repository.SavedSearchRepository
	listingRepo  repository.ListingRepository
	analytics    *AnalyticsService
	logger       *zap.Logger
}

func NewFavoriteService(
	favoriteRepo repository.FavoriteRepository,
	searchRepo repository.SavedSearchRepository,
	listingRepo repository.ListingRepository,
	analytics *AnalyticsService,
	logger *zap.Logger,
) *FavoriteService {
	return &FavoriteService{
		favoriteRepo: favoriteRepo,
		searchRepo:   searchRepo,
		listingRepo:  listingRepo,
		analytics:    analytics,
		logger:       logger.Named("favorite"),
	}
}

// ==================== Favorites ====================

// Toggle flips the favorite state and returns the new state.
func (s *FavoriteService) Toggle(ctx context.Context, userID, listingID int64) (favorited bool, err error) {
	removed, err := s.favoriteRepo.Remove(ctx, userID, listingID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	// Validate the target is a real, visible listing before writing.
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return false, err
	}
	if !listing.Visible(time.Now()) {
		return false, ErrListingNotActive
	}

	if err := s.favoriteRepo.Add(ctx, &model.Favorite{
		UserID:    userID,
		ListingID: listingID,
	}); err != nil {
		return false, err
	}

	s.analytics.Track(ctx, model.EventFavorite, listingID, userID, nil)
	return true, nil
}

func (s *FavoriteService) ListForUser(ctx context.Context, userID int64, page, pageSize int) ([]model.Favorite, int64, error) {
	return s.favoriteRepo.ListByUser(ctx, userID, page, pageSize)
}

func (s *FavoriteService) IsFavorited(ctx context.Context, userID, listingID int64) (bool, error) {
	return s.favoriteRepo.Exists(ctx, userID, listingID)
}

// ==================== Saved searches ====================

// SaveSearch stores a filter for replay by browse and the digest task.
func (s *FavoriteService) SaveSearch(ctx context.Context, userID int64, name string, filter repository.ListingFilter, digestFreq string) (*model.SavedSearch, error) {
	switch digestFreq {
	case model.DigestFreqNone, model.DigestFreqDaily, model.DigestFreqWeekly:
	default:
		digestFreq = model.DigestFreqNone
	}

	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}

	search := &model.SavedSearch{
		UserID:     userID,
		Name:       name,
		Filter:     datatypes.JSON(raw),
		DigestFreq: digestFreq,
	}
	if err := s.searchRepo.Create(ctx, search); err != nil {
		return nil, err
	}
	return search, nil
}

func (s *FavoriteService) ListSearches(ctx context.Context, userID int64) ([]model.SavedSearch, error) {
	return s.searchRepo.ListByUser(ctx, userID)
}

func (s *FavoriteService) UpdateSearchFreq(ctx context.Context, userID, searchID int64, digestFreq string) error {
	search, err := s.searchRepo.GetByID(ctx, searchID)
	if err != nil {
		return err
	}
	if search.UserID != userID {
		return ErrNotOwner
	}

	switch digestFreq {
	case model.DigestFreqNone, model.DigestFreqDaily, model.DigestFreqWeekly:
	default:
		return ErrInvalidSetting
	}

	search.DigestFreq = digestFreq
	return s.searchRepo.Update(ctx, search)
}

func (s *FavoriteService) DeleteSearch(ctx context.Context, userID, searchID int64) error {
	search, err := s.searchRepo.GetByID(ctx, searchID)
	if err != nil {
		return err
	}
	if search.UserID != userID {
		return ErrNotOwner
	}
	return s.searchRepo.Delete(ctx, searchID)
}

// RunSearch replays a saved filter through the browse query builder.
func (s *FavoriteService) RunSearch(ctx context.Context, userID, searchID int64, page, pageSize int) ([]model.Listing, int64, error) {
	search, err := s.searchRepo.GetByID(ctx, searchID)
	if err != nil {
		return nil, 0, err
	}
	if search.UserID != userID {
		return nil, 0, ErrNotOwner
	}

	var filter repository.ListingFilter
	if err := json.Unmarshal(search.Filter, &filter); err != nil {
		return nil, 0, err
	}
	filter.Page = page
	filter.PageSize = pageSize
	filter.IncludeHidden = false

	return s.listingRepo.List(ctx, filter)
}
