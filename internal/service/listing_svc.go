package service

import (
	"context"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"openhaus/internal/model"
	"openhaus/internal/repository"
)

// ==================== ListingService ====================

type ListingService struct {
	listingRepo  repository.ListingRepository
	favoriteRepo repository.FavoriteRepository
	settings     *SettingsService
	analytics    *AnalyticsService
	storage      *StorageService
	logger       *zap.Logger
}

func NewListingService(
	listingRepo repository.ListingRepository,
	favoriteRepo repository.FavoriteRepository,
	settings *SettingsService,
	analytics *AnalyticsService,
	storage *StorageService,
	logger *zap.Logger,
) *ListingService {
	return &ListingService{
		listingRepo:  listingRepo,
		favoriteRepo: favoriteRepo,
		settings:     settings,
		analytics:    analytics,
		storage:      storage,
		logger:       logger.Named("listing"),
	}
}

// ==================== Input ====================

// ListingInput is the owner-editable surface of a listing.
type ListingInput struct {
	Kind        model.ListingKind `json:"kind"`
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	AddressLine string            `json:"address_line"`
	City        string            `json:"city" binding:"required"`
	Region      string            `json:"region"`
	PostalCode  string            `json:"postal_code"`
	PriceCents  int64             `json:"price_cents"`
	Bedrooms    int               `json:"bedrooms"`
	Bathrooms   int               `json:"bathrooms"`
	AreaSqm     int               `json:"area_sqm"`
	PetFriendly bool              `json:"pet_friendly"`
	BrokerFee   bool              `json:"broker_fee"`
	Amenities   []string          `json:"amenities"`
}

func (in *ListingInput) validate() error {
	if in.Kind != model.ListingKindRent && in.Kind != model.ListingKindSale {
		return ErrInvalidKind
	}
	if in.PriceCents <= 0 {
		return ErrInvalidPrice
	}
	// Hard marketplace rule: broker-fee listings are rejected outright,
	// never stored as hidden.
	if in.BrokerFee {
		return ErrBrokerFee
	}
	return nil
}

// ==================== CRUD ====================

// Create validates and stores a listing. Non-admin submissions start
// pending; admin submissions go straight to active.
func (s *ListingService) Create(ctx context.Context, owner *model.User, in *ListingInput) (*model.Listing, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if !owner.IsAdmin() {
		count, err := s.listingRepo.CountVisibleByOwner(ctx, owner.ID)
		if err != nil {
			return nil, err
		}
		if count >= int64(s.settings.ListingCapForRole(ctx, owner.Role)) {
			return nil, ErrListingCap
		}
	}

	listing := &model.Listing{
		OwnerID:     owner.ID,
		Kind:        in.Kind,
		Status:      model.ListingStatusPending,
		Title:       in.Title,
		Description: in.Description,
		AddressLine: in.AddressLine,
		City:        in.City,
		Region:      in.Region,
		PostalCode:  in.PostalCode,
		PriceCents:  in.PriceCents,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		AreaSqm:     in.AreaSqm,
		PetFriendly: in.PetFriendly,
		Amenities:   pq.StringArray(in.Amenities),
	}

	if owner.IsAdmin() {
		s.activate(ctx, listing, owner.ID)
	}

	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing created",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("owner_id", owner.ID),
		zap.String("status", string(listing.Status)))
	return listing, nil
}

// Update applies owner edits. Substantive edits send an active listing
// back through moderation unless the editor is an admin; on a rejected
// or expired listing they are the resubmission path.
func (s *ListingService) Update(ctx context.Context, editor *model.User, listingID int64, in *ListingInput) (*model.Listing, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != editor.ID && !editor.IsAdmin() {
		return nil, ErrNotOwner
	}

	substantive := listing.Title != in.Title ||
		listing.Description != in.Description ||
		listing.PriceCents != in.PriceCents ||
		listing.AddressLine != in.AddressLine

	listing.Kind = in.Kind
	listing.Title = in.Title
	listing.Description = in.Description
	listing.AddressLine = in.AddressLine
	listing.City = in.City
	listing.Region = in.Region
	listing.PostalCode = in.PostalCode
	listing.PriceCents = in.PriceCents
	listing.Bedrooms = in.Bedrooms
	listing.Bathrooms = in.Bathrooms
	listing.AreaSqm = in.AreaSqm
	listing.PetFriendly = in.PetFriendly
	listing.Amenities = pq.StringArray(in.Amenities)

	if substantive && !editor.IsAdmin() {
		switch listing.Status {
		case model.ListingStatusActive, model.ListingStatusRejected, model.ListingStatusExpired:
			listing.Status = model.ListingStatusPending
			listing.RejectReason = ""
			listing.Featured = false
		}
	}

	if err := s.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Remove soft-deletes: the row survives for analytics joins.
func (s *ListingService) Remove(ctx context.Context, actor *model.User, listingID int64) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != actor.ID && !actor.IsAdmin() {
		return ErrNotOwner
	}

	return s.listingRepo.UpdateFields(ctx, listingID, map[string]interface{}{
		"status":   model.ListingStatusRemoved,
		"featured": false,
	})
}

// Get returns a listing with its favorite count, enforcing visibility
// for non-owners. A successful public read tracks a view event.
func (s *ListingService) Get(ctx context.Context, listingID, viewerID int64, viewerIsAdmin bool) (*model.Listing, int64, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, 0, err
	}

	isOwner := viewerID != 0 && listing.OwnerID == viewerID
	if !listing.Visible(time.Now()) && !isOwner && !viewerIsAdmin {
		return nil, 0, ErrListingNotActive
	}

	favorites, err := s.favoriteRepo.CountByListing(ctx, listingID)
	if err != nil {
		return nil, 0, err
	}

	if !isOwner && !viewerIsAdmin {
		s.analytics.Track(ctx, model.EventListingView, listingID, viewerID, nil)
	}

	return listing, favorites, nil
}

// OwnerOf resolves a listing's owner without the visibility checks or
// view tracking of Get. For endpoints that gate on ownership before
// reading anything.
func (s *ListingService) OwnerOf(ctx context.Context, listingID int64) (int64, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return 0, err
	}
	return listing.OwnerID, nil
}

// Browse runs the public filtered search and tracks a search event.
func (s *ListingService) Browse(ctx context.Context, filter repository.ListingFilter, viewerID int64) ([]model.Listing, int64, error) {
	filter.IncludeHidden = false
	filter.OwnerID = 0

	listings, total, err := s.listingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	s.analytics.Track(ctx, model.EventSearch, 0, viewerID, map[string]interface{}{
		"city":    filter.City,
		"kind":    string(filter.Kind),
		"keyword": filter.Keyword,
		"results": total,
	})

	return listings, total, nil
}

// Contact reveals the owner's contact details for a visible listing
// and counts the lead.
func (s *ListingService) Contact(ctx context.Context, viewerID, listingID int64) (*model.User, error) {
	listing, err := s.listingRepo.GetWithOwner(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Visible(time.Now()) {
		return nil, ErrListingNotActive
	}
	if listing.Owner == nil {
		return nil, gorm.ErrRecordNotFound
	}

	if listing.OwnerID != viewerID {
		s.analytics.Track(ctx, model.EventContact, listingID, viewerID, nil)
	}
	return listing.Owner, nil
}

// OwnListings shows the owner every status of their own rows.
func (s *ListingService) OwnListings(ctx context.Context, ownerID int64, page, pageSize int) ([]model.Listing, int64, error) {
	return s.listingRepo.List(ctx, repository.ListingFilter{
		OwnerID:       ownerID,
		IncludeHidden: true,
		Page:          page,
		PageSize:      pageSize,
	})
}

// ==================== Featured admission ====================

// Feature runs the admission checks in order: admin override, per-user
// cap, global cap. Admins bypass both caps.
func (s *ListingService) Feature(ctx context.Context, actor *model.User, listingID int64) (*model.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}
	if listing.Status != model.ListingStatusActive {
		return nil, ErrListingNotActive
	}
	if listing.Featured {
		return listing, nil
	}

	userCap := int64(s.settings.FeaturedPerUserCap(ctx))
	globalCap := int64(s.settings.FeaturedGlobalCap(ctx))

	// Counting and flipping must be one transaction, or two concurrent
	// requests both pass the cap check.
	err = s.listingRepo.Transaction(ctx, func(txRepo repository.ListingRepository) error {
		if !actor.IsAdmin() {
			ownerCount, err := txRepo.CountFeaturedByOwner(ctx, listing.OwnerID)
			if err != nil {
				return err
			}
			if ownerCount >= userCap {
				return ErrFeaturedUserCap
			}

			globalCount, err := txRepo.CountFeatured(ctx)
			if err != nil {
				return err
			}
			if globalCount >= globalCap {
				return ErrFeaturedGlobalCap
			}
		}

		now := time.Now()
		listing.Featured = true
		listing.FeaturedAt = &now
		return txRepo.Update(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing featured",
		zap.Int64("listing_id", listingID),
		zap.Int64("actor_id", actor.ID))
	return listing, nil
}

func (s *ListingService) Unfeature(ctx context.Context, actor *model.User, listingID int64) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != actor.ID && !actor.IsAdmin() {
		return ErrNotOwner
	}

	return s.listingRepo.UpdateFields(ctx, listingID, map[string]interface{}{
		"featured": false,
	})
}

// ==================== Moderation ====================

func (s *ListingService) ListPending(ctx context.Context, page, pageSize int) ([]model.Listing, int64, error) {
	return s.listingRepo.ListPending(ctx, page, pageSize)
}

// Approve activates a pending listing and restarts its expiry clock.
func (s *ListingService) Approve(ctx context.Context, adminID, listingID int64) (*model.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingStatusPending {
		return nil, ErrNotModeratable
	}

	s.activate(ctx, listing, adminID)
	listing.RejectReason = ""

	if err := s.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing approved",
		zap.Int64("listing_id", listingID),
		zap.Int64("admin_id", adminID))
	return listing, nil
}

func (s *ListingService) Reject(ctx context.Context, adminID, listingID int64, reason string) (*model.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingStatusPending {
		return nil, ErrNotModeratable
	}

	listing.Status = model.ListingStatusRejected
	listing.RejectReason = reason
	listing.ApprovedBy = adminID

	if err := s.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing rejected",
		zap.Int64("listing_id", listingID),
		zap.Int64("admin_id", adminID),
		zap.String("reason", reason))
	return listing, nil
}

// activate flips to active and stamps approval plus a fresh expiry.
func (s *ListingService) activate(ctx context.Context, listing *model.Listing, adminID int64) {
	now := time.Now()
	expires := now.AddDate(0, 0, s.settings.ListingExpiryDays(ctx))

	listing.Status = model.ListingStatusActive
	listing.ApprovedBy = adminID
	listing.ApprovedAt = &now
	listing.ExpiresAt = &expires
}

// ExpireDue is the cron entry point for the expiry sweep.
func (s *ListingService) ExpireDue(ctx context.Context) (int64, error) {
	expired, err := s.listingRepo.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info("listings expired", zap.Int64("count", expired))
	}
	return expired, nil
}

// ==================== Images ====================

// AddImage uploads to storage and records the row, enforcing the cap.
func (s *ListingService) AddImage(ctx context.Context, actor *model.User, listingID int64, data []byte, filename, contentType string) (*model.ListingImage, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}

	count, err := s.listingRepo.CountImages(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.settings.ListingImageCap(ctx)) {
		return nil, ErrImageCap
	}

	// Ranks only ever grow. Count-based ranks would collide after a
	// deletion mid-gallery.
	maxRank, err := s.listingRepo.MaxImageRank(ctx, listingID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.Upload(ctx, data, filename, contentType)
	if err != nil {
		return nil, err
	}

	image := &model.ListingImage{
		ListingID:   listingID,
		URL:         url,
		Rank:        maxRank + 1,
		ContentType: contentType,
	}
	if err := s.listingRepo.CreateImage(ctx, image); err != nil {
		// Best effort: don't leak the stored object when the row fails.
		_ = s.storage.Delete(ctx, url)
		return nil, err
	}

	return image, nil
}

// ImageURL returns a time-limited download URL for a listing photo.
// Production buckets are private, so the raw object URL in the listing
// payload needs signing before a browser can fetch it. Visibility
// rules match Get, without the view tracking.
func (s *ListingService) ImageURL(ctx context.Context, viewerID int64, viewerIsAdmin bool, listingID, imageID int64) (string, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return "", err
	}
	isOwner := viewerID != 0 && listing.OwnerID == viewerID
	if !listing.Visible(time.Now()) && !isOwner && !viewerIsAdmin {
		return "", ErrListingNotActive
	}

	image, err := s.listingRepo.GetImage(ctx, imageID)
	if err != nil {
		return "", err
	}
	if image.ListingID != listingID {
		return "", gorm.ErrRecordNotFound
	}

	return s.storage.GetSignedURL(ctx, image.URL, 15*time.Minute)
}

func (s *ListingService) RemoveImage(ctx context.Context, actor *model.User, listingID, imageID int64) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != actor.ID && !actor.IsAdmin() {
		return ErrNotOwner
	}

	image, err := s.listingRepo.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if image.ListingID != listingID {
		return ErrNotOwner
	}

	if err := s.listingRepo.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, image.URL); err != nil {
		s.logger.Warn("stored object delete failed",
			zap.String("url", image.URL), zap.Error(err))
	}
	return nil
}
