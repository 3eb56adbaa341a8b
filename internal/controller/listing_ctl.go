package controller

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"openhaus/internal/api/dto"
	"openhaus/internal/middleware"
	"openhaus/internal/model"
	"openhaus/internal/repository"
	"openhaus/internal/service"
)

type ListingController struct {
	listingService  *service.ListingService
	favoriteService *service.FavoriteService
}

func NewListingController(listingService *service.ListingService, favoriteService *service.FavoriteService) *ListingController {
	return &ListingController{
		listingService:  listingService,
		favoriteService: favoriteService,
	}
}

// ==================== Browse ====================

// Browse
// @Summary Browse active listings with filters
// @Tags Listing
// @Param kind query string false "rent | sale"
// @Param city query string false "city"
// @Param min_price query int false "minimum price in cents"
// @Param max_price query int false "maximum price in cents"
// @Param min_bedrooms query int false "minimum bedrooms"
// @Param min_bathrooms query int false "minimum bathrooms"
// @Param pet_friendly query bool false "pet friendly only"
// @Param featured query bool false "featured only"
// @Param q query string false "keyword over title and description"
// @Param sort query string false "newest | price_asc | price_desc"
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(20)
// @Success 200 {object} dto.ListingListResp
// @Router /api/listings [get]
func (ctrl *ListingController) Browse(c *gin.Context) {
	filter := parseListingFilter(c)
	filter.Page, filter.PageSize = pagination(c)

	// Search events are attributed when the caller is logged in.
	viewerID := middleware.GetUserID(c)

	listings, total, err := ctrl.listingService.Browse(c.Request.Context(), filter, viewerID)
	if err != nil {
		failErr(c, err)
		return
	}

	ctrl.writeList(c, listings, total, filter.Page, filter.PageSize)
}

// Get
// @Summary Get one listing
// @Tags Listing
// @Param id path int true "listing id"
// @Success 200 {object} dto.ListingResp
// @Router /api/listings/{id} [get]
func (ctrl *ListingController) Get(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	viewerID := middleware.GetUserID(c)
	viewerIsAdmin := middleware.GetUserRole(c) == model.RoleAdmin

	listing, favorites, err := ctrl.listingService.Get(c.Request.Context(), id, viewerID, viewerIsAdmin)
	if err != nil {
		failErr(c, err)
		return
	}

	resp := dto.ToListingResp(listing)
	resp.Favorites = favorites
	if viewerID > 0 {
		resp.Favorited, _ = ctrl.favoriteService.IsFavorited(c.Request.Context(), viewerID, id)
	}
	ok(c, resp)
}

// ContactOwner
// @Summary Reveal the owner's contact details for a visible listing
// @Tags Listing
// @Param id path int true "listing id"
// @Success 200 {object} dto.ContactResp
// @Router /api/listings/{id}/contact [post]
func (ctrl *ListingController) ContactOwner(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	owner, err := ctrl.listingService.Contact(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, dto.ContactResp{
		OwnerID: owner.ID,
		Name:    owner.DisplayName,
		Email:   owner.Email,
	})
}

// ==================== Owner operations ====================

// Create
// @Summary Submit a listing for moderation
// @Tags Listing
// @Accept json
// @Param body body dto.ListingReq true "listing"
// @Success 200 {object} dto.ListingResp
// @Router /api/listings [post]
func (ctrl *ListingController) Create(c *gin.Context) {
	var req dto.ListingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	listing, err := ctrl.listingService.Create(c.Request.Context(), actor(c), toListingInput(req))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, dto.ToListingResp(listing))
}

// Update
// @Summary Update an owned listing
// @Tags Listing
// @Accept json
// @Param id path int true "listing id"
// @Param body body dto.ListingReq true "listing"
// @Success 200 {object} dto.ListingResp
// @Router /api/listings/{id} [put]
func (ctrl *ListingController) Update(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req dto.ListingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	listing, err := ctrl.listingService.Update(c.Request.Context(), actor(c), id, toListingInput(req))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, dto.ToListingResp(listing))
}

// Remove
// @Summary Take down an owned listing
// @Tags Listing
// @Param id path int true "listing id"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{id} [delete]
func (ctrl *ListingController) Remove(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := ctrl.listingService.Remove(c.Request.Context(), actor(c), id); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// Mine
// @Summary List own listings in any status
// @Tags Listing
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(20)
// @Success 200 {object} dto.ListingListResp
// @Router /api/listings/mine [get]
func (ctrl *ListingController) Mine(c *gin.Context) {
	page, pageSize := pagination(c)

	listings, total, err := ctrl.listingService.OwnListings(c.Request.Context(), middleware.GetUserID(c), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	ctrl.writeList(c, listings, total, page, pageSize)
}

// ==================== Featured ====================

// Feature
// @Summary Promote an owned listing to the featured shelf
// @Tags Listing
// @Param id path int true "listing id"
// @Success 200 {object} dto.ListingResp
// @Router /api/listings/{id}/feature [post]
func (ctrl *ListingController) Feature(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	listing, err := ctrl.listingService.Feature(c.Request.Context(), actor(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, dto.ToListingResp(listing))
}

// Unfeature
// @Summary Drop a listing off the featured shelf
// @Tags Listing
// @Param id path int true "listing id"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{id}/feature [delete]
func (ctrl *ListingController) Unfeature(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := ctrl.listingService.Unfeature(c.Request.Context(), actor(c), id); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// ==================== Images ====================

// UploadImage
// @Summary Attach a photo to an owned listing
// @Tags Listing
// @Accept multipart/form-data
// @Param id path int true "listing id"
// @Param file formData file true "image file"
// @Success 200 {object} dto.ImageResp
// @Router /api/listings/{id}/images [post]
func (ctrl *ListingController) UploadImage(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "missing file")
		return
	}
	if fileHeader.Size > 10<<20 {
		fail(c, http.StatusBadRequest, "file too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read file")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	image, err := ctrl.listingService.AddImage(c.Request.Context(), actor(c), id, data, fileHeader.Filename, contentType)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, dto.ImageResp{ID: image.ID, URL: image.URL, Rank: image.Rank})
}

// ImageURL
// @Summary Get a time-limited download URL for a listing photo
// @Tags Listing
// @Param id path int true "listing id"
// @Param image_id path int true "image id"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{id}/images/{image_id}/url [get]
func (ctrl *ListingController) ImageURL(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	imageID, okImg := pathID(c, "image_id")
	if !okImg {
		return
	}

	viewerID := middleware.GetUserID(c)
	viewerIsAdmin := middleware.GetUserRole(c) == model.RoleAdmin

	url, err := ctrl.listingService.ImageURL(c.Request.Context(), viewerID, viewerIsAdmin, id, imageID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"url": url})
}

// RemoveImage
// @Summary Delete a photo from an owned listing
// @Tags Listing
// @Param id path int true "listing id"
// @Param image_id path int true "image id"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{id}/images/{image_id} [delete]
func (ctrl *ListingController) RemoveImage(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	imageID, okImg := pathID(c, "image_id")
	if !okImg {
		return
	}

	if err := ctrl.listingService.RemoveImage(c.Request.Context(), actor(c), id, imageID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// ==================== Helpers ====================

func (ctrl *ListingController) writeList(c *gin.Context, listings []model.Listing, total int64, page, pageSize int) {
	respList := make([]dto.ListingResp, 0, len(listings))
	for i := range listings {
		respList = append(respList, dto.ToListingResp(&listings[i]))
	}
	c.JSON(http.StatusOK, dto.ListingListResp{
		Code:     0,
		Message:  "success",
		Data:     respList,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func toListingInput(req dto.ListingReq) *service.ListingInput {
	return &service.ListingInput{
		Kind:        model.ListingKind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		AddressLine: req.AddressLine,
		City:        req.City,
		Region:      req.Region,
		PostalCode:  req.PostalCode,
		PriceCents:  req.PriceCents,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		PetFriendly: req.PetFriendly,
		BrokerFee:   req.BrokerFee,
		Amenities:   req.Amenities,
	}
}

func parseListingFilter(c *gin.Context) repository.ListingFilter {
	var filter repository.ListingFilter
	filter.Kind = model.ListingKind(c.Query("kind"))
	filter.City = c.Query("city")
	filter.Keyword = c.Query("q")
	filter.Sort = c.Query("sort")

	if v, err := strconv.ParseInt(c.Query("min_price"), 10, 64); err == nil {
		filter.MinPrice = v
	}
	if v, err := strconv.ParseInt(c.Query("max_price"), 10, 64); err == nil {
		filter.MaxPrice = v
	}
	if v, err := strconv.Atoi(c.Query("min_bedrooms")); err == nil {
		filter.MinBedrooms = v
	}
	if v, err := strconv.Atoi(c.Query("min_bathrooms")); err == nil {
		filter.MinBathrooms = v
	}
	if raw := c.Query("pet_friendly"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.PetFriendly = &v
		}
	}
	if raw := c.Query("featured"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.FeaturedOnly = v
		}
	}
	return filter
}
