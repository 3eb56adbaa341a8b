package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"openhaus/internal/api/dto"
	"openhaus/internal/middleware"
	"openhaus/internal/model"
	"openhaus/internal/service"
)

type FavoriteController struct {
	favoriteService *service.FavoriteService
}

func NewFavoriteController(favoriteService *service.FavoriteService) *FavoriteController {
	return &FavoriteController{favoriteService: favoriteService}
}

// ==================== Favorites ====================

// Toggle
// @Summary Toggle a favorite on a listing
// @Tags Favorite
// @Param id path int true "listing id"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{id}/favorite [post]
func (ctrl *FavoriteController) Toggle(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	favorited, err := ctrl.favoriteService.Toggle(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"favorited": favorited})
}

// List
// @Summary List own favorites with listing details
// @Tags Favorite
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/favorites [get]
func (ctrl *FavoriteController) List(c *gin.Context) {
	page, pageSize := pagination(c)

	favorites, total, err := ctrl.favoriteService.ListForUser(c.Request.Context(), middleware.GetUserID(c), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	respList := make([]dto.ListingResp, 0, len(favorites))
	for i := range favorites {
		if favorites[i].Listing == nil {
			continue
		}
		item := dto.ToListingResp(favorites[i].Listing)
		item.Favorited = true
		respList = append(respList, item)
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

// ==================== Saved searches ====================

// CreateSearch
// @Summary Save a browse filter for replay and digests
// @Tags SavedSearch
// @Accept json
// @Param body body dto.SavedSearchReq true "saved search"
// @Success 200 {object} dto.SavedSearchResp
// @Router /api/searches [post]
func (ctrl *FavoriteController) CreateSearch(c *gin.Context) {
	var req dto.SavedSearchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	search, err := ctrl.favoriteService.SaveSearch(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Filter, req.DigestFreq)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, toSearchResp(search))
}

// ListSearches
// @Summary List own saved searches
// @Tags SavedSearch
// @Success 200 {object} map[string]interface{}
// @Router /api/searches [get]
func (ctrl *FavoriteController) ListSearches(c *gin.Context) {
	searches, err := ctrl.favoriteService.ListSearches(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		failErr(c, err)
		return
	}

	respList := make([]dto.SavedSearchResp, 0, len(searches))
	for i := range searches {
		respList = append(respList, toSearchResp(&searches[i]))
	}
	ok(c, respList)
}

// UpdateSearchFreq
// @Summary Change a saved search's digest frequency
// @Tags SavedSearch
// @Accept json
// @Param id path int true "search id"
// @Param body body dto.SavedSearchFreqReq true "frequency"
// @Success 200 {object} map[string]interface{}
// @Router /api/searches/{id}/digest [put]
func (ctrl *FavoriteController) UpdateSearchFreq(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req dto.SavedSearchFreqReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := ctrl.favoriteService.UpdateSearchFreq(c.Request.Context(), middleware.GetUserID(c), id, req.DigestFreq); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// DeleteSearch
// @Summary Delete a saved search
// @Tags SavedSearch
// @Param id path int true "search id"
// @Success 200 {object} map[string]interface{}
// @Router /api/searches/{id} [delete]
func (ctrl *FavoriteController) DeleteSearch(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := ctrl.favoriteService.DeleteSearch(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// RunSearch
// @Summary Replay a saved search against current listings
// @Tags SavedSearch
// @Param id path int true "search id"
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(20)
// @Success 200 {object} dto.ListingListResp
// @Router /api/searches/{id}/results [get]
func (ctrl *FavoriteController) RunSearch(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	page, pageSize := pagination(c)

	listings, total, err := ctrl.favoriteService.RunSearch(c.Request.Context(), middleware.GetUserID(c), id, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

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

func toSearchResp(search *model.SavedSearch) dto.SavedSearchResp {
	return dto.SavedSearchResp{
		ID:           search.ID,
		Name:         search.Name,
		DigestFreq:   search.DigestFreq,
		LastDigestAt: search.LastDigestAt,
		CreatedAt:    search.CreatedAt,
	}
}
