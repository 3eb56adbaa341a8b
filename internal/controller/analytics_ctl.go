package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"openhaus/internal/model"
	"openhaus/internal/service"
)

type AnalyticsController struct {
	analyticsService *service.AnalyticsService
	listingService   *service.ListingService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService, listingService *service.ListingService) *AnalyticsController {
	return &AnalyticsController{
		analyticsService: analyticsService,
		listingService:   listingService,
	}
}

// dateRange parses from/to query params, defaulting to the last 30
// days ending today.
func dateRange(c *gin.Context) (from, to time.Time, err bool) {
	now := time.Now()
	from = now.AddDate(0, 0, -29)
	to = now

	if raw := c.Query("from"); raw != "" {
		parsed, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			fail(c, http.StatusBadRequest, "invalid from date")
			return from, to, true
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			fail(c, http.StatusBadRequest, "invalid to date")
			return from, to, true
		}
		to = parsed
	}
	if to.Before(from) {
		fail(c, http.StatusBadRequest, "to precedes from")
		return from, to, true
	}
	return from, to, false
}

// ListingSeries
// @Summary Per-day stats for an owned listing, today included live
// @Tags Analytics
// @Param id path int true "listing id"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Router /api/listings/{id}/stats [get]
func (ctrl *AnalyticsController) ListingSeries(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	from, to, bad := dateRange(c)
	if bad {
		return
	}

	// Owners see their own numbers; admins see everything. The lookup
	// must not count as a listing view, so no Get here.
	viewer := actor(c)
	ownerID, err := ctrl.listingService.OwnerOf(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if ownerID != viewer.ID && !viewer.IsAdmin() {
		fail(c, http.StatusForbidden, "not the listing owner")
		return
	}

	stats, err := ctrl.analyticsService.ListingSeries(c.Request.Context(), id, from, to)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, stats)
}

// SiteSeries
// @Summary Site-wide per-day stats, today included live
// @Tags Analytics
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/stats/site [get]
func (ctrl *AnalyticsController) SiteSeries(c *gin.Context) {
	from, to, bad := dateRange(c)
	if bad {
		return
	}

	stats, err := ctrl.analyticsService.SiteSeries(c.Request.Context(), from, to)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, stats)
}

// TopListings
// @Summary Most viewed listings over a range
// @Tags Analytics
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param limit query int false "max rows" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/stats/top [get]
func (ctrl *AnalyticsController) TopListings(c *gin.Context) {
	from, to, bad := dateRange(c)
	if bad {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	stats, err := ctrl.analyticsService.TopListings(c.Request.Context(), from, to, limit)
	if err != nil {
		failErr(c, err)
		return
	}

	type topRow struct {
		Listing *model.Listing         `json:"listing,omitempty"`
		Stat    model.DailyListingStat `json:"stat"`
	}
	rows := make([]topRow, 0, len(stats))
	for _, stat := range stats {
		row := topRow{Stat: stat}
		if listing, _, err := ctrl.listingService.Get(c.Request.Context(), stat.ListingID, 0, true); err == nil {
			row.Listing = listing
		}
		rows = append(rows, row)
	}
	ok(c, rows)
}
