package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"openhaus/internal/api/dto"
	"openhaus/internal/middleware"
	"openhaus/internal/model"
	"openhaus/internal/service"
)

// TaskTrigger is the slice of the task manager the admin API needs for
// manual runs.
type TaskTrigger interface {
	TriggerRollup(ctx context.Context) error
	TriggerDigests(ctx context.Context, freq string) error
	TriggerSweep(ctx context.Context) error
}

type AdminController struct {
	listingService  *service.ListingService
	authService     *service.AuthService
	settingsService *service.SettingsService
	digestService   *service.DigestService
	tasks           TaskTrigger
}

func NewAdminController(
	listingService *service.ListingService,
	authService *service.AuthService,
	settingsService *service.SettingsService,
	digestService *service.DigestService,
	tasks TaskTrigger,
) *AdminController {
	return &AdminController{
		listingService:  listingService,
		authService:     authService,
		settingsService: settingsService,
		digestService:   digestService,
		tasks:           tasks,
	}
}

// ==================== Moderation ====================

// PendingListings
// @Summary List the moderation queue, oldest first
// @Tags Admin
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(20)
// @Success 200 {object} dto.ListingListResp
// @Router /api/admin/listings/pending [get]
func (ctrl *AdminController) PendingListings(c *gin.Context) {
	page, pageSize := pagination(c)

	listings, total, err := ctrl.listingService.ListPending(c.Request.Context(), page, pageSize)
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

// Approve
// @Summary Approve a pending listing
// @Tags Admin
// @Param id path int true "listing id"
// @Success 200 {object} dto.ListingResp
// @Router /api/admin/listings/{id}/approve [post]
func (ctrl *AdminController) Approve(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	listing, err := ctrl.listingService.Approve(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, dto.ToListingResp(listing))
}

// Reject
// @Summary Reject a pending listing with a reason
// @Tags Admin
// @Accept json
// @Param id path int true "listing id"
// @Param body body dto.RejectReq true "reason"
// @Success 200 {object} dto.ListingResp
// @Router /api/admin/listings/{id}/reject [post]
func (ctrl *AdminController) Reject(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req dto.RejectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	listing, err := ctrl.listingService.Reject(c.Request.Context(), middleware.GetUserID(c), id, req.Reason)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, dto.ToListingResp(listing))
}

// ==================== Impersonation ====================

// Impersonate
// @Summary Open an impersonation session on a non-admin user
// @Tags Admin
// @Accept json
// @Param body body dto.ImpersonateReq true "subject and reason"
// @Success 200 {object} dto.ImpersonationResp
// @Router /api/admin/impersonations [post]
func (ctrl *AdminController) Impersonate(c *gin.Context) {
	var req dto.ImpersonateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	session, err := ctrl.authService.Impersonate(c.Request.Context(), middleware.GetUserID(c), req.SubjectID, req.Reason)
	if err != nil {
		failErr(c, err)
		return
	}

	// The opaque token is shown exactly once, here.
	ok(c, dto.ImpersonationResp{
		ID:        session.ID,
		Token:     session.Token,
		AdminID:   session.AdminID,
		SubjectID: session.SubjectID,
		Reason:    session.Reason,
		ExpiresAt: session.ExpiresAt,
	})
}

// ListImpersonations
// @Summary List open impersonation sessions
// @Tags Admin
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/impersonations [get]
func (ctrl *AdminController) ListImpersonations(c *gin.Context) {
	sessions, err := ctrl.authService.ListActiveImpersonations(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}

	respList := make([]dto.ImpersonationResp, 0, len(sessions))
	for _, s := range sessions {
		respList = append(respList, dto.ImpersonationResp{
			ID:        s.ID,
			AdminID:   s.AdminID,
			SubjectID: s.SubjectID,
			Reason:    s.Reason,
			ExpiresAt: s.ExpiresAt,
			UsedAt:    s.UsedAt,
		})
	}
	ok(c, respList)
}

// RevokeImpersonation
// @Summary Revoke an open impersonation session
// @Tags Admin
// @Param id path int true "session id"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/impersonations/{id} [delete]
func (ctrl *AdminController) RevokeImpersonation(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	if err := ctrl.authService.RevokeImpersonation(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

// ==================== Settings ====================

// ListSettings
// @Summary List settings with defaults merged in
// @Tags Admin
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/settings [get]
func (ctrl *AdminController) ListSettings(c *gin.Context) {
	settings, err := ctrl.settingsService.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, settings)
}

// SetSetting
// @Summary Change a setting value
// @Tags Admin
// @Accept json
// @Param name path string true "setting name"
// @Param body body dto.SettingReq true "value"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/settings/{name} [put]
func (ctrl *AdminController) SetSetting(c *gin.Context) {
	name := c.Param("name")

	var req dto.SettingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := ctrl.settingsService.Set(c.Request.Context(), name, req.Value); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"name": name, "value": req.Value})
}

// ==================== Digest history ====================

// ListDigestRuns
// @Summary Recent digest delivery history, newest first
// @Tags Admin
// @Param kind query string false "subscriber | admin" default(subscriber)
// @Param limit query int false "max rows" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/digests [get]
func (ctrl *AdminController) ListDigestRuns(c *gin.Context) {
	kind := model.DigestKind(c.DefaultQuery("kind", string(model.DigestKindSubscriber)))
	if kind != model.DigestKindSubscriber && kind != model.DigestKindAdmin {
		fail(c, http.StatusBadRequest, "unknown digest kind: "+string(kind))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	runs, err := ctrl.digestService.RecentRuns(c.Request.Context(), kind, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, runs)
}

// ==================== Manual task runs ====================

// TriggerTask
// @Summary Run a background job immediately
// @Tags Admin
// @Param name path string true "rollup | digest-daily | digest-weekly | sweep"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/tasks/{name}/run [post]
func (ctrl *AdminController) TriggerTask(c *gin.Context) {
	name := c.Param("name")

	var jobType middleware.JobType
	switch name {
	case "rollup":
		jobType = middleware.JobRollup
	case "digest-daily", "digest-weekly":
		jobType = middleware.JobDigest
	case "sweep":
		jobType = middleware.JobSweep
	default:
		fail(c, http.StatusBadRequest, "unknown task: "+name)
		return
	}

	// Manual runs share a cooldown so a nervous admin can't stack them.
	limiter := middleware.GetLimiter()
	result := limiter.Check(middleware.JobKey(jobType)+":"+name, middleware.GetInterval(jobType))
	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":        http.StatusTooManyRequests,
			"message":     "task ran recently",
			"retry_after": result.RetryAfter.Seconds(),
		})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch name {
	case "rollup":
		err = ctrl.tasks.TriggerRollup(ctx)
	case "digest-daily":
		err = ctrl.tasks.TriggerDigests(ctx, "daily")
	case "digest-weekly":
		err = ctrl.tasks.TriggerDigests(ctx, "weekly")
	case "sweep":
		err = ctrl.tasks.TriggerSweep(ctx)
	}
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"task": name, "status": "completed"})
}
