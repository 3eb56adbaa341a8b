package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"openhaus/internal/middleware"
	"openhaus/internal/model"
	"openhaus/internal/service"
)

// ==================== Response helpers ====================

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message})
}

// failErr maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSubjectNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrSessionRevoked):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrSubjectIsAdmin):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrBrokerFee),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrNotModeratable),
		errors.Is(err, service.ErrListingNotActive),
		errors.Is(err, service.ErrUnknownSetting),
		errors.Is(err, service.ErrInvalidSetting):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrListingCap),
		errors.Is(err, service.ErrImageCap),
		errors.Is(err, service.ErrFeaturedUserCap),
		errors.Is(err, service.ErrFeaturedGlobalCap):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses a positive int64 path parameter, writing the 400 itself.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// actor rebuilds the authenticated user from JWT claims. Good enough
// for ownership and role checks without a DB round trip.
func actor(c *gin.Context) *model.User {
	user := &model.User{Role: middleware.GetUserRole(c)}
	user.ID = middleware.GetUserID(c)
	return user
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
