package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"openhaus/internal/api/dto"
	"openhaus/internal/service"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// Register creates an account and logs it straight in.
// @Summary Create an account
// @Tags Auth
// @Accept json
// @Param body body dto.RegisterReq true "registration"
// @Success 200 {object} dto.TokenResp
// @Router /api/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := ctrl.authService.Register(ctx, req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		failErr(c, err)
		return
	}

	_, pair, err := ctrl.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, dto.TokenData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User: &dto.UserResp{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.DisplayName,
			Role:  user.Role,
		},
	})
}

// Login
// @Summary Exchange credentials for a token pair
// @Tags Auth
// @Accept json
// @Param body body dto.LoginReq true "credentials"
// @Success 200 {object} dto.TokenResp
// @Router /api/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	user, pair, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, dto.TokenData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User: &dto.UserResp{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.DisplayName,
			Role:  user.Role,
		},
	})
}

// Refresh
// @Summary Rotate the token pair
// @Tags Auth
// @Accept json
// @Param body body dto.RefreshReq true "refresh token"
// @Success 200 {object} dto.TokenResp
// @Router /api/auth/refresh [post]
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req dto.RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	pair, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, dto.TokenData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// ExchangeImpersonation
// @Summary Exchange an impersonation token for an access token
// @Tags Auth
// @Accept json
// @Param body body dto.ImpersonateExchangeReq true "session token"
// @Success 200 {object} dto.TokenResp
// @Router /api/auth/impersonate [post]
func (ctrl *AuthController) ExchangeImpersonation(c *gin.Context) {
	var req dto.ImpersonateExchangeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	pair, session, err := ctrl.authService.ExchangeImpersonation(c.Request.Context(), req.Token)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"access_token": pair.AccessToken,
		"subject_id":   session.SubjectID,
		"expires_at":   session.ExpiresAt,
	})
}
