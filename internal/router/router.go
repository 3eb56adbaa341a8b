package router

import (
	"github.com/gin-gonic/gin"

	"openhaus/internal/controller"
	"openhaus/internal/middleware"
)

// Controllers groups everything SetupRouter needs to register.
type Controllers struct {
	Auth      *controller.AuthController
	Listing   *controller.ListingController
	Favorite  *controller.FavoriteController
	Admin     *controller.AdminController
	Analytics *controller.AnalyticsController
}

// SetupRouter builds the engine and registers every route group.
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	InitRoutes(r, ctls)
	return r
}

// InitRoutes registers all routes on an existing engine. Split out so
// tests can mount the API on their own engine.
func InitRoutes(r *gin.Engine, ctls *Controllers) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// auth: open endpoints
		auth := api.Group("/auth")
		{
			auth.POST("/register", ctls.Auth.Register)
			auth.POST("/login", ctls.Auth.Login)
			auth.POST("/refresh", ctls.Auth.Refresh)
			// Exchanges an admin-issued session token for an access token.
			auth.POST("/impersonate", ctls.Auth.ExchangeImpersonation)
		}

		// listings: public reads with optional identity, writes behind auth
		listings := api.Group("/listings")
		{
			listings.GET("", middleware.OptionalAuth(), ctls.Listing.Browse)

			authed := listings.Group("", middleware.JWTAuth(), middleware.AuditContext())
			{
				authed.GET("/mine", ctls.Listing.Mine)
				authed.POST("", ctls.Listing.Create)
				authed.PUT("/:id", ctls.Listing.Update)
				authed.DELETE("/:id", ctls.Listing.Remove)

				authed.POST("/:id/feature", ctls.Listing.Feature)
				authed.DELETE("/:id/feature", ctls.Listing.Unfeature)

				authed.POST("/:id/images", ctls.Listing.UploadImage)
				authed.DELETE("/:id/images/:image_id", ctls.Listing.RemoveImage)

				authed.POST("/:id/favorite", ctls.Favorite.Toggle)
				authed.POST("/:id/contact", ctls.Listing.ContactOwner)
				authed.GET("/:id/stats", ctls.Analytics.ListingSeries)
			}

			// Detail goes last in its own group so :id doesn't shadow /mine.
			listings.GET("/:id", middleware.OptionalAuth(), ctls.Listing.Get)
			listings.GET("/:id/images/:image_id/url", middleware.OptionalAuth(), ctls.Listing.ImageURL)
		}

		// favorites and saved searches
		me := api.Group("", middleware.JWTAuth(), middleware.AuditContext())
		{
			me.GET("/favorites", ctls.Favorite.List)

			searches := me.Group("/searches")
			{
				searches.POST("", ctls.Favorite.CreateSearch)
				searches.GET("", ctls.Favorite.ListSearches)
				searches.PUT("/:id/digest", ctls.Favorite.UpdateSearchFreq)
				searches.DELETE("/:id", ctls.Favorite.DeleteSearch)
				searches.GET("/:id/results", ctls.Favorite.RunSearch)
			}
		}

		// admin: role-gated; impersonated tokens are locked out entirely
		admin := api.Group("/admin",
			middleware.JWTAuth(),
			middleware.RequireAdmin(),
			middleware.NoImpersonation(),
			middleware.AuditContext())
		{
			admin.GET("/listings/pending", ctls.Admin.PendingListings)
			admin.POST("/listings/:id/approve", ctls.Admin.Approve)
			admin.POST("/listings/:id/reject", ctls.Admin.Reject)

			admin.POST("/impersonations", ctls.Admin.Impersonate)
			admin.GET("/impersonations", ctls.Admin.ListImpersonations)
			admin.DELETE("/impersonations/:id", ctls.Admin.RevokeImpersonation)

			admin.GET("/settings", ctls.Admin.ListSettings)
			admin.PUT("/settings/:name", ctls.Admin.SetSetting)

			admin.GET("/digests", ctls.Admin.ListDigestRuns)

			admin.GET("/stats/site", ctls.Analytics.SiteSeries)
			admin.GET("/stats/top", ctls.Analytics.TopListings)

			admin.POST("/tasks/:name/run", ctls.Admin.TriggerTask)
		}
	}
}
