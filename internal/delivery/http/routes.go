package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pharmasource/backend/config"
	"github.com/pharmasource/backend/internal/domain"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		cosmetics := v1.Group("/cosmetics")
		{
			cosmetics.GET("/search", handler.SearchCosmetics)
			cosmetics.GET("/brands", handler.Brands(domain.KindCosmetics))
		}

		milk := v1.Group("/milk")
		{
			milk.GET("/search", handler.SearchMilk)
			milk.GET("/brands", handler.Brands(domain.KindMilk))
		}

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handler.Register)
			auth.POST("/login", handler.Login)
			auth.POST("/logout", handler.Logout)

			authed := auth.Group("", SessionMiddleware(handler.sessions))
			authed.GET("/me", handler.Me)
			authed.POST("/refresh", handler.Refresh)
		}

		compare := v1.Group("/compare", SessionMiddleware(handler.sessions))
		{
			compare.GET("/:catalog", handler.GetComparison)
			compare.DELETE("/:catalog", handler.ClearCompare)
			compare.POST("/:catalog/toggle", handler.ToggleCompare)
		}

		assistant := v1.Group("/assistant", SessionMiddleware(handler.sessions))
		{
			assistant.POST("/ask", handler.Ask)
		}

		admin := v1.Group("/admin", SessionMiddleware(handler.sessions), AdminMiddleware())
		{
			admin.GET("/users", handler.ListUsers)
			admin.PUT("/users/:id", handler.UpdateUser)
			admin.DELETE("/users/:id", handler.DeleteUser)
			admin.GET("/settings", handler.GetSettings)
			admin.PUT("/settings", handler.UpdateSettings)
		}
	}

	return router
}
