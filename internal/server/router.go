package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/altmarkt/altmarkt-backend/internal/handlers"
	"github.com/altmarkt/altmarkt-backend/internal/middleware"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	AuthMiddleware  *middleware.AuthMiddleware
	AuthHandler     *handlers.AuthHandler
	UserHandler     *handlers.UserHandler
	CompanyHandler  *handlers.CompanyHandler
	ProductHandler  *handlers.ProductHandler
	ItemHandler     *handlers.ItemHandler
	SeoHandler      *handlers.SeoHandler
	ExchangeHandler *handlers.ExchangeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	// Public
	api.POST("/register", cfg.AuthHandler.Register)
	api.POST("/activate", cfg.AuthHandler.Activate)
	api.POST("/login", cfg.AuthHandler.Login)
	api.POST("/forgot-password", cfg.AuthHandler.ForgotPassword)
	api.POST("/reset-password", cfg.AuthHandler.ResetPassword)

	api.GET("/companies", cfg.CompanyHandler.List)
	api.GET("/companies/:companyId", cfg.CompanyHandler.Get)
	api.GET("/products", cfg.ProductHandler.List)
	api.GET("/products/:productId", cfg.ProductHandler.Get)
	api.GET("/items", cfg.ItemHandler.List)
	api.GET("/seo/products", cfg.SeoHandler.ProductIDs)
	api.GET("/seo/companies", cfg.SeoHandler.CompanyIDs)

	// Exchange protocol: the uploading client authenticates per request
	// (basic auth on checkauth, bearer token afterwards), so these stay
	// outside the JWT middleware.
	api.GET("/exchange/:companyId", cfg.ExchangeHandler.Protocol)
	api.POST("/exchange/:companyId", cfg.ExchangeHandler.ReceiveFile)

	// Refresh carries a refresh token, not an access token.
	api.POST("/refresh", cfg.AuthMiddleware.RequireRefresh(), cfg.AuthHandler.Refresh)

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/logout", cfg.AuthHandler.Logout)

	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PUT("/user", cfg.UserHandler.UpdateMe)
	protected.POST("/user/avatar", cfg.UserHandler.UploadAvatar)
	protected.DELETE("/user", cfg.UserHandler.DeleteMe)

	protected.POST("/companies", cfg.CompanyHandler.Create)
	protected.PUT("/companies/:companyId", cfg.CompanyHandler.Update)
	protected.POST("/companies/:companyId/logo", cfg.CompanyHandler.UploadLogo)
	protected.POST("/companies/:companyId/items", cfg.ItemHandler.Create)

	protected.POST("/exchange/:companyId/run", cfg.ExchangeHandler.Run)
	protected.GET("/exchange/:companyId/status", cfg.ExchangeHandler.Status)

	return router
}

func allowedOrigins() []string {
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); raw != "" {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return []string{"http://localhost:3000", "http://localhost:5173"}
}
