// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bierstube/storefront/internal/cache"
	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/handlers"
	"github.com/bierstube/storefront/internal/messaging"
	"github.com/bierstube/storefront/internal/middleware"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

// Dependencies are the backends the API runs against. Publisher, ProductCache,
// Storage and Limiters are optional.
type Dependencies struct {
	Config       *config.Config
	Store        repository.Store
	Tokens       *utils.TokenIssuer
	Publisher    messaging.Publisher
	ProductCache cache.ProductCache
	Storage      *services.StorageService
	Limiters     *middleware.Limiters
}

func Initialize(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	topics := messaging.Topics{
		OrderPlaced:        cfg.Kafka.OrderPlacedTopic,
		OrderStatusChanged: cfg.Kafka.OrderStatusTopic,
	}

	// Initialize services
	catalogService := services.NewCatalogService(deps.Store, deps.ProductCache, cfg.Storefront)
	cartService := services.NewCartService(deps.Store, cfg.Storefront)
	orderService := services.NewOrderService(deps.Store, deps.Publisher, topics, deps.ProductCache, cfg.Storefront)
	reportService := services.NewReportService(deps.Store, cfg.Storefront)
	adminService := services.NewAdminService(deps.Store, cartService, deps.Storage, deps.ProductCache)
	authService := services.NewAuthService(deps.Store, deps.Tokens)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(adminService, reportService)

	authRequired := middleware.AuthRequired(deps.Tokens)
	adminRequired := middleware.AdminRequired()
	optionalAuth := middleware.OptionalAuth(deps.Tokens)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
		ExposeHeaders:    []string{"X-Page", "X-Per-Page", "X-Has-Next"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	if deps.Limiters != nil {
		r.Use(deps.Limiters.General.Middleware())
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"store":  cfg.StoreDriver,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"store":  cfg.StoreDriver,
		})
	})

	limit := func(rl *middleware.RateLimiter) gin.HandlerFunc {
		if rl == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return rl.Middleware()
	}
	var authLimiter, checkoutLimiter *middleware.RateLimiter
	if deps.Limiters != nil {
		authLimiter, checkoutLimiter = deps.Limiters.Auth, deps.Limiters.Checkout
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", limit(authLimiter), authHandler.Register)
			auth.POST("/login", limit(authLimiter), authHandler.Login)
			auth.GET("/me", authRequired, authHandler.Me)
			auth.PUT("/password", authRequired, limit(authLimiter), authHandler.ChangePassword)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(authRequired)
		{
			users.PUT("/profile", authHandler.UpdateProfile)
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", optionalAuth, catalogHandler.ListProducts)
			products.GET("/featured", catalogHandler.GetFeaturedProducts)
			products.GET("/search", catalogHandler.SearchProducts)
			products.GET("/:id", optionalAuth, catalogHandler.GetProduct)
			products.POST("", authRequired, adminRequired, catalogHandler.CreateProduct)
			products.PUT("/:id", authRequired, adminRequired, catalogHandler.UpdateProduct)
			products.DELETE("/:id", authRequired, adminRequired, catalogHandler.DeleteProduct)
		}

		// Event routes
		events := v1.Group("/events")
		{
			events.GET("", catalogHandler.ListEvents)
			events.GET("/:id", optionalAuth, catalogHandler.GetEvent)
			events.POST("", authRequired, adminRequired, catalogHandler.CreateEvent)
			events.PUT("/:id", authRequired, adminRequired, catalogHandler.UpdateEvent)
			events.DELETE("/:id", authRequired, adminRequired, catalogHandler.DeleteEvent)
		}

		// Cart routes
		cart := v1.Group("/cart")
		cart.Use(authRequired)
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.DELETE("/items/:productId", cartHandler.RemoveItem)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(authRequired)
		{
			orders.POST("", limit(checkoutLimiter), orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListMyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(authRequired, adminRequired)
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			admin.GET("/users", adminHandler.GetUsers)
			admin.POST("/users", authHandler.CreateAdminUser)
			admin.PUT("/users/:id/admin", authHandler.SetAdminClaim)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)

			admin.GET("/orders", orderHandler.ListOrdersByStatus)
			admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

			admin.GET("/reports/sales", adminHandler.GetSalesAnalytics)
			admin.GET("/reports/inventory", adminHandler.GetInventoryReport)

			admin.POST("/sample-data", adminHandler.InitializeSampleData)
			admin.PUT("/products/prices", adminHandler.BulkUpdatePrices)
			admin.PUT("/products/:id/stock", adminHandler.UpdateProductStock)
			admin.POST("/carts/cleanup", adminHandler.CleanupStaleCarts)
			admin.POST("/backups/:collection", adminHandler.BackupCollection)
		}
	}

	return r
}
