// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/config"
	"github.com/tradebook/tradebook-backend/internal/handlers"
	"github.com/tradebook/tradebook-backend/internal/middleware"
	"github.com/tradebook/tradebook-backend/internal/services"
)

const apiVersion = "1.0.0"

// Initialize wires services, handlers and middleware into a gin engine. c may be nil when
// redis is not configured. Background work started here stops when ctx is cancelled.
func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config, c *cache.Cache) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		return nil, err
	}

	authService := services.NewAuthService(db, cfg.JWT)
	userService := services.NewUserService(db)
	productService := services.NewProductService(db, c, cfg.Inventory.DefaultLowStockThreshold)
	purchaseService := services.NewPurchaseService(db, c)
	saleService := services.NewSaleService(db, c)
	traderService := services.NewTraderService(db, c)
	paymentService := services.NewPaymentService(db, c)
	expenseService := services.NewExpenseService(db, c)
	dashboardService := services.NewDashboardService(db, c)
	reportService := services.NewReportService(dashboardService, storageService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	saleHandler := handlers.NewSaleHandler(saleService)
	traderHandler := handlers.NewTraderHandler(traderService, paymentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	expenseHandler := handlers.NewExpenseHandler(expenseService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, reportService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		status, code := "healthy", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		ctx.JSON(code, gin.H{
			"status":  status,
			"version": apiVersion,
			"cache":   c != nil,
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		authLimit := middleware.AuthRateLimit(ctx, cfg.RateLimit.AuthPerMinute)
		{
			auth.POST("/login", authLimit, authHandler.Login)
			auth.POST("/refresh", authLimit, authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())

		// User management
		users := protected.Group("/users")
		users.Use(middleware.AdminRequired())
		{
			users.GET("", userHandler.GetUsers)
			users.POST("", userHandler.CreateUser)
			users.PUT("/:id/status", userHandler.UpdateUserStatus)
		}

		// Product routes
		products := protected.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.POST("", productHandler.CreateProduct)
			products.GET("/low-stock", productHandler.GetLowStock)
			products.GET("/:id", productHandler.GetProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeactivateProduct)
		}

		// Purchase routes
		purchases := protected.Group("/purchases")
		{
			purchases.GET("", purchaseHandler.GetPurchases)
			purchases.POST("", purchaseHandler.CreatePurchase)
			purchases.GET("/:id", purchaseHandler.GetPurchase)
			purchases.PUT("/:id", purchaseHandler.UpdatePurchase)
			purchases.DELETE("/:id", purchaseHandler.DeletePurchase)
		}

		// Sale routes
		sales := protected.Group("/sales")
		{
			sales.GET("", saleHandler.GetSales)
			sales.POST("", saleHandler.CreateSale)
			sales.GET("/:id", saleHandler.GetSale)
			sales.DELETE("/:id", saleHandler.DeleteSale)
		}

		// Trader routes
		traders := protected.Group("/traders")
		{
			traders.GET("", traderHandler.GetTraders)
			traders.POST("", traderHandler.CreateTrader)
			traders.GET("/:id", traderHandler.GetTrader)
			traders.PUT("/:id", traderHandler.UpdateTrader)
			traders.DELETE("/:id", traderHandler.DeactivateTrader)
			traders.POST("/:id/payments", traderHandler.RecordPayment)
			traders.GET("/:id/ledger", traderHandler.GetLedger)
			traders.GET("/:id/statement", traderHandler.GetStatement)
			traders.POST("/:id/rebuild", middleware.AdminRequired(), traderHandler.RebuildTotals)
		}

		// Payment routes
		payments := protected.Group("/payments")
		{
			payments.GET("", paymentHandler.GetPayments)
			payments.POST("", paymentHandler.CreatePayment)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.DELETE("/:id", paymentHandler.DeletePayment)
		}

		// Expense routes
		expenses := protected.Group("/expenses")
		{
			expenses.GET("", expenseHandler.GetExpenses)
			expenses.POST("", expenseHandler.CreateExpense)
			expenses.GET("/:id", expenseHandler.GetExpense)
			expenses.PUT("/:id", expenseHandler.UpdateExpense)
			expenses.DELETE("/:id", expenseHandler.DeleteExpense)
		}

		// Dashboard and reporting
		dashboard := protected.Group("/dashboard")
		{
			dashboard.GET("/summary", dashboardHandler.GetSummary)
			dashboard.GET("/export", dashboardHandler.ExportSummary)
			dashboard.POST("/export/archive", dashboardHandler.ArchiveSummary)
			dashboard.GET("/export/archive/*key", dashboardHandler.DownloadArchive)
		}
	}

	return r, nil
}
