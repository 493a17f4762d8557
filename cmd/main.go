package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"invest-engine/internal/auth"
	"invest-engine/internal/config"
	"invest-engine/internal/database"
	"invest-engine/internal/handlers"
	"invest-engine/internal/jobs"
	"invest-engine/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	settingsService := services.NewSettingsService(db)
	referralService := services.NewReferralService(db)
	walletService := services.NewWalletService(db)
	commissionService := services.NewCommissionService(db, settingsService, referralService, walletService)
	roiService := services.NewROIService(db, settingsService, referralService, walletService)
	rewardService := services.NewRewardService(db, settingsService, referralService, walletService)
	investmentService := services.NewInvestmentService(db, commissionService, walletService)
	withdrawalService := services.NewWithdrawalService(db, walletService, rewardService, cfg.App.WithdrawalFeePercent)
	boosterService := services.NewBoosterService(db)
	authService := services.NewAuthService(db, referralService, walletService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService, walletService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	referralHandler := handlers.NewReferralHandler(referralService, boosterService)
	adminHandler := handlers.NewAdminHandler(db, roiService, withdrawalService, settingsService, boosterService)

	// Start the ROI sweep job
	if cfg.Sweep.Enabled {
		sweeper := jobs.NewROISweeper(roiService, cfg.Sweep.Interval)
		go sweeper.Start()
		defer sweeper.Stop()
	}

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public plan catalogue
	router.GET("/api/plans", investmentHandler.GetPlans)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Investment endpoints
		api.POST("/investments", investmentHandler.CreateInvestment)
		api.GET("/investments", investmentHandler.GetInvestments)
		api.GET("/wallet", investmentHandler.GetWallet)

		// Withdrawal endpoints
		api.POST("/withdrawals", withdrawalHandler.RequestWithdrawal)
		api.GET("/withdrawals", withdrawalHandler.GetWithdrawals)
		api.POST("/withdrawals/:id/cancel", withdrawalHandler.CancelWithdrawal)

		// Referral endpoints
		api.GET("/referral/code", referralHandler.GetReferralCode)
		api.GET("/referral/referrals", referralHandler.GetReferrals)
		api.GET("/referral/commissions", referralHandler.GetCommissionHistory)
		api.GET("/referral/boosters", referralHandler.GetBoosters)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.POST("/roi/sweep", adminHandler.TriggerSweep)
		admin.POST("/roi/users/:id", adminHandler.TriggerUserAccrual)

		admin.GET("/withdrawals", adminHandler.ListWithdrawals)
		admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/complete", adminHandler.CompleteWithdrawal)
		admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)

		admin.PUT("/settings/:key", adminHandler.UpdateSetting)
		admin.POST("/boosters", adminHandler.GrantBooster)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
