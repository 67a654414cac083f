package main

import (
	"fmt"
	"net/http"
	"os"

	"complytrail/internal/config"
	"complytrail/internal/database"
	"complytrail/internal/handlers"
	"complytrail/internal/logger"
	"complytrail/internal/middleware"
	"complytrail/internal/permissions"
	"complytrail/internal/services"
	"complytrail/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "complytrail/internal/docs" // Import swagger docs
)

// @title           complytrail API
// @version         1.0
// @description     complytrail records every mutation to an organization's compliance records as an immutable audit log and supports point-in-time restore with a preview-then-confirm workflow.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	gate := permissions.NewGate(db)
	recorder := services.NewChangeRecorder()
	userService := services.NewUserService(db)
	complianceService := services.NewComplianceService(db, gate, recorder)
	trailService := services.NewAuditTrailService(db, gate, appConfig.MaxTrailPageSize, appConfig.RetentionDays)
	activityService := services.NewUserActivityService(db, gate, appConfig.SessionGap)
	pointService := services.NewRestorePointService(db, gate, appConfig.RetentionDays)
	restoreService := services.NewRestoreService(db, gate, recorder, appConfig.RetentionDays)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	complianceHandler := handlers.NewComplianceHandler(complianceService)
	auditHandler := handlers.NewAuditHandler(trailService, activityService, pointService)
	restoreHandler := handlers.NewRestoreHandler(restoreService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Organization routes
	orgs := protected.Group("/orgs")
	orgs.POST("", authHandler.CreateOrganization)
	orgs.POST("/:id/members", authHandler.AddMember)

	// Audit trail read paths
	orgs.GET("/:id/audit-trail", auditHandler.GetAuditTrail)
	orgs.GET("/:id/activity", auditHandler.GetUserActivity)
	orgs.GET("/:id/restore-points", auditHandler.GetRestorePoints)

	// Restore workflow
	orgs.POST("/:id/restore/preview", restoreHandler.PreviewRestore)
	orgs.POST("/:id/restore", restoreHandler.PerformRestore)

	// Tracked compliance entities
	orgs.POST("/:id/requirements", complianceHandler.CreateRequirement)
	orgs.GET("/:id/requirements/:req_id", complianceHandler.GetRequirement)
	orgs.PUT("/:id/requirements/:req_id", complianceHandler.UpdateRequirement)
	orgs.DELETE("/:id/requirements/:req_id", complianceHandler.DeleteRequirement)
	orgs.POST("/:id/assessments", complianceHandler.CreateAssessment)
	orgs.PUT("/:id/assessments/:assessment_id", complianceHandler.UpdateAssessment)
	orgs.DELETE("/:id/assessments/:assessment_id", complianceHandler.DeleteAssessment)
	orgs.POST("/:id/documents", complianceHandler.CreateDocument)
	orgs.PUT("/:id/documents/:document_id", complianceHandler.UpdateDocument)
	orgs.DELETE("/:id/documents/:document_id", complianceHandler.DeleteDocument)

	log.Infof("Starting complytrail server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
