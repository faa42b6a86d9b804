package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deskforge/pushdesk/internal/config"
	"github.com/deskforge/pushdesk/internal/handler"
	"github.com/deskforge/pushdesk/internal/middleware"
	"github.com/deskforge/pushdesk/internal/model"
	"github.com/deskforge/pushdesk/internal/repository"
	"github.com/deskforge/pushdesk/internal/service"
	"github.com/deskforge/pushdesk/migrations"
	"github.com/deskforge/pushdesk/pkg/auth"
	"github.com/deskforge/pushdesk/pkg/fcm"
)

// @title           PushDesk API
// @version         1.0
// @description     Installable-web-app push notification service for helpdesk ticket events.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting PushDesk API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.User{},
			&model.Group{},
			&model.GroupMember{},
			&model.Ticket{},
			&model.TicketActor{},
			&model.Device{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Initialize Layers ====================
	// JWT Manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	deviceRepo := repository.NewDeviceRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	// Push gateway client. Absent or broken credentials disable push
	// entirely rather than failing startup: the registry endpoints keep
	// working and notification dispatch becomes a logged no-op.
	var sender service.PushSender
	account, err := fcm.LoadServiceAccount(cfg.FCM.CredentialsFile, cfg.FCM.CredentialsJSON)
	switch {
	case errors.Is(err, fcm.ErrNoServiceAccount):
		log.Println("⚠️  Push service account not configured, notifications disabled")
	case err != nil:
		log.Printf("⚠️  Push service account invalid: %v (notifications disabled)", err)
	case cfg.FCM.ProjectID == "":
		log.Println("⚠️  FCM_PROJECT_ID not set, notifications disabled")
	default:
		creds := fcm.NewCredentialProvider(account)
		sender = fcm.NewClient(cfg.FCM.ProjectID, creds, deviceRepo.DeleteByToken)
		log.Printf("✅ Push gateway configured [project=%s]", cfg.FCM.ProjectID)
	}

	// Services
	composer := service.NewComposer(cfg.Push.BaseURL)
	dispatcher := service.NewDispatcher(ticketRepo, ticketRepo, deviceRepo, composer, sender, cfg.Push.SendInterval)

	// Handlers
	deviceHandler := handler.NewDeviceHandler(deviceRepo)
	adminHandler := handler.NewAdminHandler(deviceRepo, dispatcher)
	hookHandler := handler.NewHookHandler(dispatcher)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"service":         "pushdesk-api",
			"push_configured": dispatcher.Configured(),
			"time":            time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Host lifecycle hooks (shared-secret auth)
		hooks := api.Group("/hooks")
		hooks.Use(middleware.HookAuthMiddleware(cfg.Hook.Secret))
		{
			hooks.POST("/tickets/:id/events", hookHandler.TicketEvent)
		}

		// User-facing device endpoints
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			protected.POST("/devices/register", deviceHandler.Register)
			protected.POST("/devices/heartbeat", deviceHandler.Heartbeat)

			// Admin
			admin := protected.Group("/admin")
			admin.Use(middleware.AdminMiddleware())
			{
				admin.GET("/devices", adminHandler.ListDevices)
				admin.DELETE("/devices/:id", adminHandler.DeleteDevice)
				admin.DELETE("/devices", adminHandler.DeleteAllDevices)
				admin.POST("/test-notification", adminHandler.TestNotification)
			}
		}
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 PushDesk API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited gracefully")
}
